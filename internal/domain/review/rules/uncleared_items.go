package rules

import (
	"fmt"
	"sort"

	"github.com/closebooks/backend/internal/domain/review"
)

// UnclearedItemsConfig tunes how old an uncleared register entry may be
// before it is flagged. Ages are calendar months relative to the statement
// end date, not 30-day approximations.
type UnclearedItemsConfig struct {
	review.RuleConfigBase
	ExpectedAccounts        []string          `json:"expected_accounts"`
	MonthsOldThreshold      int               `json:"months_old_threshold" validate:"gte=0"`
	StaleItemStatus         review.RuleStatus `json:"stale_item_status" validate:"oneof=WARN FAIL"`
	MaxFlaggedItemsInDetail int               `json:"max_flagged_items_in_detail" validate:"gte=0"`
}

func defaultUnclearedItemsConfig() *UnclearedItemsConfig {
	return &UnclearedItemsConfig{
		RuleConfigBase:          review.DefaultRuleConfigBase(),
		MonthsOldThreshold:      2,
		StaleItemStatus:         review.StatusWarn,
		MaxFlaggedItemsInDetail: 20,
	}
}

// UnclearedItems flags stale uncleared transactions from the detailed
// reconciliation report. Only the "as at statement end date" section is
// evaluated; "uncleared after date" items are counted but never flagged.
type UnclearedItems struct {
	review.BaseRule
}

func NewUnclearedItems() *UnclearedItems {
	return &UnclearedItems{
		BaseRule: review.NewBaseRule(
			"BS-UNCLEARED-ITEMS-INVESTIGATED-AND-FLAGGED",
			"Uncleared transactions are investigated and explained",
			"Bank reconciliations → Uncleared items",
			[]string{"Reconciliation report (detailed)"},
		),
	}
}

func (r *UnclearedItems) ConfigPrototype() any { return defaultUnclearedItemsConfig() }

func (r *UnclearedItems) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := defaultUnclearedItemsConfig()
	if err := ctx.ClientConfig.Decode(r.ID(), cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}
	missingStatus := cfg.MissingDataPolicy

	// Expected accounts pin the scope; otherwise every provided snapshot
	// is evaluated.
	var requiredRefs []string
	if len(cfg.ExpectedAccounts) > 0 {
		requiredRefs = cfg.ExpectedAccounts
	} else {
		for _, rec := range ctx.Reconciliations {
			requiredRefs = append(requiredRefs, rec.AccountRef)
		}
	}

	if len(requiredRefs) == 0 {
		res := r.Result(missingStatus, fmt.Sprintf(
			"No reconciliation snapshots provided for %s; cannot evaluate uncleared items.", ctx.PeriodEnd))
		if missingStatus == review.StatusNeedsReview {
			res.HumanAction = "Provide reconciliation detailed report data (uncleared items as at statement end date)."
		}
		return res
	}

	names := balanceSheetNames(ctx.BalanceSheet)

	var (
		statuses []review.RuleStatus
		details  []review.ResultDetail
	)
	for _, ref := range requiredRefs {
		var candidates []review.ReconciliationSnapshot
		for _, rec := range ctx.Reconciliations {
			if rec.AccountRef == ref {
				candidates = append(candidates, rec)
			}
		}
		if len(candidates) == 0 {
			statuses = append(statuses, missingStatus)
			details = append(details, review.ResultDetail{
				Key:     ref,
				Message: "Missing reconciliation snapshot for this account; cannot evaluate uncleared items.",
				Values: map[string]any{
					"account_name":              names[ref],
					"period_end":                ctx.PeriodEnd.String(),
					"status":                    missingStatus.String(),
					"expected_from_maintenance": len(cfg.ExpectedAccounts) > 0,
				},
			})
			continue
		}

		status, detail := evaluateUnclearedItems(ctx, latestReconciliation(candidates), cfg, names[ref])
		statuses = append(statuses, status)
		details = append(details, detail)
	}

	overall := review.WorstStatus(statuses...)

	var summary string
	switch {
	case overall == review.StatusPass:
		summary = "No stale uncleared items detected (across evaluated accounts)."
	case overall == review.StatusWarn || overall == review.StatusFail:
		name, asAt := "", ""
		if ex := exemplarDetail(details, overall); ex != nil {
			name, _ = ex.Values["account_name"].(string)
			asAt, _ = ex.Values["as_at_date"].(string)
		}
		summary = fmt.Sprintf(
			"Uncleared items older than %d month(s) exist for '%s' as of %s; investigate and explain.",
			cfg.MonthsOldThreshold, name, asAt)
	case overall == review.StatusNeedsReview:
		summary = fmt.Sprintf("Missing data prevented evaluation of uncleared items as of %s.", ctx.PeriodEnd)
	default:
		summary = "Not applicable."
	}

	res := r.Result(overall, summary)
	res.Details = details
	if overall != review.StatusPass && overall != review.StatusNotApplicable {
		res.HumanAction = fmt.Sprintf(
			"Review uncleared items as at the reconciliation statement end date; flag any items older than "+
				"%d month(s) and check with the client for explanations or corrections.", cfg.MonthsOldThreshold)
	}
	return res
}

func evaluateUnclearedItems(
	ctx review.RuleContext,
	rec review.ReconciliationSnapshot,
	cfg *UnclearedItemsConfig,
	nameFallback string,
) (review.RuleStatus, review.ResultDetail) {
	accountName := rec.AccountName
	if accountName == "" {
		accountName = nameFallback
	}
	missingStatus := cfg.MissingDataPolicy

	if rec.StatementEndDate == nil {
		return missingStatus, review.ResultDetail{
			Key:     rec.AccountRef,
			Message: "Missing statement end date; cannot evaluate uncleared item age.",
			Values: map[string]any{
				"account_name": accountName,
				"period_end":   ctx.PeriodEnd.String(),
				"status":       missingStatus.String(),
			},
		}
	}
	asAtDate := *rec.StatementEndDate

	asAtItems, afterDateItems := rec.UnclearedItems()
	if asAtItems == nil {
		return missingStatus, review.ResultDetail{
			Key:     rec.AccountRef,
			Message: "Missing uncleared items (as at statement end date) in reconciliation metadata.",
			Values: map[string]any{
				"account_name": accountName,
				"period_end":   ctx.PeriodEnd.String(),
				"as_at_date":   asAtDate.String(),
				"status":       missingStatus.String(),
			},
		}
	}

	thresholdDate := asAtDate.AddMonths(-cfg.MonthsOldThreshold)

	var flagged []map[string]any
	invalidCount := 0
	for _, item := range asAtItems {
		txnDate := unclearedItemDate(item)
		if txnDate == nil {
			invalidCount++
			continue
		}
		if txnDate.Before(thresholdDate) {
			flagged = append(flagged, map[string]any{
				"txn_date":    txnDate.String(),
				"description": firstMetaString(item, "description", "memo", "name"),
				"amount":      item["amount"],
				"type":        firstMetaString(item, "type", "txn_type"),
				"reference":   firstMetaString(item, "reference", "ref"),
			})
		}
	}

	var status review.RuleStatus
	switch {
	case invalidCount > 0:
		status = missingStatus
	case len(flagged) > 0:
		status = cfg.StaleItemStatus
	default:
		status = review.StatusPass
	}

	sort.Slice(flagged, func(i, j int) bool {
		return flagged[i]["txn_date"].(string) < flagged[j]["txn_date"].(string)
	})
	sample := flagged
	if len(sample) > cfg.MaxFlaggedItemsInDetail {
		sample = sample[:cfg.MaxFlaggedItemsInDetail]
	}

	return status, review.ResultDetail{
		Key:     rec.AccountRef,
		Message: "Uncleared items age evaluated (as at statement end date; 'after date' items ignored).",
		Values: map[string]any{
			"account_name":                             accountName,
			"period_end":                               ctx.PeriodEnd.String(),
			"as_at_date":                               asAtDate.String(),
			"months_old_threshold":                     cfg.MonthsOldThreshold,
			"threshold_date":                           thresholdDate.String(),
			"uncleared_items_as_at_count":              len(asAtItems),
			"uncleared_items_after_date_ignored_count": len(afterDateItems),
			"invalid_uncleared_item_date_count":        invalidCount,
			"flagged_uncleared_items_count":            len(flagged),
			"flagged_uncleared_items_sample":           sample,
			"status":                                   status.String(),
		},
	}
}

// unclearedItemDate pulls the transaction date from a report row; the
// detailed report has shipped it under a few different keys. The first
// populated key wins; an unparseable value counts as missing.
func unclearedItemDate(item map[string]any) *review.Date {
	for _, key := range []string{"txn_date", "date", "transaction_date"} {
		v := item[key]
		if v == nil || v == "" {
			continue
		}
		return review.MetaDate(v)
	}
	return nil
}

func firstMetaString(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := review.MetaString(item[key]); s != "" {
			return s
		}
	}
	return ""
}
