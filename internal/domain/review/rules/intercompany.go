package rules

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/closebooks/backend/internal/domain/review"
)

// IntercompanyConfig scopes intercompany accounts by name pattern and names
// the counterpart balance-sheet evidence to reconcile against.
type IntercompanyConfig struct {
	review.RuleConfigBase
	NamePatterns                          []string `json:"name_patterns"`
	EvidenceType                          string   `json:"evidence_type"`
	NonZeroOnly                           bool     `json:"non_zero_only"`
	RequireEvidenceAsOfDateMatchPeriodEnd bool     `json:"require_evidence_as_of_date_match_period_end"`
}

// intercompany compares balance-sheet accounts matched by name against the
// counterparty balances reported on related companies' balance sheets. The
// shareholder/AP-AR rule and the loan rule share this engine and differ in
// wording and default patterns.
type intercompany struct {
	review.BaseRule
	subject        string // e.g. "intercompany balances"
	accountsNoun   string // e.g. "intercompany accounts"
	detailMessage  string
	summaryKey     string
	summaryMessage string
	defaultConfig  func() *IntercompanyConfig
}

func (r *intercompany) ConfigPrototype() any { return r.defaultConfig() }

func (r *intercompany) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := r.defaultConfig()
	if err := ctx.ClientConfig.Decode(r.ID(), cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}
	missingStatus := cfg.MissingDataPolicy

	patterns := loweredPatterns(cfg.NamePatterns)

	type scoped struct {
		ref     string
		name    string
		balance decimal.Decimal
	}
	var accounts []scoped
	for _, acct := range ctx.BalanceSheet.Accounts {
		if !nameMatchesAny(acct.Name, patterns) {
			continue
		}
		if cfg.NonZeroOnly && acct.Balance.IsZero() {
			continue
		}
		accounts = append(accounts, scoped{acct.AccountRef, acct.Name, acct.Balance})
	}

	if len(accounts) == 0 {
		return r.Result(review.StatusNotApplicable,
			fmt.Sprintf("No %s found as of %s.", r.subject, ctx.PeriodEnd))
	}

	item := ctx.Evidence.First(cfg.EvidenceType)
	if item == nil {
		res := r.Result(missingStatus, fmt.Sprintf(
			"%s detected but no counterpart Balance Sheet evidence provided for %s.",
			upperFirst(r.subject), ctx.PeriodEnd))
		if missingStatus == review.StatusNeedsReview {
			res.HumanAction = fmt.Sprintf("Provide counterpart Balance Sheet evidence for %s.", r.subject)
		}
		return res
	}
	if cfg.RequireEvidenceAsOfDateMatchPeriodEnd && !evidenceAsOfMatches(item, ctx.PeriodEnd) {
		res := r.Result(missingStatus,
			"Counterpart Balance Sheet evidence date missing or does not match period end; cannot verify.")
		res.EvidenceUsed = []review.EvidenceItem{*item}
		if missingStatus == review.StatusNeedsReview {
			res.HumanAction = "Provide counterpart Balance Sheets as of period end."
		}
		return res
	}

	counterpartItems := item.MetaItems()
	if counterpartItems == nil {
		res := r.Result(missingStatus, "Counterpart Balance Sheet evidence missing items; cannot verify.")
		res.EvidenceUsed = []review.EvidenceItem{*item}
		if missingStatus == review.StatusNeedsReview {
			res.HumanAction = fmt.Sprintf("Provide %s from counterpart Balance Sheets.", r.subject)
		}
		return res
	}

	counterpartMap := make(map[string]decimal.Decimal)
	for _, ci := range counterpartItems {
		counterparty := strings.TrimSpace(firstMetaString(ci, "counterparty", "company"))
		amt := review.MetaDecimal(ci["balance"])
		if counterparty == "" || amt == nil {
			continue
		}
		counterpartMap[strings.ToLower(counterparty)] = *amt
	}

	var (
		mismatches []map[string]any
		details    []review.ResultDetail
	)
	for _, acct := range accounts {
		bal := cfg.Quantize(acct.balance)
		counterparty := extractCounterparty(acct.name, patterns)
		cpBalance, found := counterpartMap[strings.ToLower(counterparty)]

		mismatched := false
		switch {
		case !found:
			mismatched = true
			mismatches = append(mismatches, map[string]any{
				"account_name":         acct.name,
				"balance":              review.DecimalString(bal),
				"counterparty":         counterparty,
				"counterparty_balance": nil,
				"reason":               "missing_counterparty_balance",
			})
		default:
			cpQ := cfg.Quantize(cpBalance)
			if !bal.Abs().Equal(cpQ.Abs()) {
				mismatched = true
				mismatches = append(mismatches, map[string]any{
					"account_name":         acct.name,
					"balance":              review.DecimalString(bal),
					"counterparty":         counterparty,
					"counterparty_balance": review.DecimalString(cpQ),
					"reason":               "amount_mismatch",
				})
			}
		}

		detailStatus := review.StatusPass
		if mismatched {
			detailStatus = review.StatusNeedsReview
		}
		values := map[string]any{
			"account_name": acct.name,
			"period_end":   ctx.PeriodEnd.String(),
			"balance":      review.DecimalString(bal),
			"counterparty": counterparty,
			"status":       detailStatus.String(),
		}
		if found {
			values["counterparty_balance"] = review.DecimalString(cpBalance)
		} else {
			values["counterparty_balance"] = nil
		}
		details = append(details, review.ResultDetail{
			Key:     acct.ref,
			Message: r.detailMessage,
			Values:  values,
		})
	}

	status := review.StatusPass
	summary := fmt.Sprintf("%s match counterpart Balance Sheets as of %s.", upperFirst(r.subject), ctx.PeriodEnd)
	if len(mismatches) > 0 {
		status = review.StatusNeedsReview
		summary = fmt.Sprintf("%s require review (missing or mismatched counterpart balances).", upperFirst(r.subject))
	}

	mismatchSample := mismatches
	if len(mismatchSample) > 25 {
		mismatchSample = mismatchSample[:25]
	}
	details = append(details, review.ResultDetail{
		Key:     r.summaryKey,
		Message: r.summaryMessage,
		Values: map[string]any{
			"period_end":     ctx.PeriodEnd.String(),
			"mismatch_count": len(mismatches),
			"mismatches":     mismatchSample,
			"status":         status.String(),
		},
	})

	res := r.Result(status, summary)
	res.Details = details
	res.EvidenceUsed = []review.EvidenceItem{*item}
	if status != review.StatusPass {
		res.HumanAction = fmt.Sprintf("Confirm counterpart balances and reconcile %s.", r.accountsNoun)
	}
	return res
}

// extractCounterparty derives the related-company name from an account name
// like "Due from Alpha Holdings": the text after the first matching pattern,
// else the whole name.
func extractCounterparty(name string, patterns []string) string {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		idx := strings.Index(lower, p)
		if idx == -1 {
			continue
		}
		if candidate := strings.TrimSpace(name[idx+len(p):]); candidate != "" {
			return candidate
		}
	}
	return name
}

func loweredPatterns(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
