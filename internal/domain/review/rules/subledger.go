package rules

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/closebooks/backend/internal/domain/review"
)

// SubledgerConfig drives the AP/AR subledger tie-out. Scope resolution
// order: a "Total Accounts Payable/Receivable" summary line on the Balance
// Sheet, then configured account_refs, then name inference.
type SubledgerConfig struct {
	review.RuleConfigBase
	AccountRefs        []string `json:"account_refs"`
	AccountNameMatch   string   `json:"account_name_match"`
	AllowNameInference bool     `json:"allow_name_inference"`

	SummaryEvidenceType                   string `json:"summary_evidence_type"`
	DetailEvidenceType                    string `json:"detail_evidence_type"`
	RequireEvidenceAsOfDateMatchPeriodEnd bool   `json:"require_evidence_as_of_date_match_period_end"`
}

// subledger is the shared engine behind the AP and AR tie-out rules; the
// two differ only in wording, token and evidence defaults.
type subledger struct {
	review.BaseRule
	abbrev        string // "AP" / "AR"
	noun          string // "Accounts Payable" / "Accounts Receivable"
	token         string // "A/P" / "A/R"
	defaultConfig func() *SubledgerConfig
}

func (r *subledger) ConfigPrototype() any { return r.defaultConfig() }

// isTotalLine matches Balance Sheet summary rows like
// "Total Accounts Payable" or "Total A/P". The initialism must appear as a
// full token so names like "Total Caps" stay out of scope.
func (r *subledger) isTotalLine(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if !strings.Contains(n, "total") {
		return false
	}
	if strings.Contains(n, strings.ToLower(r.noun)) {
		return true
	}
	return containsToken(name, r.token)
}

func (r *subledger) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := r.defaultConfig()
	if err := ctx.ClientConfig.Decode(r.ID(), cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}

	type scoped struct {
		ref     string
		name    string
		balance decimal.Decimal
	}
	var (
		accounts      []scoped
		missingRefs   []string
		usedNameMatch bool
		usedTotalLine bool
	)

	var totalMatches []review.AccountBalance
	for _, acct := range ctx.BalanceSheet.Accounts {
		if r.isTotalLine(acct.Name) {
			totalMatches = append(totalMatches, acct)
		}
	}
	if len(totalMatches) > 1 {
		res := r.Result(review.StatusNeedsReview, fmt.Sprintf(
			"Multiple %s total lines found in Balance Sheet as of %s; cannot verify.", r.abbrev, ctx.PeriodEnd))
		for _, acct := range totalMatches {
			res.Details = append(res.Details, review.ResultDetail{
				Key:     acct.AccountRef,
				Message: fmt.Sprintf("Multiple %s total lines matched.", r.abbrev),
				Values: map[string]any{
					"account_name": acct.Name,
					"period_end":   ctx.PeriodEnd.String(),
					"status":       review.StatusNeedsReview.String(),
				},
			})
		}
		res.HumanAction = fmt.Sprintf("Use a single %s total line or configure specific account refs.", r.abbrev)
		return res
	}

	switch {
	case len(totalMatches) == 1:
		acct := totalMatches[0]
		accounts = append(accounts, scoped{acct.AccountRef, acct.Name, acct.Balance})
		usedTotalLine = true
	case len(cfg.AccountRefs) > 0:
		for _, ref := range cfg.AccountRefs {
			acct := ctx.BalanceSheet.Account(ref)
			if acct == nil {
				missingRefs = append(missingRefs, ref)
				continue
			}
			accounts = append(accounts, scoped{ref, acct.Name, acct.Balance})
		}
	case cfg.AllowNameInference:
		usedNameMatch = true
		for _, acct := range ctx.BalanceSheet.Accounts {
			if cfg.AccountNameMatch != "" && nameContains(acct.Name, cfg.AccountNameMatch) {
				accounts = append(accounts, scoped{acct.AccountRef, acct.Name, acct.Balance})
				continue
			}
			if containsToken(acct.Name, r.token) {
				accounts = append(accounts, scoped{acct.AccountRef, acct.Name, acct.Balance})
			}
		}
	}

	if len(accounts) == 0 && len(missingRefs) == 0 {
		return r.Result(review.StatusNotApplicable,
			fmt.Sprintf("No %s accounts found as of %s.", r.noun, ctx.PeriodEnd))
	}

	if len(missingRefs) > 0 {
		res := r.Result(review.StatusNeedsReview, fmt.Sprintf(
			"Some configured %s accounts were missing from the Balance Sheet as of %s; cannot verify.",
			r.abbrev, ctx.PeriodEnd))
		for _, ref := range missingRefs {
			res.Details = append(res.Details, review.ResultDetail{
				Key:     ref,
				Message: "Configured account not found in balance sheet snapshot.",
				Values: map[string]any{
					"period_end": ctx.PeriodEnd.String(),
					"status":     review.StatusNeedsReview.String(),
				},
			})
		}
		res.HumanAction = fmt.Sprintf(
			"Confirm %s account refs and ensure the Balance Sheet snapshot is complete.", r.abbrev)
		return res
	}

	summaryItem := ctx.Evidence.First(cfg.SummaryEvidenceType)
	if summaryItem == nil || summaryItem.Amount == nil {
		res := r.Result(review.StatusNeedsReview, fmt.Sprintf(
			"Missing %s aging summary total for %s; cannot verify.", r.abbrev, ctx.PeriodEnd))
		if summaryItem != nil {
			res.EvidenceUsed = []review.EvidenceItem{*summaryItem}
		}
		res.HumanAction = fmt.Sprintf("Provide the %s aging summary total as of period end.", r.abbrev)
		return res
	}
	detailItem := ctx.Evidence.First(cfg.DetailEvidenceType)
	if detailItem == nil || detailItem.Amount == nil {
		res := r.Result(review.StatusNeedsReview, fmt.Sprintf(
			"Missing %s aging detail total for %s; cannot verify.", r.abbrev, ctx.PeriodEnd))
		if detailItem != nil {
			res.EvidenceUsed = []review.EvidenceItem{*detailItem}
		}
		res.HumanAction = fmt.Sprintf("Provide the %s aging detail total as of period end.", r.abbrev)
		return res
	}

	if cfg.RequireEvidenceAsOfDateMatchPeriodEnd {
		if !evidenceAsOfMatches(summaryItem, ctx.PeriodEnd) {
			res := r.Result(review.StatusNeedsReview, fmt.Sprintf(
				"%s aging summary as-of date is missing or does not match period end; cannot verify.", r.abbrev))
			res.EvidenceUsed = []review.EvidenceItem{*summaryItem}
			res.HumanAction = fmt.Sprintf("Provide the %s aging summary as of the period end date.", r.abbrev)
			return res
		}
		if !evidenceAsOfMatches(detailItem, ctx.PeriodEnd) {
			res := r.Result(review.StatusNeedsReview, fmt.Sprintf(
				"%s aging detail as-of date is missing or does not match period end; cannot verify.", r.abbrev))
			res.EvidenceUsed = []review.EvidenceItem{*detailItem}
			res.HumanAction = fmt.Sprintf("Provide the %s aging detail report as of the period end date.", r.abbrev)
			return res
		}
	}

	bsTotal := decimal.Zero
	for _, acct := range accounts {
		bsTotal = bsTotal.Add(acct.balance)
	}
	bsQ := cfg.Quantize(bsTotal)
	summaryQ := cfg.Quantize(*summaryItem.Amount)
	detailQ := cfg.Quantize(*detailItem.Amount)
	diffSummary := bsQ.Sub(summaryQ).Abs()
	diffDetail := bsQ.Sub(detailQ).Abs()

	status := review.StatusFail
	summary := fmt.Sprintf("%s aging totals do not reconcile to the Balance Sheet as of %s.", r.abbrev, ctx.PeriodEnd)
	if diffSummary.IsZero() && diffDetail.IsZero() {
		status = review.StatusPass
		summary = fmt.Sprintf("%s aging totals reconcile to the Balance Sheet as of %s.", r.abbrev, ctx.PeriodEnd)
	}

	res := r.Result(status, summary)
	for _, acct := range accounts {
		res.Details = append(res.Details, review.ResultDetail{
			Key:     acct.ref,
			Message: fmt.Sprintf("%s account included in Balance Sheet total.", r.abbrev),
			Values: map[string]any{
				"account_name":           acct.name,
				"period_end":             ctx.PeriodEnd.String(),
				"balance":                review.DecimalString(cfg.Quantize(acct.balance)),
				"inferred_by_name_match": usedNameMatch,
				"used_total_line":        usedTotalLine,
			},
		})
	}
	res.Details = append(res.Details, review.ResultDetail{
		Key:     strings.ToLower(r.abbrev) + "_aging_totals",
		Message: fmt.Sprintf("%s aging totals compared to Balance Sheet total.", r.abbrev),
		Values: map[string]any{
			"period_end":                  ctx.PeriodEnd.String(),
			"bs_total":                    review.DecimalString(bsQ),
			"summary_total":               review.DecimalString(summaryQ),
			"detail_total":                review.DecimalString(detailQ),
			"summary_difference":          review.DecimalString(diffSummary),
			"detail_difference":           review.DecimalString(diffDetail),
			"summary_evidence_type":       cfg.SummaryEvidenceType,
			"detail_evidence_type":        cfg.DetailEvidenceType,
			"summary_evidence_as_of_date": dateOrNil(summaryItem.AsOfDate),
			"detail_evidence_as_of_date":  dateOrNil(detailItem.AsOfDate),
			"status":                      status.String(),
		},
	})
	res.EvidenceUsed = []review.EvidenceItem{*summaryItem, *detailItem}
	if status != review.StatusPass {
		res.HumanAction = fmt.Sprintf(
			"Reconcile the %s aging summary/detail totals to the Balance Sheet and resolve discrepancies.", r.abbrev)
	}
	return res
}
