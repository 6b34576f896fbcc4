package rules

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/closebooks/backend/internal/domain/review"
)

// WorkingPaperConfig scopes working-paper-backed accounts by name pattern and
// names the evidence type carrying the schedule balances.
type WorkingPaperConfig struct {
	review.RuleConfigBase
	NamePatterns                          []string `json:"name_patterns"`
	EvidenceType                          string   `json:"evidence_type"`
	RequireEvidenceAsOfDateMatchPeriodEnd bool     `json:"require_evidence_as_of_date_match_period_end"`
}

func defaultWorkingPaperConfig() *WorkingPaperConfig {
	return &WorkingPaperConfig{
		RuleConfigBase:                        review.DefaultRuleConfigBase(),
		NamePatterns:                          []string{"prepaid", "deferred revenue", "accrual"},
		EvidenceType:                          "working_paper_balance",
		RequireEvidenceAsOfDateMatchPeriodEnd: true,
	}
}

// WorkingPaperReconciles ties prepaid/deferred-revenue/accrual balances to the
// client's working paper schedules. Multiple in-scope accounts are matched to
// evidence items via the meta account_name_match hint.
type WorkingPaperReconciles struct {
	review.BaseRule
}

func NewWorkingPaperReconciles() *WorkingPaperReconciles {
	return &WorkingPaperReconciles{
		BaseRule: review.NewBaseRule(
			"BS-WORKING-PAPER-RECONCILES",
			"Working paper balances reconcile to Balance Sheet",
			"Prepayments/Deferred Revenue/Accruals",
			[]string{"Working papers (schedules)", "QBO (Balance Sheet)"},
		),
	}
}

func (r *WorkingPaperReconciles) ConfigPrototype() any { return defaultWorkingPaperConfig() }

func (r *WorkingPaperReconciles) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := defaultWorkingPaperConfig()
	if err := ctx.ClientConfig.Decode(r.ID(), cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}

	patterns := loweredPatterns(cfg.NamePatterns)

	type scoped struct {
		ref  string
		name string
		bal  decimal.Decimal
	}
	var inScope []scoped
	for _, acct := range ctx.BalanceSheet.Accounts {
		if acct.Name == "" || !nameMatchesAny(acct.Name, patterns) {
			continue
		}
		inScope = append(inScope, scoped{acct.AccountRef, acct.Name, acct.Balance})
	}
	if len(inScope) == 0 {
		return r.Result(review.StatusNotApplicable,
			fmt.Sprintf("No in-scope working paper accounts found as of %s.", ctx.PeriodEnd))
	}

	evidenceItems := ctx.Evidence.AllOf(cfg.EvidenceType)
	if len(evidenceItems) == 0 {
		res := r.Result(review.StatusNeedsReview,
			fmt.Sprintf("Missing working paper balances for %s; cannot verify.", ctx.PeriodEnd))
		res.HumanAction = "Provide the working paper balances as of period end."
		return res
	}
	if cfg.RequireEvidenceAsOfDateMatchPeriodEnd {
		for i := range evidenceItems {
			if !evidenceAsOfMatches(&evidenceItems[i], ctx.PeriodEnd) {
				res := r.Result(review.StatusNeedsReview,
					"Working paper as-of date is missing or does not match period end; cannot verify.")
				res.EvidenceUsed = []review.EvidenceItem{evidenceItems[i]}
				res.HumanAction = "Provide working paper balances as of the period end date."
				return res
			}
		}
	}

	if len(inScope) > 1 && len(evidenceItems) == 1 {
		res := r.Result(review.StatusNeedsReview,
			"Multiple in-scope accounts but only one working paper balance provided; cannot verify.")
		for _, acct := range inScope {
			res.Details = append(res.Details, review.ResultDetail{
				Key:     acct.ref,
				Message: "In-scope account without clear working paper match.",
				Values: map[string]any{
					"account_name": acct.name,
					"period_end":   ctx.PeriodEnd.String(),
					"status":       review.StatusNeedsReview.String(),
				},
			})
		}
		res.EvidenceUsed = evidenceItems
		res.HumanAction = "Provide account-specific working paper balances or map by account name."
		return res
	}

	var (
		details      []review.ResultDetail
		evidenceUsed []review.EvidenceItem
		failures     []string
	)
	for _, acct := range inScope {
		var matched *review.EvidenceItem
		if len(evidenceItems) == 1 {
			matched = &evidenceItems[0]
		} else {
			for i := range evidenceItems {
				if workingPaperAccountMatch(evidenceItems[i], acct.name) {
					matched = &evidenceItems[i]
					break
				}
			}
		}

		if matched == nil || matched.Amount == nil {
			res := r.Result(review.StatusNeedsReview,
				"Missing working paper balance for an in-scope account; cannot verify.")
			res.Details = []review.ResultDetail{{
				Key:     acct.ref,
				Message: "Working paper balance missing for account.",
				Values: map[string]any{
					"account_name": acct.name,
					"period_end":   ctx.PeriodEnd.String(),
					"status":       review.StatusNeedsReview.String(),
				},
			}}
			res.EvidenceUsed = evidenceItems
			res.HumanAction = "Provide a working paper balance for the in-scope account."
			return res
		}

		evidenceUsed = append(evidenceUsed, *matched)
		bsQ := cfg.Quantize(acct.bal)
		paperQ := cfg.Quantize(*matched.Amount)
		diff := bsQ.Sub(paperQ).Abs()

		status := review.StatusPass
		if !diff.IsZero() {
			status = review.StatusFail
			failures = append(failures, acct.name)
		}

		var uri any
		if matched.URI != "" {
			uri = matched.URI
		}
		details = append(details, review.ResultDetail{
			Key:     acct.ref,
			Message: "Working paper balance compared to Balance Sheet.",
			Values: map[string]any{
				"account_name":          acct.name,
				"period_end":            ctx.PeriodEnd.String(),
				"bs_balance":            review.DecimalString(bsQ),
				"working_paper_balance": review.DecimalString(paperQ),
				"difference":            review.DecimalString(diff),
				"evidence_type":         cfg.EvidenceType,
				"evidence_as_of_date":   dateOrNil(matched.AsOfDate),
				"working_paper_uri":     uri,
				"status":                status.String(),
			},
		})
	}

	status := review.StatusPass
	summary := fmt.Sprintf("Working paper balances reconcile to Balance Sheet as of %s.", ctx.PeriodEnd)
	if len(failures) > 0 {
		status = review.StatusFail
		summary = fmt.Sprintf("Working paper balances do not match Balance Sheet for %d account(s).", len(failures))
	}

	res := r.Result(status, summary)
	res.Details = details
	res.EvidenceUsed = evidenceUsed
	if status != review.StatusPass {
		res.HumanAction = "Reconcile working paper balances to the Balance Sheet and document adjustments."
	}
	return res
}

// workingPaperAccountMatch reports whether the evidence item's
// account_name_match hint appears in the account name.
func workingPaperAccountMatch(item review.EvidenceItem, accountName string) bool {
	match := strings.TrimSpace(review.MetaString(item.MetaValue("account_name_match")))
	if match == "" {
		return false
	}
	return strings.Contains(strings.ToLower(accountName), strings.ToLower(match))
}
