package rules

import (
	"fmt"

	"github.com/closebooks/backend/internal/domain/review"
)

// BalanceMatchConfig locates a single balance-sheet account and names the
// external evidence its balance must match exactly.
type BalanceMatchConfig struct {
	AccountLookupConfig
	EvidenceType                          string `json:"evidence_type"`
	RequireEvidenceAsOfDateMatchPeriodEnd bool   `json:"require_evidence_as_of_date_match_period_end"`
}

func defaultBalanceMatchConfig(nameMatch, evidenceType string) *BalanceMatchConfig {
	return &BalanceMatchConfig{
		AccountLookupConfig:                   defaultAccountLookupConfig(nameMatch),
		EvidenceType:                          evidenceType,
		RequireEvidenceAsOfDateMatchPeriodEnd: true,
	}
}

// balanceMatch ties one balance-sheet account to an external statement or
// schedule amount. The loan and investment rules share this engine.
type balanceMatch struct {
	review.BaseRule
	noun           string // "loan" / "investment"
	evidenceNoun   string // "loan schedule" / "investment statement"
	shortEvidence  string // "schedule" / "statement"
	balanceKey     string // detail key for the evidence amount
	compareMessage string
	missingMessage string
	asOfAction     string
	failAction     string
	defaultConfig  func() *BalanceMatchConfig
}

func (r *balanceMatch) ConfigPrototype() any { return r.defaultConfig() }

func (r *balanceMatch) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := r.defaultConfig()
	if err := ctx.ClientConfig.Decode(r.ID(), cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}

	var (
		accounts      []scopedAccount
		usedInference bool
	)
	switch {
	case cfg.AccountRef != "":
		bal := ctx.AccountBalance(cfg.AccountRef)
		if bal == nil {
			res := r.Result(review.StatusNotApplicable, fmt.Sprintf(
				"%s account not found in Balance Sheet snapshot as of %s.", upperFirst(r.noun), ctx.PeriodEnd))
			res.Details = []review.ResultDetail{{
				Key:     cfg.AccountRef,
				Message: "Account not found in balance sheet snapshot.",
				Values: map[string]any{
					"account_name": cfg.AccountName,
					"period_end":   ctx.PeriodEnd.String(),
					"status":       review.StatusNotApplicable.String(),
				},
			}}
			res.HumanAction = fmt.Sprintf(
				"Confirm whether the %s exists in QBO and map the correct %s account.", r.noun, r.noun)
			return res
		}
		accounts = []scopedAccount{{Ref: cfg.AccountRef, Name: cfg.AccountName, Balance: *bal}}
	case cfg.AllowNameInference && cfg.AccountNameMatch != "":
		usedInference = true
		for _, acct := range ctx.BalanceSheet.Accounts {
			if acct.IsLeaf() && nameContains(acct.Name, cfg.AccountNameMatch) {
				accounts = append(accounts, scopedAccount{Ref: acct.AccountRef, Name: acct.Name, Balance: acct.Balance})
			}
		}
	}

	if len(accounts) == 0 {
		return r.Result(review.StatusNotApplicable,
			fmt.Sprintf("No %s account found as of %s.", r.noun, ctx.PeriodEnd))
	}
	if len(accounts) > 1 {
		res := r.Result(review.StatusNeedsReview,
			fmt.Sprintf("Multiple %s accounts matched for %s; cannot verify.", r.noun, ctx.PeriodEnd))
		for _, acct := range accounts {
			res.Details = append(res.Details, review.ResultDetail{
				Key:     acct.Ref,
				Message: fmt.Sprintf("Multiple %s accounts matched by name inference.", r.noun),
				Values: map[string]any{
					"account_name":           acct.Name,
					"period_end":             ctx.PeriodEnd.String(),
					"status":                 review.StatusNeedsReview.String(),
					"inferred_by_name_match": true,
				},
			})
		}
		res.HumanAction = fmt.Sprintf("Configure a specific %s account ref to evaluate this rule.", r.noun)
		return res
	}

	account := accounts[0]
	bsQ := cfg.Quantize(account.Balance)

	item := ctx.Evidence.First(cfg.EvidenceType)
	if item == nil || item.Amount == nil {
		res := r.Result(review.StatusNeedsReview,
			fmt.Sprintf("Missing %s balance for %s; cannot verify.", r.evidenceNoun, ctx.PeriodEnd))
		res.Details = []review.ResultDetail{{
			Key:     account.Ref,
			Message: r.missingMessage,
			Values: map[string]any{
				"account_name":           account.Name,
				"period_end":             ctx.PeriodEnd.String(),
				"bs_balance":             review.DecimalString(bsQ),
				"evidence_type":          cfg.EvidenceType,
				"status":                 review.StatusNeedsReview.String(),
				"inferred_by_name_match": usedInference,
				"missing_evidence":       true,
			},
		}}
		if item != nil {
			res.EvidenceUsed = []review.EvidenceItem{*item}
		}
		res.HumanAction = fmt.Sprintf(
			"Request/attach the %s (or extracted balance) as of period end.", r.evidenceNoun)
		return res
	}

	if cfg.RequireEvidenceAsOfDateMatchPeriodEnd && !evidenceAsOfMatches(item, ctx.PeriodEnd) {
		res := r.Result(review.StatusNeedsReview, fmt.Sprintf(
			"%s as-of date is missing or does not match period end; cannot verify.", upperFirst(r.evidenceNoun)))
		res.EvidenceUsed = []review.EvidenceItem{*item}
		res.HumanAction = r.asOfAction
		return res
	}

	evidenceQ := cfg.Quantize(*item.Amount)
	diff := bsQ.Sub(evidenceQ).Abs()

	status := review.StatusPass
	summary := fmt.Sprintf("%s balance matches the %s as of %s.", upperFirst(r.noun), r.shortEvidence, ctx.PeriodEnd)
	if !diff.IsZero() {
		status = review.StatusFail
		summary = fmt.Sprintf("%s balance does not match the %s as of %s (diff %s).",
			upperFirst(r.noun), r.shortEvidence, ctx.PeriodEnd, review.DecimalString(diff))
	}

	res := r.Result(status, summary)
	res.Details = []review.ResultDetail{{
		Key:     account.Ref,
		Message: r.compareMessage,
		Values: map[string]any{
			"account_name":           account.Name,
			"period_end":             ctx.PeriodEnd.String(),
			"bs_balance":             review.DecimalString(bsQ),
			r.balanceKey:             review.DecimalString(evidenceQ),
			"difference":             review.DecimalString(diff),
			"evidence_type":          cfg.EvidenceType,
			"evidence_as_of_date":    dateOrNil(item.AsOfDate),
			"status":                 status.String(),
			"inferred_by_name_match": usedInference,
		},
	}}
	res.EvidenceUsed = []review.EvidenceItem{*item}
	if status != review.StatusPass {
		res.HumanAction = r.failAction
	}
	return res
}
