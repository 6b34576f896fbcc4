package rules

import (
	"fmt"

	"github.com/closebooks/backend/internal/domain/review"
)

// PettyCashMatchConfig pins the petty cash account and the evidence type
// carrying the counted amount.
type PettyCashMatchConfig struct {
	review.RuleConfigBase
	AccountRef   string `json:"account_ref"`
	AccountName  string `json:"account_name"`
	EvidenceType string `json:"evidence_type"`
}

func defaultPettyCashMatchConfig() *PettyCashMatchConfig {
	return &PettyCashMatchConfig{
		RuleConfigBase: review.DefaultRuleConfigBase(),
		EvidenceType:   "petty_cash_support",
	}
}

// PettyCashMatch ties the petty cash balance to the client's supporting
// document for the period.
type PettyCashMatch struct {
	review.BaseRule
}

func NewPettyCashMatch() *PettyCashMatch {
	return &PettyCashMatch{
		BaseRule: review.NewBaseRule(
			"BS-PETTY-CASH-MATCH",
			"Petty cash matches between QBO and client's supporting document",
			"Petty cash",
			[]string{"QBO", "Google Drive (supporting document)"},
		),
	}
}

func (r *PettyCashMatch) ConfigPrototype() any { return defaultPettyCashMatchConfig() }

func (r *PettyCashMatch) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := defaultPettyCashMatchConfig()
	if err := ctx.ClientConfig.Decode(r.ID(), cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}

	if cfg.AccountRef == "" {
		res := r.Result(review.StatusNeedsReview,
			fmt.Sprintf("Petty cash account not configured for period end %s.", ctx.PeriodEnd))
		res.HumanAction = "Configure the petty cash account ref for this client."
		return res
	}

	bsBalance := ctx.AccountBalance(cfg.AccountRef)
	if bsBalance == nil {
		res := r.Result(review.StatusNotApplicable,
			fmt.Sprintf("Petty cash account not found in balance sheet snapshot as of %s.", ctx.PeriodEnd))
		res.Details = []review.ResultDetail{{
			Key:     cfg.AccountRef,
			Message: "Account not found in balance sheet snapshot.",
			Values: map[string]any{
				"account_name": cfg.AccountName,
				"period_end":   ctx.PeriodEnd.String(),
				"status":       review.StatusNotApplicable.String(),
			},
		}}
		res.HumanAction = "Confirm whether petty cash exists in QBO and map the correct petty cash account."
		return res
	}

	item := ctx.Evidence.First(cfg.EvidenceType)
	if item == nil || item.Amount == nil {
		res := r.Result(review.StatusNeedsReview,
			fmt.Sprintf("Missing petty cash supporting document amount for %s; cannot verify.", ctx.PeriodEnd))
		if item != nil {
			res.EvidenceUsed = []review.EvidenceItem{*item}
		}
		res.HumanAction = "Request/attach petty cash supporting document (or extracted amount) for this period end."
		return res
	}

	bsQ := cfg.Quantize(*bsBalance)
	supportQ := cfg.Quantize(*item.Amount)
	diff := bsQ.Sub(supportQ).Abs()

	status := review.StatusPass
	summary := fmt.Sprintf("Petty cash matches exactly as of %s.", ctx.PeriodEnd)
	if !diff.IsZero() {
		status = review.StatusFail
		summary = fmt.Sprintf("Petty cash does not match support as of %s (diff %s).",
			ctx.PeriodEnd, review.DecimalString(diff))
	}

	res := r.Result(status, summary)
	res.Details = []review.ResultDetail{{
		Key:     cfg.AccountRef,
		Message: "Petty cash compared to supporting document.",
		Values: map[string]any{
			"account_name":   cfg.AccountName,
			"period_end":     ctx.PeriodEnd.String(),
			"bs_balance":     review.DecimalString(bsQ),
			"support_amount": review.DecimalString(supportQ),
			"difference":     review.DecimalString(diff),
			"status":         status.String(),
		},
	}}
	res.EvidenceUsed = []review.EvidenceItem{*item}
	if status != review.StatusPass {
		res.HumanAction = "Verify petty cash support and explain the variance; correct entries or update support."
	}
	return res
}
