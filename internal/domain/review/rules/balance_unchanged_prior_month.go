package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/closebooks/backend/internal/domain/review"
)

// BalanceUnchangedConfig controls whether zero balances count as "unchanged".
type BalanceUnchangedConfig struct {
	review.RuleConfigBase
	IncludeZeroBalances bool `json:"include_zero_balances"`
}

func defaultBalanceUnchangedConfig() *BalanceUnchangedConfig {
	return &BalanceUnchangedConfig{
		RuleConfigBase: review.DefaultRuleConfigBase(),
	}
}

// BalanceUnchangedPriorMonth flags leaf accounts whose balance did not move
// versus the prior month snapshot. An unchanged balance is not wrong by
// itself, so every hit is a WARN for the reviewer to confirm.
type BalanceUnchangedPriorMonth struct {
	review.BaseRule
}

func NewBalanceUnchangedPriorMonth() *BalanceUnchangedPriorMonth {
	return &BalanceUnchangedPriorMonth{
		BaseRule: review.NewBaseRule(
			"BS-BALANCE-UNCHANGED-PRIOR-MONTH",
			"Balances unchanged vs prior month",
			"Significant balances should be reviewed monthly; unchanged balances can indicate missed updates.",
			[]string{"QBO (Balance Sheet)"},
		),
	}
}

func (r *BalanceUnchangedPriorMonth) ConfigPrototype() any { return defaultBalanceUnchangedConfig() }

func (r *BalanceUnchangedPriorMonth) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := defaultBalanceUnchangedConfig()
	if err := ctx.ClientConfig.Decode(r.ID(), cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}

	prior := ctx.PriorBalanceSheet
	if prior == nil || !prior.AsOfDate.Before(ctx.PeriodEnd) {
		return r.Result(review.StatusNotApplicable,
			fmt.Sprintf("Missing prior month Balance Sheet snapshot for %s.", ctx.PeriodEnd))
	}

	priorBalances := make(map[string]decimal.Decimal, len(prior.Accounts))
	for _, acct := range prior.Accounts {
		priorBalances[acct.AccountRef] = acct.Balance
	}

	var unchanged []review.ResultDetail
	for _, acct := range ctx.BalanceSheet.Accounts {
		if !acct.IsLeaf() {
			continue
		}
		priorBalance, ok := priorBalances[acct.AccountRef]
		if !ok {
			continue
		}
		currentQ := cfg.Quantize(acct.Balance)
		priorQ := cfg.Quantize(priorBalance)
		if !cfg.IncludeZeroBalances && currentQ.IsZero() {
			continue
		}
		if !currentQ.Equal(priorQ) {
			continue
		}
		unchanged = append(unchanged, review.ResultDetail{
			Key:     acct.AccountRef,
			Message: "SAME (unchanged vs prior month).",
			Values: map[string]any{
				"account_name":     acct.Name,
				"period_end":       ctx.PeriodEnd.String(),
				"prior_period_end": prior.AsOfDate.String(),
				"current_balance":  review.DecimalString(currentQ),
				"prior_balance":    review.DecimalString(priorQ),
				"status":           review.StatusWarn.String(),
				"flag":             "SAME",
			},
		})
	}

	if len(unchanged) == 0 {
		return r.Result(review.StatusPass,
			fmt.Sprintf("No unchanged balances detected versus %s.", prior.AsOfDate))
	}

	res := r.Result(review.StatusWarn,
		fmt.Sprintf("%d balance(s) unchanged vs %s.", len(unchanged), prior.AsOfDate))
	res.Details = unchanged
	res.HumanAction = "Confirm whether each unchanged balance is expected for the period."
	return res
}
