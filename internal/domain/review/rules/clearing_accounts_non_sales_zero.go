package rules

import (
	"fmt"

	"github.com/closebooks/backend/internal/domain/review"
)

// NonSalesClearingConfig scopes clearing accounts by name pattern and
// classifies them by balance-sheet type.
type NonSalesClearingConfig struct {
	review.RuleConfigBase
	NamePatterns      []string `json:"name_patterns"`
	CurrentAssetTypes []string `json:"current_asset_types"`
}

func defaultNonSalesClearingConfig() *NonSalesClearingConfig {
	return &NonSalesClearingConfig{
		RuleConfigBase:    review.DefaultRuleConfigBase(),
		NamePatterns:      []string{"clearing"},
		CurrentAssetTypes: defaultCurrentAssetTypes(),
	}
}

// ClearingAccountsNonSalesZero asserts clearing accounts outside the
// sales flow (payroll, payments processors posted as liabilities, ...)
// are exactly zero at period end. No tolerance applies.
type ClearingAccountsNonSalesZero struct {
	review.BaseRule
}

func NewClearingAccountsNonSalesZero() *ClearingAccountsNonSalesZero {
	return &ClearingAccountsNonSalesZero{
		BaseRule: review.NewBaseRule(
			"BS-CLEARING-ACCOUNTS-NON-SALES-ZERO",
			"Non-sales clearing accounts should be zero at period end",
			"Clearing accounts (non-sales)",
			[]string{"QBO"},
		),
	}
}

func (r *ClearingAccountsNonSalesZero) ConfigPrototype() any { return defaultNonSalesClearingConfig() }

func (r *ClearingAccountsNonSalesZero) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := defaultNonSalesClearingConfig()
	if err := ctx.ClientConfig.Decode(r.ID(), cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}

	var clearing []review.AccountBalance
	for _, acct := range ctx.BalanceSheet.Accounts {
		if acct.AccountRef != "" && acct.IsLeaf() && acct.Name != "" && nameMatchesAny(acct.Name, cfg.NamePatterns) {
			clearing = append(clearing, acct)
		}
	}
	if len(clearing) == 0 {
		return r.Result(review.StatusNotApplicable, "No clearing accounts found on Balance Sheet.")
	}

	var statuses []review.RuleStatus
	var details []review.ResultDetail
	var nonSales []review.AccountBalance
	for _, acct := range clearing {
		if acct.Type == "" {
			statuses = append(statuses, cfg.MissingDataPolicy)
			details = append(details, review.ResultDetail{
				Key:     acct.AccountRef,
				Message: "Clearing account missing account type; cannot classify sales vs non-sales.",
				Values: map[string]any{
					"account_name": acct.Name,
					"period_end":   ctx.PeriodEnd.String(),
					"status":       cfg.MissingDataPolicy.String(),
				},
			})
			continue
		}
		if isCurrentAssetType(acct.Type, cfg.CurrentAssetTypes) {
			continue
		}
		nonSales = append(nonSales, acct)
	}

	if len(nonSales) == 0 {
		overall := review.WorstStatus(statuses...)
		summary := "No non-sales clearing accounts found on Balance Sheet."
		if overall != review.StatusNotApplicable {
			summary = "Missing data prevented evaluation of non-sales clearing accounts."
		}
		res := r.Result(overall, summary)
		res.Details = details
		if overall == cfg.MissingDataPolicy && overall != review.StatusNotApplicable {
			res.HumanAction = "Provide account types for clearing accounts to classify sales vs non-sales."
		}
		return res
	}

	for _, acct := range nonSales {
		balQ := cfg.Quantize(acct.Balance)
		status := review.StatusPass
		if !balQ.IsZero() {
			status = review.StatusFail
		}
		statuses = append(statuses, status)
		details = append(details, review.ResultDetail{
			Key:     acct.AccountRef,
			Message: "Non-sales clearing account balance evaluated.",
			Values: map[string]any{
				"account_name": acct.Name,
				"account_type": acct.Type,
				"period_end":   ctx.PeriodEnd.String(),
				"balance":      review.DecimalString(balQ),
				"status":       status.String(),
			},
		})
	}

	overall := review.WorstStatus(statuses...)
	var summary string
	switch overall {
	case review.StatusPass:
		summary = fmt.Sprintf("All non-sales clearing accounts are zero as of %s.", ctx.PeriodEnd)
	case review.StatusFail:
		summary = fmt.Sprintf("One or more non-sales clearing accounts are non-zero as of %s.", ctx.PeriodEnd)
	case review.StatusNeedsReview:
		summary = fmt.Sprintf("Missing data prevented evaluation as of %s.", ctx.PeriodEnd)
	default:
		summary = "Not applicable."
	}

	res := r.Result(overall, summary)
	res.Details = details
	if overall == review.StatusFail || overall == review.StatusNeedsReview {
		res.HumanAction = "Investigate non-sales clearing account balances and clear them to zero at period end."
	}
	return res
}
