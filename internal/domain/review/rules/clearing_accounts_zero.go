package rules

import (
	"fmt"

	"github.com/closebooks/backend/internal/domain/review"
)

// ClearingAccountsZeroConfig extends the zero-balance payload with the
// types an inferred clearing account must carry to count as sales-side.
type ClearingAccountsZeroConfig struct {
	ZeroBalanceConfig
	CurrentAssetTypes []string `json:"current_asset_types"`
}

func defaultClearingAccountsZeroConfig() *ClearingAccountsZeroConfig {
	return &ClearingAccountsZeroConfig{
		ZeroBalanceConfig: defaultZeroBalanceConfig(),
		CurrentAssetTypes: defaultCurrentAssetTypes(),
	}
}

// ClearingAccountsZero asserts clearing accounts net to zero at period end,
// within a configurable tolerance.
type ClearingAccountsZero struct {
	review.BaseRule
}

func NewClearingAccountsZero() *ClearingAccountsZero {
	return &ClearingAccountsZero{
		BaseRule: review.NewBaseRule(
			"BS-CLEARING-ACCOUNTS-ZERO",
			"Clearing accounts should be zero at period end",
			"Clearing accounts (a $0 balance)",
			[]string{"QBO"},
		),
	}
}

func (r *ClearingAccountsZero) ConfigPrototype() any { return defaultClearingAccountsZeroConfig() }

func (r *ClearingAccountsZero) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := defaultClearingAccountsZeroConfig()
	if err := ctx.ClientConfig.Decode(r.ID(), cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}

	var scoped []review.AccountThresholdOverride
	var gapStatuses []review.RuleStatus
	var gapDetails []review.ResultDetail
	usedInference := false
	if len(cfg.Accounts) > 0 {
		scoped = cfg.Accounts
	} else if cfg.AllowNameInference {
		usedInference = true
		for _, acct := range ctx.BalanceSheet.Accounts {
			if !acct.IsLeaf() || !nameContains(acct.Name, "clearing") {
				continue
			}
			if acct.Type == "" {
				gapStatuses = append(gapStatuses, cfg.MissingDataPolicy)
				gapDetails = append(gapDetails, review.ResultDetail{
					Key:     acct.AccountRef,
					Message: "Clearing account missing account type; cannot classify as a current asset.",
					Values: map[string]any{
						"account_name": acct.Name,
						"period_end":   ctx.PeriodEnd.String(),
						"status":       cfg.MissingDataPolicy.String(),
					},
				})
				continue
			}
			if !isCurrentAssetType(acct.Type, cfg.CurrentAssetTypes) {
				continue
			}
			scoped = append(scoped, review.AccountThresholdOverride{
				AccountRef:  acct.AccountRef,
				AccountName: acct.Name,
			})
		}
	}

	if len(scoped) == 0 && len(gapDetails) == 0 {
		res := r.Result(review.StatusNeedsReview,
			fmt.Sprintf("No clearing accounts configured for period end %s.", ctx.PeriodEnd))
		res.HumanAction = "Configure clearing account refs for this client and set acceptable variances per account (recommended)."
		return res
	}

	statuses, details, hasAnyThreshold := evaluateZeroBalanceAccounts(
		ctx, &cfg.ZeroBalanceConfig, scoped, "Clearing account balance evaluated.", &usedInference)
	statuses = append(gapStatuses, statuses...)
	details = append(gapDetails, details...)

	overall := review.WorstStatus(statuses...)
	exemplar := exemplarDetail(details, overall)

	var summary string
	switch {
	case overall == review.StatusPass:
		summary = fmt.Sprintf("All %d clearing account(s) are exactly zero as of %s.", len(scoped), ctx.PeriodEnd)
	case overall == review.StatusWarn && exemplar != nil:
		summary = fmt.Sprintf("Clearing account '%s' is non-zero (%s) as of %s (%s allowed); verify.",
			exemplar.Values["account_name"], exemplar.Values["balance"], ctx.PeriodEnd, exemplar.Values["allowed_variance"])
	case overall == review.StatusFail && exemplar != nil:
		summary = fmt.Sprintf("Clearing account '%s' exceeds allowed variance (%s vs %s) as of %s.",
			exemplar.Values["account_name"], exemplar.Values["balance"], exemplar.Values["allowed_variance"], ctx.PeriodEnd)
	case overall == review.StatusNeedsReview:
		summary = fmt.Sprintf("Missing data prevented evaluation for one or more accounts as of %s.", ctx.PeriodEnd)
	default:
		summary = "Not applicable."
	}

	res := r.Result(overall, summary)
	res.Details = details
	if overall == review.StatusWarn || overall == review.StatusFail || overall == review.StatusNeedsReview {
		action := "Verify clearing account activity near period end and explain any non-zero balances; adjust tolerances per account if warranted."
		if !hasAnyThreshold {
			action += " Note: no acceptable variance was configured (TBD); set per-account thresholds (floor and/or % of revenue)."
		}
		if usedInference {
			action += " Note: accounts were inferred by name match ('clearing')."
		}
		res.HumanAction = action
	}
	return res
}
