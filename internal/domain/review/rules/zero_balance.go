package rules

import (
	"github.com/closebooks/backend/internal/domain/review"
)

// ZeroBalanceConfig is the shared payload for rules asserting an account
// nets to zero at period end, with an optional tolerance ladder.
type ZeroBalanceConfig struct {
	review.RuleConfigBase
	Accounts         []review.AccountThresholdOverride `json:"accounts" validate:"dive"`
	DefaultThreshold review.VarianceThreshold          `json:"default_threshold"`
	// AllowNameInference scopes accounts by name substring when no explicit
	// list is configured. Explicit config always wins over inference.
	AllowNameInference bool `json:"allow_name_inference"`
	// UnconfiguredThresholdPolicy is the status for a non-zero balance when
	// neither a floor nor a revenue percentage is configured.
	UnconfiguredThresholdPolicy review.RuleStatus `json:"unconfigured_threshold_policy" validate:"oneof=PASS WARN FAIL NEEDS_REVIEW NOT_APPLICABLE"`
}

func defaultZeroBalanceConfig() ZeroBalanceConfig {
	return ZeroBalanceConfig{
		RuleConfigBase:              review.DefaultRuleConfigBase(),
		AllowNameInference:          true,
		UnconfiguredThresholdPolicy: review.StatusNeedsReview,
	}
}

// evaluateZeroBalanceAccounts runs the shared tolerance ladder over the
// scoped accounts: zero passes, a balance inside the allowed variance
// warns, anything beyond fails. When inference is non-nil its value is
// recorded on every evaluated account's detail.
func evaluateZeroBalanceAccounts(
	ctx review.RuleContext,
	cfg *ZeroBalanceConfig,
	scoped []review.AccountThresholdOverride,
	message string,
	inference *bool,
) (statuses []review.RuleStatus, details []review.ResultDetail, hasAnyThreshold bool) {
	revenue := ctx.RevenueTotal()

	defaultConfigured := cfg.DefaultThreshold.IsConfigured()
	hasAnyThreshold = defaultConfigured
	for _, acct := range scoped {
		if acct.Threshold != nil {
			hasAnyThreshold = true
		}
	}

	for _, acct := range scoped {
		bal := ctx.AccountBalance(acct.AccountRef)
		if bal == nil {
			statuses = append(statuses, cfg.MissingDataPolicy)
			details = append(details, review.ResultDetail{
				Key:     acct.AccountRef,
				Message: "Account not found in balance sheet snapshot.",
				Values: map[string]any{
					"account_name": acct.AccountName,
					"period_end":   ctx.PeriodEnd.String(),
					"status":       cfg.MissingDataPolicy.String(),
				},
			})
			continue
		}

		threshold := cfg.DefaultThreshold
		if acct.Threshold != nil {
			threshold = *acct.Threshold
		}
		thresholdConfigured := defaultConfigured || acct.Threshold != nil
		allowed := cfg.Quantize(ctx.AllowedVariance(threshold))
		balQ := cfg.Quantize(*bal)
		absBal := balQ.Abs()

		var status review.RuleStatus
		switch {
		case absBal.IsZero():
			status = review.StatusPass
		case !thresholdConfigured:
			status = cfg.UnconfiguredThresholdPolicy
		case absBal.LessThanOrEqual(allowed):
			status = review.StatusWarn
		default:
			status = review.StatusFail
		}

		values := map[string]any{
			"account_name":             acct.AccountName,
			"period_end":               ctx.PeriodEnd.String(),
			"balance":                  review.DecimalString(balQ),
			"abs_balance":              review.DecimalString(absBal),
			"allowed_variance":         review.DecimalString(allowed),
			"revenue_total":            stringOrNil(revenue),
			"threshold_floor_amount":   review.DecimalString(threshold.FloorAmount),
			"threshold_pct_of_revenue": pctString(threshold.PctOfRevenue),
			"status":                   status.String(),
			"threshold_configured":     thresholdConfigured,
		}
		if inference != nil {
			values["inferred_by_name_match"] = *inference
		}

		statuses = append(statuses, status)
		details = append(details, review.ResultDetail{
			Key:     acct.AccountRef,
			Message: message,
			Values:  values,
		})
	}
	return statuses, details, hasAnyThreshold
}
