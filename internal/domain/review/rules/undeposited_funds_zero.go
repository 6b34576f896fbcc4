package rules

import (
	"fmt"

	"github.com/closebooks/backend/internal/domain/review"
)

// UndepositedFundsZero asserts the Undeposited Funds account nets to zero
// at period end, within a configurable tolerance.
type UndepositedFundsZero struct {
	review.BaseRule
}

func NewUndepositedFundsZero() *UndepositedFundsZero {
	return &UndepositedFundsZero{
		BaseRule: review.NewBaseRule(
			"BS-UNDEPOSITED-FUNDS-ZERO",
			"Undeposited Funds should be zero at period end",
			"Bank reconciliations",
			[]string{"QBO"},
		),
	}
}

func (r *UndepositedFundsZero) ConfigPrototype() any {
	cfg := defaultZeroBalanceConfig()
	return &cfg
}

func (r *UndepositedFundsZero) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := defaultZeroBalanceConfig()
	if err := ctx.ClientConfig.Decode(r.ID(), &cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}

	var scoped []review.AccountThresholdOverride
	usedInference := false
	if len(cfg.Accounts) > 0 {
		scoped = cfg.Accounts
	} else if cfg.AllowNameInference {
		usedInference = true
		for _, acct := range ctx.BalanceSheet.Accounts {
			if acct.IsLeaf() && nameContains(acct.Name, "undeposited") {
				scoped = append(scoped, review.AccountThresholdOverride{
					AccountRef:  acct.AccountRef,
					AccountName: acct.Name,
				})
			}
		}
	}

	if len(scoped) == 0 {
		res := r.Result(review.StatusNeedsReview,
			fmt.Sprintf("Undeposited Funds account not configured for period end %s.", ctx.PeriodEnd))
		res.HumanAction = "Configure the Undeposited Funds account ref for this client."
		return res
	}

	statuses, details, hasAnyThreshold := evaluateZeroBalanceAccounts(
		ctx, &cfg, scoped, "Undeposited Funds balance evaluated.", nil)

	overall := review.WorstStatus(statuses...)
	exemplar := exemplarDetail(details, overall)

	var summary string
	switch {
	case overall == review.StatusPass:
		summary = fmt.Sprintf("Undeposited Funds is exactly zero as of %s.", ctx.PeriodEnd)
	case overall == review.StatusWarn && exemplar != nil:
		summary = fmt.Sprintf("Undeposited Funds is non-zero (%s) as of %s (%s allowed); verify.",
			exemplar.Values["balance"], ctx.PeriodEnd, exemplar.Values["allowed_variance"])
	case overall == review.StatusFail && exemplar != nil:
		summary = fmt.Sprintf("Undeposited Funds exceeds allowed variance (%s vs %s) as of %s.",
			exemplar.Values["balance"], exemplar.Values["allowed_variance"], ctx.PeriodEnd)
	case overall == review.StatusNeedsReview:
		summary = fmt.Sprintf("Missing data prevented evaluation as of %s.", ctx.PeriodEnd)
	default:
		summary = "Not applicable."
	}

	res := r.Result(overall, summary)
	res.Details = details
	if overall == review.StatusWarn || overall == review.StatusFail || overall == review.StatusNeedsReview {
		action := "Verify undeposited items, deposit timing, and explain any non-zero balance at period end; adjust tolerance if warranted."
		if !hasAnyThreshold {
			action += " Note: no acceptable variance was configured (TBD); set thresholds (floor and/or % of revenue)."
		}
		if usedInference {
			action += " Note: accounts were inferred by name match ('undeposited')."
		}
		res.HumanAction = action
	}
	return res
}
