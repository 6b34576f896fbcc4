package rules

import (
	"fmt"

	"github.com/closebooks/backend/internal/domain/review"
)

// PlootoInstantBalanceDisclosure surfaces any Plooto Instant balance held
// outside the bank at period end. Pure disclosure: a non-zero balance is a
// WARN for the reviewer to mention to the client, never a FAIL, and no
// supporting evidence is required.
type PlootoInstantBalanceDisclosure struct {
	review.BaseRule
}

func NewPlootoInstantBalanceDisclosure() *PlootoInstantBalanceDisclosure {
	return &PlootoInstantBalanceDisclosure{
		BaseRule: review.NewBaseRule(
			"BS-PLOOTO-INSTANT-BALANCE-DISCLOSURE",
			"Plooto Instant live balance identified",
			"Plooto",
			[]string{"QBO (Balance Sheet)"},
		),
	}
}

func (r *PlootoInstantBalanceDisclosure) ConfigPrototype() any {
	cfg := defaultAccountLookupConfig("Plooto Instant")
	return &cfg
}

func (r *PlootoInstantBalanceDisclosure) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := defaultAccountLookupConfig("Plooto Instant")
	if err := ctx.ClientConfig.Decode(r.ID(), &cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}

	var scoped []scopedAccount
	usedInference := false
	if cfg.AccountRef != "" {
		bal := ctx.AccountBalance(cfg.AccountRef)
		if bal == nil {
			res := r.Result(cfg.MissingDataPolicy,
				fmt.Sprintf("Plooto Instant account not found in Balance Sheet snapshot as of %s; cannot verify.", ctx.PeriodEnd))
			res.Details = []review.ResultDetail{{
				Key:     cfg.AccountRef,
				Message: "Account not found in balance sheet snapshot.",
				Values: map[string]any{
					"account_name": cfg.AccountName,
					"period_end":   ctx.PeriodEnd.String(),
					"status":       cfg.MissingDataPolicy.String(),
				},
			}}
			if cfg.MissingDataPolicy == review.StatusNeedsReview {
				res.HumanAction = "Confirm whether Plooto Instant exists in QBO and map the correct Balance Sheet account."
			}
			return res
		}
		scoped = []scopedAccount{{Ref: cfg.AccountRef, Name: cfg.AccountName, Balance: *bal}}
	} else if cfg.AllowNameInference {
		usedInference = true
		for _, acct := range ctx.BalanceSheet.Accounts {
			if acct.IsLeaf() && nameContains(acct.Name, cfg.AccountNameMatch) {
				scoped = append(scoped, scopedAccount{Ref: acct.AccountRef, Name: acct.Name, Balance: acct.Balance})
			}
		}
	}

	if len(scoped) == 0 {
		res := r.Result(cfg.MissingDataPolicy,
			fmt.Sprintf("No Plooto Instant account found as of %s.", ctx.PeriodEnd))
		if cfg.MissingDataPolicy == review.StatusNeedsReview {
			res.HumanAction = "Configure the QBO Balance Sheet account ref for Plooto Instant, or set missing_data_policy to NOT_APPLICABLE."
		}
		return res
	}

	overall := review.StatusPass
	var details []review.ResultDetail
	for _, acct := range scoped {
		balQ := cfg.Quantize(acct.Balance)
		status := review.StatusPass
		if !balQ.IsZero() {
			status = review.StatusWarn
			overall = review.StatusWarn
		}
		details = append(details, review.ResultDetail{
			Key:     acct.Ref,
			Message: "Plooto Instant balance evaluated.",
			Values: map[string]any{
				"account_name":           acct.Name,
				"period_end":             ctx.PeriodEnd.String(),
				"balance":                review.DecimalString(balQ),
				"status":                 status.String(),
				"inferred_by_name_match": usedInference,
			},
		})
	}

	var summary string
	if overall == review.StatusPass {
		summary = fmt.Sprintf("Plooto Instant balance is zero as of %s.", ctx.PeriodEnd)
	} else if exemplar := exemplarDetail(details, review.StatusWarn); exemplar != nil {
		summary = fmt.Sprintf("Plooto Instant holds a balance of %s as of %s; disclose to the client.",
			exemplar.Values["balance"], ctx.PeriodEnd)
	} else {
		summary = fmt.Sprintf("Plooto Instant holds a non-zero balance as of %s; disclose to the client.", ctx.PeriodEnd)
	}

	res := r.Result(overall, summary)
	res.Details = details
	if overall == review.StatusWarn {
		res.HumanAction = "Disclose the Plooto Instant balance to the client and confirm the expected payout timing."
	}
	return res
}
