package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/closebooks/backend/internal/domain/review"
)

// AccountLookupConfig locates a single named account: an explicit ref wins,
// otherwise a case-insensitive name substring when inference is allowed.
type AccountLookupConfig struct {
	review.RuleConfigBase
	AccountRef         string `json:"account_ref"`
	AccountName        string `json:"account_name"`
	AccountNameMatch   string `json:"account_name_match"`
	AllowNameInference bool   `json:"allow_name_inference"`
}

func defaultAccountLookupConfig(nameMatch string) AccountLookupConfig {
	return AccountLookupConfig{
		RuleConfigBase:     review.DefaultRuleConfigBase(),
		AccountNameMatch:   nameMatch,
		AllowNameInference: true,
	}
}

// scopedAccount is one balance-sheet account picked by an AccountLookupConfig
type scopedAccount struct {
	Ref     string
	Name    string
	Balance decimal.Decimal
}

// PlootoClearingZero asserts the Plooto Clearing account is exactly zero at
// period end. Anything non-zero means payments are stuck mid-flight.
type PlootoClearingZero struct {
	review.BaseRule
}

func NewPlootoClearingZero() *PlootoClearingZero {
	return &PlootoClearingZero{
		BaseRule: review.NewBaseRule(
			"BS-PLOOTO-CLEARING-ZERO",
			"Plooto Clearing should be zero at period end",
			"Plooto",
			[]string{"QBO (Balance Sheet)"},
		),
	}
}

func (r *PlootoClearingZero) ConfigPrototype() any {
	cfg := defaultAccountLookupConfig("Plooto Clearing")
	return &cfg
}

func (r *PlootoClearingZero) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := defaultAccountLookupConfig("Plooto Clearing")
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
				fmt.Sprintf("Plooto Clearing account not found in Balance Sheet snapshot as of %s; cannot verify.", ctx.PeriodEnd))
			res.Details = []review.ResultDetail{{
				Key:     cfg.AccountRef,
				Message: "Account not found in balance sheet snapshot.",
				Values: map[string]any{
					"account_name": cfg.AccountName,
					"period_end":   ctx.PeriodEnd.String(),
					"status":       cfg.MissingDataPolicy.String(),
				},
			}}
			res.HumanAction = "Confirm whether Plooto Clearing exists in QBO and map the correct Balance Sheet account."
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
		return r.Result(review.StatusNotApplicable,
			fmt.Sprintf("No Plooto Clearing account found as of %s.", ctx.PeriodEnd))
	}

	overall := review.StatusPass
	var details []review.ResultDetail
	for _, acct := range scoped {
		balQ := cfg.Quantize(acct.Balance)
		status := review.StatusPass
		if !balQ.IsZero() {
			status = review.StatusFail
			overall = review.StatusFail
		}
		details = append(details, review.ResultDetail{
			Key:     acct.Ref,
			Message: "Plooto Clearing balance evaluated.",
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
		summary = fmt.Sprintf("Plooto Clearing balance is zero as of %s.", ctx.PeriodEnd)
	} else if exemplar := exemplarDetail(details, review.StatusFail); exemplar != nil {
		summary = fmt.Sprintf("Plooto Clearing balance is non-zero as of %s (balance %s).",
			ctx.PeriodEnd, exemplar.Values["balance"])
	} else {
		summary = fmt.Sprintf("Plooto Clearing balance is non-zero as of %s.", ctx.PeriodEnd)
	}

	res := r.Result(overall, summary)
	res.Details = details
	if overall != review.StatusPass {
		res.HumanAction = "Investigate Plooto Clearing activity near period end and clear any non-zero balance."
	}
	return res
}
