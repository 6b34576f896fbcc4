package rules

import (
	"fmt"

	"github.com/closebooks/backend/internal/domain/review"
)

// NegativeOpenItemsConfig names the AP/AR detail-row extracts scanned for
// negative open balances.
type NegativeOpenItemsConfig struct {
	review.RuleConfigBase
	APDetailRowsEvidenceType              string `json:"ap_detail_rows_evidence_type"`
	ARDetailRowsEvidenceType              string `json:"ar_detail_rows_evidence_type"`
	RequireEvidenceAsOfDateMatchPeriodEnd bool   `json:"require_evidence_as_of_date_match_period_end"`
}

func defaultNegativeOpenItemsConfig() *NegativeOpenItemsConfig {
	return &NegativeOpenItemsConfig{
		RuleConfigBase:                        review.DefaultRuleConfigBase(),
		APDetailRowsEvidenceType:              "ap_aging_detail_rows",
		ARDetailRowsEvidenceType:              "ar_aging_detail_rows",
		RequireEvidenceAsOfDateMatchPeriodEnd: true,
	}
}

// NegativeOpenItems flags open AP/AR rows with a negative balance, which
// usually means an unapplied credit or overpayment.
type NegativeOpenItems struct {
	review.BaseRule
}

func NewNegativeOpenItems() *NegativeOpenItems {
	return &NegativeOpenItems{
		BaseRule: review.NewBaseRule(
			"BS-AP-AR-NEGATIVE-OPEN-ITEMS",
			"Negative open AP/AR items identified",
			"Accounts Payable/Receivable",
			[]string{"QBO (Aged Payables/Receivables Detail)"},
		),
	}
}

func (r *NegativeOpenItems) ConfigPrototype() any { return defaultNegativeOpenItemsConfig() }

func (r *NegativeOpenItems) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := defaultNegativeOpenItemsConfig()
	if err := ctx.ClientConfig.Decode(r.ID(), cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}
	missingStatus := cfg.MissingDataPolicy

	apDetail := ctx.Evidence.First(cfg.APDetailRowsEvidenceType)
	if apDetail == nil || apDetail.Amount == nil {
		res := r.Result(missingStatus,
			fmt.Sprintf("Missing AP aging detail rows for %s; cannot verify.", ctx.PeriodEnd))
		if apDetail != nil {
			res.EvidenceUsed = []review.EvidenceItem{*apDetail}
		}
		if missingStatus == review.StatusNeedsReview {
			res.HumanAction = "Provide AP aging detail report rows as of period end."
		}
		return res
	}
	arDetail := ctx.Evidence.First(cfg.ARDetailRowsEvidenceType)
	if arDetail == nil || arDetail.Amount == nil {
		res := r.Result(missingStatus,
			fmt.Sprintf("Missing AR aging detail rows for %s; cannot verify.", ctx.PeriodEnd))
		if arDetail != nil {
			res.EvidenceUsed = []review.EvidenceItem{*arDetail}
		}
		if missingStatus == review.StatusNeedsReview {
			res.HumanAction = "Provide AR aging detail report rows as of period end."
		}
		return res
	}

	if cfg.RequireEvidenceAsOfDateMatchPeriodEnd {
		if !evidenceAsOfMatches(apDetail, ctx.PeriodEnd) {
			res := r.Result(missingStatus,
				"AP aging detail as-of date is missing or does not match period end; cannot verify.")
			res.EvidenceUsed = []review.EvidenceItem{*apDetail}
			if missingStatus == review.StatusNeedsReview {
				res.HumanAction = "Provide AP aging detail report as of the period end date."
			}
			return res
		}
		if !evidenceAsOfMatches(arDetail, ctx.PeriodEnd) {
			res := r.Result(missingStatus,
				"AR aging detail as-of date is missing or does not match period end; cannot verify.")
			res.EvidenceUsed = []review.EvidenceItem{*arDetail}
			if missingStatus == review.StatusNeedsReview {
				res.HumanAction = "Provide AR aging detail report as of the period end date."
			}
			return res
		}
	}

	apItems := apDetail.MetaItems()
	arItems := arDetail.MetaItems()
	if apItems == nil || arItems == nil {
		res := r.Result(missingStatus, "Missing AP/AR aging detail items; cannot verify.")
		res.EvidenceUsed = []review.EvidenceItem{*apDetail, *arDetail}
		if missingStatus == review.StatusNeedsReview {
			res.HumanAction = "Provide AP/AR aging detail items (with open balance) as of period end."
		}
		return res
	}

	apNegatives := negativeOpenItems(apItems)
	arNegatives := negativeOpenItems(arItems)

	status := review.StatusPass
	summary := "No negative open AP/AR items detected."
	if len(apNegatives) > 0 || len(arNegatives) > 0 {
		status = review.StatusNeedsReview
		summary = "Negative open AP/AR items detected; review credits/overpayments."
	}

	res := r.Result(status, summary)
	res.Details = []review.ResultDetail{
		negativeSideDetail("ap_negative_open_items", "AP negative open items.", ctx, apNegatives, status),
		negativeSideDetail("ar_negative_open_items", "AR negative open items.", ctx, arNegatives, status),
	}
	res.EvidenceUsed = []review.EvidenceItem{*apDetail, *arDetail}
	if status != review.StatusPass {
		res.HumanAction = "Investigate negative open balances (credits/overpayments) and document support."
	}
	return res
}

func negativeSideDetail(
	key, message string,
	ctx review.RuleContext,
	negatives []map[string]any,
	status review.RuleStatus,
) review.ResultDetail {
	sample := negatives
	if len(sample) > 25 {
		sample = sample[:25]
	}
	return review.ResultDetail{
		Key:     key,
		Message: message,
		Values: map[string]any{
			"period_end":          ctx.PeriodEnd.String(),
			"negative_item_count": len(negatives),
			"negative_items":      sample,
			"status":              status.String(),
		},
	}
}

func negativeOpenItems(items []map[string]any) []map[string]any {
	var out []map[string]any
	for _, item := range items {
		amt := review.MetaDecimal(item["open_balance"])
		if amt == nil || amt.Sign() >= 0 {
			continue
		}
		out = append(out, map[string]any{
			"name":         firstMetaString(item, "name", "vendor", "customer"),
			"open_balance": review.DecimalString(*amt),
		})
	}
	return out
}
