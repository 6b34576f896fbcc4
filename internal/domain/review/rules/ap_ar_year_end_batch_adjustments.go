package rules

import (
	"fmt"
	"strings"

	"github.com/closebooks/backend/internal/domain/review"
)

// YearEndBatchConfig lists the generic supplier/customer name patterns left
// behind by year-end batch adjustments.
type YearEndBatchConfig struct {
	review.RuleConfigBase
	NamePatterns                          []string `json:"name_patterns"`
	APDetailRowsEvidenceType              string   `json:"ap_detail_rows_evidence_type"`
	ARDetailRowsEvidenceType              string   `json:"ar_detail_rows_evidence_type"`
	RequireEvidenceAsOfDateMatchPeriodEnd bool     `json:"require_evidence_as_of_date_match_period_end"`
}

func defaultYearEndBatchConfig() *YearEndBatchConfig {
	return &YearEndBatchConfig{
		RuleConfigBase:                        review.DefaultRuleConfigBase(),
		NamePatterns:                          []string{"yer supplier", "year-end review", "ye adj", "year end", "y/e"},
		APDetailRowsEvidenceType:              "ap_aging_detail_rows",
		ARDetailRowsEvidenceType:              "ar_aging_detail_rows",
		RequireEvidenceAsOfDateMatchPeriodEnd: true,
	}
}

// YearEndBatchAdjustments looks for aging rows still booked against a
// generic year-end adjustment name instead of a real supplier/customer.
type YearEndBatchAdjustments struct {
	review.BaseRule
}

func NewYearEndBatchAdjustments() *YearEndBatchAdjustments {
	return &YearEndBatchAdjustments{
		BaseRule: review.NewBaseRule(
			"BS-AP-AR-YEAR_END_BATCH_ADJUSTMENTS",
			"Year-end AP/AR batch adjustments not left as generic supplier/customer",
			"Accounts Payable/Receivable → Year End Adjustments",
			[]string{"QBO (Aged Payables/Receivables Detail)"},
		),
	}
}

func (r *YearEndBatchAdjustments) ConfigPrototype() any { return defaultYearEndBatchConfig() }

func (r *YearEndBatchAdjustments) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := defaultYearEndBatchConfig()
	if err := ctx.ClientConfig.Decode(r.ID(), cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}

	apDetail := ctx.Evidence.First(cfg.APDetailRowsEvidenceType)
	arDetail := ctx.Evidence.First(cfg.ARDetailRowsEvidenceType)
	if apDetail == nil && arDetail == nil {
		return r.Result(review.StatusNotApplicable,
			fmt.Sprintf("No AP/AR aging detail evidence for %s; not applicable.", ctx.PeriodEnd))
	}

	if cfg.RequireEvidenceAsOfDateMatchPeriodEnd {
		if apDetail != nil && !evidenceAsOfMatches(apDetail, ctx.PeriodEnd) {
			res := r.Result(review.StatusNotApplicable,
				"AP aging detail as-of date missing or does not match period end; not applicable.")
			res.EvidenceUsed = []review.EvidenceItem{*apDetail}
			return res
		}
		if arDetail != nil && !evidenceAsOfMatches(arDetail, ctx.PeriodEnd) {
			res := r.Result(review.StatusNotApplicable,
				"AR aging detail as-of date missing or does not match period end; not applicable.")
			res.EvidenceUsed = []review.EvidenceItem{*arDetail}
			return res
		}
	}

	var apItems, arItems []map[string]any
	if apDetail != nil {
		apItems = apDetail.MetaItems()
	}
	if arDetail != nil {
		arItems = arDetail.MetaItems()
	}
	if (apDetail != nil && apItems == nil) || (arDetail != nil && arItems == nil) {
		res := r.Result(review.StatusNotApplicable, "AP/AR aging detail items missing; not applicable.")
		res.EvidenceUsed = presentEvidence(apDetail, arDetail)
		return res
	}

	apFlagged := genericYearEndNames(apItems, cfg.NamePatterns)
	arFlagged := genericYearEndNames(arItems, cfg.NamePatterns)

	status := review.StatusPass
	summary := "No generic year-end AP/AR batch adjustment names detected."
	if len(apFlagged) > 0 || len(arFlagged) > 0 {
		status = review.StatusNeedsReview
		summary = "Generic year-end AP/AR batch adjustment names detected; review required."
	}

	res := r.Result(status, summary)
	res.Details = []review.ResultDetail{
		yearEndSideDetail("ap_generic_names", "AP aging detail generic year-end names.", ctx, apFlagged, status),
		yearEndSideDetail("ar_generic_names", "AR aging detail generic year-end names.", ctx, arFlagged, status),
	}
	res.EvidenceUsed = presentEvidence(apDetail, arDetail)
	if status != review.StatusPass {
		res.HumanAction = "Replace generic year-end adjustment names with proper supplier/customer breakdown and clear items."
	}
	return res
}

func yearEndSideDetail(
	key, message string,
	ctx review.RuleContext,
	flagged []map[string]any,
	status review.RuleStatus,
) review.ResultDetail {
	sample := flagged
	if len(sample) > 25 {
		sample = sample[:25]
	}
	return review.ResultDetail{
		Key:     key,
		Message: message,
		Values: map[string]any{
			"period_end":    ctx.PeriodEnd.String(),
			"flagged_count": len(flagged),
			"flagged_items": sample,
			"status":        status.String(),
		},
	}
}

// genericYearEndNames flags rows whose name matches a configured pattern or
// carries a year-end prefix ("YE ", "Y/E ", "Year End").
func genericYearEndNames(items []map[string]any, patterns []string) []map[string]any {
	var lowered []string
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}

	var flagged []map[string]any
	for _, item := range items {
		name := strings.TrimSpace(review.MetaString(item["name"]))
		if name == "" {
			continue
		}
		lname := strings.ToLower(name)
		matched := false
		for _, p := range lowered {
			if strings.Contains(lname, p) {
				matched = true
				break
			}
		}
		if matched ||
			strings.HasPrefix(lname, "ye ") ||
			strings.HasPrefix(lname, "y/e ") ||
			strings.HasPrefix(lname, "year end") {
			flagged = append(flagged, map[string]any{"name": name})
		}
	}
	return flagged
}

func presentEvidence(items ...*review.EvidenceItem) []review.EvidenceItem {
	var out []review.EvidenceItem
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}
