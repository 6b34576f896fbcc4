package rules

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/closebooks/backend/internal/domain/review"
)

// OverdueItemsConfig names the four over-threshold aging extracts and the
// age cutoff in days.
type OverdueItemsConfig struct {
	review.RuleConfigBase
	AgeThresholdDays                      int    `json:"age_threshold_days" validate:"gt=0"`
	APSummaryEvidenceType                 string `json:"ap_summary_evidence_type"`
	APDetailEvidenceType                  string `json:"ap_detail_evidence_type"`
	ARSummaryEvidenceType                 string `json:"ar_summary_evidence_type"`
	ARDetailEvidenceType                  string `json:"ar_detail_evidence_type"`
	RequireEvidenceAsOfDateMatchPeriodEnd bool   `json:"require_evidence_as_of_date_match_period_end"`
}

func defaultOverdueItemsConfig() *OverdueItemsConfig {
	return &OverdueItemsConfig{
		RuleConfigBase:                        review.DefaultRuleConfigBase(),
		AgeThresholdDays:                      60,
		APSummaryEvidenceType:                 "ap_aging_summary_over_60",
		APDetailEvidenceType:                  "ap_aging_detail_over_60",
		ARSummaryEvidenceType:                 "ar_aging_summary_over_60",
		ARDetailEvidenceType:                  "ar_aging_detail_over_60",
		RequireEvidenceAsOfDateMatchPeriodEnd: true,
	}
}

// OverdueItems surfaces AP/AR open items older than the age threshold and
// cross-checks the summary extract against the detail extract per
// supplier/customer name.
type OverdueItems struct {
	review.BaseRule
}

func NewOverdueItems() *OverdueItems {
	return &OverdueItems{
		BaseRule: review.NewBaseRule(
			"BS-AP-AR-ITEMS-OLDER-THAN-60-DAYS",
			"AP/AR items older than 60 days flagged",
			"Accounts Payable/Receivable",
			[]string{"QBO (AP/AR Aging Summary + Detail)"},
		),
	}
}

func (r *OverdueItems) ConfigPrototype() any { return defaultOverdueItemsConfig() }

func (r *OverdueItems) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := defaultOverdueItemsConfig()
	if err := ctx.ClientConfig.Decode(r.ID(), cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}
	missingStatus := cfg.MissingDataPolicy

	cutoff := ctx.PeriodEnd.AddDays(-cfg.AgeThresholdDays)

	apSummary := ctx.Evidence.First(cfg.APSummaryEvidenceType)
	apDetail := ctx.Evidence.First(cfg.APDetailEvidenceType)
	arSummary := ctx.Evidence.First(cfg.ARSummaryEvidenceType)
	arDetail := ctx.Evidence.First(cfg.ARDetailEvidenceType)

	gates := []struct {
		label string
		item  *review.EvidenceItem
	}{
		{"AP summary", apSummary},
		{"AP detail", apDetail},
		{"AR summary", arSummary},
		{"AR detail", arDetail},
	}
	for _, gate := range gates {
		if gate.item == nil || gate.item.Amount == nil {
			res := r.Result(missingStatus, fmt.Sprintf(
				"Missing %s aging total for %s; cannot verify.", gate.label, ctx.PeriodEnd))
			if gate.item != nil {
				res.EvidenceUsed = []review.EvidenceItem{*gate.item}
			}
			if missingStatus == review.StatusNeedsReview {
				res.HumanAction = "Provide AP/AR aging summary and detail totals as of period end."
			}
			return res
		}
		if cfg.RequireEvidenceAsOfDateMatchPeriodEnd && !evidenceAsOfMatches(gate.item, ctx.PeriodEnd) {
			res := r.Result(missingStatus, fmt.Sprintf(
				"%s aging report as-of date is missing or does not match period end; cannot verify.", gate.label))
			res.EvidenceUsed = []review.EvidenceItem{*gate.item}
			if missingStatus == review.StatusNeedsReview {
				res.HumanAction = "Provide AP/AR aging reports as of the period end date."
			}
			return res
		}
	}

	apSummaryItems := apSummary.MetaItems()
	apDetailItems := apDetail.MetaItems()
	arSummaryItems := arSummary.MetaItems()
	arDetailItems := arDetail.MetaItems()
	if apSummaryItems == nil || apDetailItems == nil || arSummaryItems == nil || arDetailItems == nil {
		res := r.Result(missingStatus, "Missing item-level metadata for AP/AR aging reports; cannot verify.")
		res.EvidenceUsed = []review.EvidenceItem{*apSummary, *apDetail, *arSummary, *arDetail}
		if missingStatus == review.StatusNeedsReview {
			res.HumanAction = "Provide item-level metadata for AP/AR aging reports (items older than threshold)."
		}
		return res
	}

	apOver, apInvalid := overThresholdItems(apDetailItems, cutoff, cfg.AgeThresholdDays)
	arOver, arInvalid := overThresholdItems(arDetailItems, cutoff, cfg.AgeThresholdDays)
	if apInvalid > 0 || arInvalid > 0 {
		res := r.Result(missingStatus, "Some AP/AR detail items are missing dates or amounts; cannot verify.")
		res.EvidenceUsed = []review.EvidenceItem{*apDetail, *arDetail}
		if missingStatus == review.StatusNeedsReview {
			res.HumanAction = "Ensure AP/AR detail items include valid dates and amounts."
		}
		return res
	}

	apSummaryMap := amountsByName(apSummaryItems)
	arSummaryMap := amountsByName(arSummaryItems)
	apDetailMap := amountsByName(apOver)
	arDetailMap := amountsByName(arOver)

	apDiscrepancies := diffAmountMaps(apDetailMap, apSummaryMap)
	arDiscrepancies := diffAmountMaps(arDetailMap, arSummaryMap)

	apOverTotal := cfg.Quantize(*apDetail.Amount)
	arOverTotal := cfg.Quantize(*arDetail.Amount)
	apSummaryTotal := cfg.Quantize(*apSummary.Amount)
	arSummaryTotal := cfg.Quantize(*arSummary.Amount)

	apCalcTotal := sumAmounts(apDetailMap)
	arCalcTotal := sumAmounts(arDetailMap)
	if !apCalcTotal.Equal(apOverTotal) || !apCalcTotal.Equal(apSummaryTotal) {
		apDiscrepancies = append(apDiscrepancies, map[string]any{
			"name":          "__TOTAL__",
			"detail_total":  review.DecimalString(apCalcTotal),
			"summary_total": review.DecimalString(apSummaryTotal),
			"difference":    review.DecimalString(apCalcTotal.Sub(apSummaryTotal).Abs()),
		})
	}
	if !arCalcTotal.Equal(arOverTotal) || !arCalcTotal.Equal(arSummaryTotal) {
		arDiscrepancies = append(arDiscrepancies, map[string]any{
			"name":          "__TOTAL__",
			"detail_total":  review.DecimalString(arCalcTotal),
			"summary_total": review.DecimalString(arSummaryTotal),
			"difference":    review.DecimalString(arCalcTotal.Sub(arSummaryTotal).Abs()),
		})
	}

	flagged := len(apOver) > 0 || len(arOver) > 0 || len(apDiscrepancies) > 0 || len(arDiscrepancies) > 0
	status := review.StatusPass
	summary := "No AP/AR items older than the threshold and reports reconcile."
	if flagged {
		status = review.StatusNeedsReview
		summary = "AP/AR items older than threshold detected or report discrepancies found."
	}

	res := r.Result(status, summary)
	res.Details = []review.ResultDetail{
		overdueSideDetail("ap_over_60", "AP items older than threshold.", ctx, cfg, cutoff,
			apOver, apInvalid, apOverTotal, apSummaryTotal, apDiscrepancies, status),
		overdueSideDetail("ar_over_60", "AR items older than threshold.", ctx, cfg, cutoff,
			arOver, arInvalid, arOverTotal, arSummaryTotal, arDiscrepancies, status),
	}
	res.EvidenceUsed = []review.EvidenceItem{*apSummary, *apDetail, *arSummary, *arDetail}
	if status != review.StatusPass {
		res.HumanAction = "Review AP/AR items older than the threshold and reconcile summary vs detail report discrepancies."
	}
	return res
}

func overdueSideDetail(
	key, message string,
	ctx review.RuleContext,
	cfg *OverdueItemsConfig,
	cutoff review.Date,
	over []map[string]any,
	invalid int,
	overTotal, summaryTotal decimal.Decimal,
	discrepancies []map[string]any,
	status review.RuleStatus,
) review.ResultDetail {
	sample := over
	if len(sample) > 25 {
		sample = sample[:25]
	}
	return review.ResultDetail{
		Key:     key,
		Message: message,
		Values: map[string]any{
			"period_end":                   ctx.PeriodEnd.String(),
			"threshold_days":               cfg.AgeThresholdDays,
			"cutoff_date":                  cutoff.String(),
			"over_threshold_count":         len(over),
			"over_threshold_items":         sample,
			"invalid_items_count":          invalid,
			"detail_total_over_threshold":  review.DecimalString(overTotal),
			"summary_total_over_threshold": review.DecimalString(summaryTotal),
			"discrepancies":                discrepancies,
			"status":                       status.String(),
		},
	}
}

// overThresholdItems selects detail rows older than the cutoff. Age is read
// from txn_date when present, else days_past_due/age_days, else an explicit
// over_threshold flag, else the age_bucket label. Rows without an amount or
// any age signal count as invalid.
func overThresholdItems(items []map[string]any, cutoff review.Date, thresholdDays int) ([]map[string]any, int) {
	var out []map[string]any
	invalid := 0
	for _, item := range items {
		txnDate := unclearedItemDate(item)
		amt := review.MetaDecimal(item["amount"])
		ageDays, hasAgeDays := agingDays(item)
		ageBucket := strings.ToLower(strings.TrimSpace(review.MetaString(item["age_bucket"])))
		overFlag := item["over_threshold"] == true

		hasAge := txnDate != nil || hasAgeDays || ageBucket != "" || overFlag
		if amt == nil || !hasAge {
			invalid++
			continue
		}

		isOver := false
		var txnDateStr any
		switch {
		case txnDate != nil:
			isOver = txnDate.Before(cutoff)
			txnDateStr = txnDate.String()
		case hasAgeDays:
			isOver = ageDays >= thresholdDays
		case overFlag:
			isOver = true
		case ageBucket != "":
			isOver = strings.Contains(ageBucket, "61") ||
				strings.Contains(ageBucket, "90") ||
				strings.Contains(ageBucket, "over")
		}

		if isOver {
			out = append(out, map[string]any{
				"id":         firstMetaString(item, "id", "txn_id"),
				"name":       firstMetaString(item, "name", "vendor", "customer"),
				"txn_date":   txnDateStr,
				"amount":     review.DecimalString(*amt),
				"age_bucket": item["age_bucket"],
			})
		}
	}
	return out, invalid
}

// agingDays reads days_past_due/age_days; a present but unparseable value
// is treated as zero days (recognized, never over).
func agingDays(item map[string]any) (int, bool) {
	for _, key := range []string{"days_past_due", "age_days"} {
		v := item[key]
		if v == nil || v == "" {
			continue
		}
		switch x := v.(type) {
		case int:
			return x, true
		case int64:
			return int(x), true
		case float64:
			return int(x), true
		case json.Number:
			if f, err := x.Float64(); err == nil {
				return int(f), true
			}
			return 0, true
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
				return i, true
			}
			return 0, true
		}
	}
	return 0, false
}

// amountsByName aggregates row amounts per supplier/customer name
func amountsByName(items []map[string]any) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, item := range items {
		name := strings.TrimSpace(firstMetaString(item, "name", "vendor", "customer"))
		amt := review.MetaDecimal(item["amount"])
		if name == "" || amt == nil {
			continue
		}
		out[name] = out[name].Add(*amt)
	}
	return out
}

func sumAmounts(m map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}

// diffAmountMaps lists names whose detail and summary aggregates disagree
func diffAmountMaps(detail, summary map[string]decimal.Decimal) []map[string]any {
	keys := make(map[string]struct{}, len(detail)+len(summary))
	for k := range detail {
		keys[k] = struct{}{}
	}
	for k := range summary {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var diffs []map[string]any
	for _, name := range sorted {
		d := detail[name]
		s := summary[name]
		if !d.Equal(s) {
			diffs = append(diffs, map[string]any{
				"name":          name,
				"detail_total":  review.DecimalString(d),
				"summary_total": review.DecimalString(s),
				"difference":    review.DecimalString(d.Sub(s).Abs()),
			})
		}
	}
	return diffs
}
