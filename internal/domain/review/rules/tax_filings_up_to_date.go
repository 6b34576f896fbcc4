package rules

import (
	"fmt"

	"github.com/closebooks/backend/internal/domain/review"
)

// TaxFilingsConfig names the QBO tax evidence types and the status applied to
// delinquent agencies. Agencies matching the exclude patterns (QBO ships a
// "No tax agency" placeholder) are skipped.
type TaxFilingsConfig struct {
	review.RuleConfigBase
	TaxAgenciesEvidenceType   string            `json:"tax_agencies_evidence_type"`
	TaxReturnsEvidenceType    string            `json:"tax_returns_evidence_type"`
	ExcludeAgencyNamePatterns []string          `json:"exclude_agency_name_patterns"`
	DelinquentStatus          review.RuleStatus `json:"delinquent_status" validate:"oneof=WARN FAIL"`
}

func defaultTaxFilingsConfig() *TaxFilingsConfig {
	return &TaxFilingsConfig{
		RuleConfigBase:            review.DefaultRuleConfigBase(),
		TaxAgenciesEvidenceType:   "tax_agencies",
		TaxReturnsEvidenceType:    "tax_returns",
		ExcludeAgencyNamePatterns: []string{"no tax agency"},
		DelinquentStatus:          review.StatusFail,
	}
}

// TaxFilingsUpToDate checks that each sales tax agency has filed returns
// through the most recent scheduled period end. The cadence is inferred per
// agency from the latest filed return's period length and rolled forward
// from that return's period end.
type TaxFilingsUpToDate struct {
	review.BaseRule
}

func NewTaxFilingsUpToDate() *TaxFilingsUpToDate {
	return &TaxFilingsUpToDate{
		BaseRule: review.NewBaseRule(
			"BS-TAX-FILINGS-UP-TO-DATE",
			"Sales tax filings completed through most recent period",
			"Tax accounts",
			[]string{"QBO (TaxAgency, TaxReturn)"},
		),
	}
}

func (r *TaxFilingsUpToDate) ConfigPrototype() any { return defaultTaxFilingsConfig() }

func (r *TaxFilingsUpToDate) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := defaultTaxFilingsConfig()
	if err := ctx.ClientConfig.Decode(r.ID(), cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}
	missingStatus := cfg.MissingDataPolicy

	agenciesItem := ctx.Evidence.First(cfg.TaxAgenciesEvidenceType)
	returnsItem := ctx.Evidence.First(cfg.TaxReturnsEvidenceType)
	if agenciesItem == nil || returnsItem == nil {
		res := r.Result(missingStatus, "Missing tax agency/return data; cannot verify filings.")
		res.EvidenceUsed = presentEvidence(agenciesItem, returnsItem)
		if missingStatus == review.StatusNeedsReview {
			res.HumanAction = "Provide TaxAgency and TaxReturn data from QBO."
		}
		return res
	}

	agencies := parseTaxAgencies(agenciesItem)
	returns := parseTaxReturns(returnsItem)
	if len(agencies) == 0 || len(returns) == 0 {
		res := r.Result(missingStatus, "Tax agency/return data is empty; cannot verify filings.")
		res.EvidenceUsed = []review.EvidenceItem{*agenciesItem, *returnsItem}
		if missingStatus == review.StatusNeedsReview {
			res.HumanAction = "Confirm TaxAgency and TaxReturn exports contain data."
		}
		return res
	}

	exclude := loweredPatterns(cfg.ExcludeAgencyNamePatterns)
	var salesAgencies []taxAgency
	for _, agency := range agencies {
		if agency.TaxTrackedOnSales && !nameMatchesAny(agency.DisplayName, exclude) {
			salesAgencies = append(salesAgencies, agency)
		}
	}
	if len(salesAgencies) == 0 {
		res := r.Result(review.StatusNotApplicable, "No sales tax agencies tracked on sales; not applicable.")
		res.EvidenceUsed = []review.EvidenceItem{*agenciesItem}
		return res
	}

	var (
		details  []review.ResultDetail
		statuses []review.RuleStatus
	)
	for _, agency := range salesAgencies {
		key := agency.ID
		if key == "" {
			key = agency.DisplayName
		}

		var filed []taxReturn
		for _, ret := range returns {
			if ret.AgencyID == agency.ID && ret.FileDate != nil {
				filed = append(filed, ret)
			}
		}
		if len(filed) == 0 {
			statuses = append(statuses, missingStatus)
			details = append(details, review.ResultDetail{
				Key:     key,
				Message: "No filed tax returns found for agency.",
				Values: map[string]any{
					"agency_name": agency.DisplayName,
					"period_end":  ctx.PeriodEnd.String(),
					"status":      missingStatus.String(),
				},
			})
			continue
		}

		// Coverage anchors on the latest filed period end; filings can
		// happen after the MER period end.
		latest := filed[0]
		for _, ret := range filed[1:] {
			if taxReturnSortDate(ret).After(taxReturnSortDate(latest)) {
				latest = ret
			}
		}
		if latest.StartDate == nil || latest.EndDate == nil {
			statuses = append(statuses, missingStatus)
			details = append(details, review.ResultDetail{
				Key:     key,
				Message: "Latest filed return missing period dates.",
				Values: map[string]any{
					"agency_name": agency.DisplayName,
					"period_end":  ctx.PeriodEnd.String(),
					"status":      missingStatus.String(),
				},
			})
			continue
		}

		cadence := taxCadenceMonths(latest.StartDate, latest.EndDate)
		if cadence == 0 {
			statuses = append(statuses, review.StatusNeedsReview)
			details = append(details, review.ResultDetail{
				Key:     key,
				Message: "Unable to infer tax filing cadence for agency.",
				Values: map[string]any{
					"agency_name":        agency.DisplayName,
					"period_end":         ctx.PeriodEnd.String(),
					"latest_filed_start": latest.StartDate.String(),
					"latest_filed_end":   latest.EndDate.String(),
					"status":             review.StatusNeedsReview.String(),
				},
			})
			continue
		}

		expectedEnd := expectedTaxPeriodEnd(ctx.PeriodEnd, cadence, latest.EndDate)
		status := review.StatusPass
		if latest.EndDate.Before(*expectedEnd) {
			status = cfg.DelinquentStatus
		}
		statuses = append(statuses, status)
		details = append(details, review.ResultDetail{
			Key:     key,
			Message: "Tax filing cadence evaluated for agency.",
			Values: map[string]any{
				"agency_name":         agency.DisplayName,
				"period_end":          ctx.PeriodEnd.String(),
				"latest_filed_start":  latest.StartDate.String(),
				"latest_filed_end":    latest.EndDate.String(),
				"latest_file_date":    dateOrNil(latest.FileDate),
				"expected_period_end": expectedEnd.String(),
				"cadence_months":      cadence,
				"status":              status.String(),
			},
		})
	}

	overall := review.WorstStatus(statuses...)
	summary := "Sales tax filings are not up to date for one or more agencies."
	switch {
	case overall == review.StatusPass:
		summary = fmt.Sprintf("Sales tax filings are up to date through %s.", ctx.PeriodEnd)
	case overall == missingStatus || overall == review.StatusNeedsReview:
		summary = "Missing or incomplete tax return data; cannot verify filings."
	}

	res := r.Result(overall, summary)
	res.Details = details
	res.EvidenceUsed = []review.EvidenceItem{*agenciesItem, *returnsItem}
	if overall == cfg.DelinquentStatus {
		res.HumanAction = "File missing sales tax returns and document filing periods."
	}
	return res
}

// taxReturnSortDate orders filed returns by period end, falling back to the
// file date for returns without one.
func taxReturnSortDate(ret taxReturn) review.Date {
	if ret.EndDate != nil {
		return *ret.EndDate
	}
	if ret.FileDate != nil {
		return *ret.FileDate
	}
	return review.Date{}
}
