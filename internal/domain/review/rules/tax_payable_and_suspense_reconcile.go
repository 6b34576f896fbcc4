package rules

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/closebooks/backend/internal/domain/review"
)

// TaxPayableSuspenseConfig scopes the payable/suspense accounts by name and
// names the QBO tax evidence types. RefundGraceDays bounds how long a filed
// refund may sit uncollected before the matching balance is flagged.
type TaxPayableSuspenseConfig struct {
	review.RuleConfigBase
	AccountNamePatterns     []string          `json:"account_name_patterns"`
	TaxAgenciesEvidenceType string            `json:"tax_agencies_evidence_type"`
	TaxReturnsEvidenceType  string            `json:"tax_returns_evidence_type"`
	TaxPaymentsEvidenceType string            `json:"tax_payments_evidence_type"`
	RefundGraceDays         int               `json:"refund_grace_days" validate:"gte=0"`
	DelinquentStatus        review.RuleStatus `json:"delinquent_status" validate:"oneof=WARN FAIL"`
}

func defaultTaxPayableSuspenseConfig() *TaxPayableSuspenseConfig {
	return &TaxPayableSuspenseConfig{
		RuleConfigBase: review.DefaultRuleConfigBase(),
		AccountNamePatterns: []string{
			"gst/hst payable", "gst payable", "hst payable", "pst payable",
			"sales tax payable",
			"gst/hst suspense", "gst suspense", "hst suspense", "pst suspense",
			"sales tax suspense", "suspence",
		},
		TaxAgenciesEvidenceType: "tax_agencies",
		TaxReturnsEvidenceType:  "tax_returns",
		TaxPaymentsEvidenceType: "tax_payments",
		RefundGraceDays:         60,
		DelinquentStatus:        review.StatusFail,
	}
}

// TaxPayableSuspenseReconcile reconciles the combined tax payable + suspense
// balance per agency against the expected filing: the net tax due on the
// return for the expected period, less payments recorded through period end.
type TaxPayableSuspenseReconcile struct {
	review.BaseRule
}

func NewTaxPayableSuspenseReconcile() *TaxPayableSuspenseReconcile {
	return &TaxPayableSuspenseReconcile{
		BaseRule: review.NewBaseRule(
			"BS-TAX-PAYABLE-AND-SUSPENSE-RECONCILE-TO-RETURN",
			"Tax payable/suspense reconcile to most recent return",
			"Tax accounts",
			[]string{"QBO (Balance Sheet, TaxReturn, TaxPayment)"},
		),
	}
}

func (r *TaxPayableSuspenseReconcile) ConfigPrototype() any { return defaultTaxPayableSuspenseConfig() }

func (r *TaxPayableSuspenseReconcile) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := defaultTaxPayableSuspenseConfig()
	if err := ctx.ClientConfig.Decode(r.ID(), cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}
	missingStatus := cfg.MissingDataPolicy

	agenciesItem := ctx.Evidence.First(cfg.TaxAgenciesEvidenceType)
	returnsItem := ctx.Evidence.First(cfg.TaxReturnsEvidenceType)
	paymentsItem := ctx.Evidence.First(cfg.TaxPaymentsEvidenceType)
	if agenciesItem == nil || returnsItem == nil || paymentsItem == nil {
		res := r.Result(missingStatus, "Missing tax agency/return/payment data; cannot reconcile tax balances.")
		res.EvidenceUsed = presentEvidence(agenciesItem, returnsItem, paymentsItem)
		if missingStatus == review.StatusNeedsReview {
			res.HumanAction = "Provide TaxAgency, TaxReturn, and TaxPayment data from QBO."
		}
		return res
	}

	agencies := parseTaxAgencies(agenciesItem)
	returns := parseTaxReturns(returnsItem)
	payments := parseTaxPayments(paymentsItem)
	if len(agencies) == 0 || len(returns) == 0 {
		res := r.Result(missingStatus, "Tax agency/return data is empty; cannot reconcile tax balances.")
		res.EvidenceUsed = []review.EvidenceItem{*agenciesItem, *returnsItem, *paymentsItem}
		if missingStatus == review.StatusNeedsReview {
			res.HumanAction = "Confirm TaxAgency and TaxReturn exports contain data."
		}
		return res
	}

	patterns := loweredPatterns(cfg.AccountNamePatterns)
	var scope []review.AccountBalance
	for _, acct := range ctx.BalanceSheet.Accounts {
		if acct.AccountRef == "" || !acct.IsLeaf() || acct.Name == "" {
			continue
		}
		if nameMatchesAny(acct.Name, patterns) {
			scope = append(scope, acct)
		}
	}
	if len(scope) == 0 {
		return r.Result(review.StatusNotApplicable, "No tax payable/suspense accounts found on Balance Sheet.")
	}

	var (
		unmatched        []review.AccountBalance
		agencyOrder      []string
		accountsByAgency = make(map[string][]review.AccountBalance)
	)
	for _, acct := range scope {
		agencyID := inferTaxAgencyForAccount(acct.Name, agencies)
		if agencyID == "" {
			unmatched = append(unmatched, acct)
			continue
		}
		if _, seen := accountsByAgency[agencyID]; !seen {
			agencyOrder = append(agencyOrder, agencyID)
		}
		accountsByAgency[agencyID] = append(accountsByAgency[agencyID], acct)
	}

	var (
		details  []review.ResultDetail
		statuses []review.RuleStatus
	)
	if len(unmatched) > 0 {
		statuses = append(statuses, missingStatus)
		for _, acct := range unmatched {
			details = append(details, review.ResultDetail{
				Key:     acct.AccountRef,
				Message: "Tax account could not be mapped to a tax agency.",
				Values: map[string]any{
					"account_name": acct.Name,
					"balance":      review.DecimalString(acct.Balance),
					"period_end":   ctx.PeriodEnd.String(),
					"status":       missingStatus.String(),
				},
			})
		}
	}

	paymentsMapped := false
	for _, p := range payments {
		if p.AgencyID != "" {
			paymentsMapped = true
			break
		}
	}

	for _, agencyID := range agencyOrder {
		accounts := accountsByAgency[agencyID]
		agencyName := agencyID
		for _, a := range agencies {
			if a.ID == agencyID {
				agencyName = a.DisplayName
				break
			}
		}

		var agencyReturns, filed []taxReturn
		for _, ret := range returns {
			if ret.AgencyID != agencyID {
				continue
			}
			agencyReturns = append(agencyReturns, ret)
			if ret.FileDate != nil {
				filed = append(filed, ret)
			}
		}
		if len(filed) == 0 {
			statuses = append(statuses, missingStatus)
			details = append(details, review.ResultDetail{
				Key:     agencyID,
				Message: "No filed tax returns found for agency.",
				Values: map[string]any{
					"agency_name": agencyName,
					"period_end":  ctx.PeriodEnd.String(),
					"status":      missingStatus.String(),
				},
			})
			continue
		}

		cadence := taxCadenceMonths(filed[0].StartDate, filed[0].EndDate)
		if cadence == 0 {
			statuses = append(statuses, review.StatusNeedsReview)
			details = append(details, review.ResultDetail{
				Key:     agencyID,
				Message: "Unable to infer filing cadence for agency.",
				Values: map[string]any{
					"agency_name": agencyName,
					"period_end":  ctx.PeriodEnd.String(),
					"status":      review.StatusNeedsReview.String(),
				},
			})
			continue
		}

		var anchor *review.Date
		for i := range agencyReturns {
			if e := agencyReturns[i].EndDate; e != nil && (anchor == nil || e.After(*anchor)) {
				anchor = e
			}
		}
		expectedEnd := expectedTaxPeriodEnd(ctx.PeriodEnd, cadence, anchor)
		if expectedEnd == nil {
			statuses = append(statuses, missingStatus)
			details = append(details, review.ResultDetail{
				Key:     agencyID,
				Message: "Unable to determine expected filing period end.",
				Values: map[string]any{
					"agency_name": agencyName,
					"period_end":  ctx.PeriodEnd.String(),
					"status":      missingStatus.String(),
				},
			})
			continue
		}

		target := targetTaxReturn(agencyReturns, *expectedEnd)
		if target == nil || target.NetTaxAmountDue == nil {
			statuses = append(statuses, missingStatus)
			details = append(details, review.ResultDetail{
				Key:     agencyID,
				Message: "No return found for expected filing period.",
				Values: map[string]any{
					"agency_name":         agencyName,
					"period_end":          ctx.PeriodEnd.String(),
					"expected_period_end": expectedEnd.String(),
					"status":              missingStatus.String(),
				},
			})
			continue
		}

		payableOnly, suspenseOnly := decimal.Zero, decimal.Zero
		for _, acct := range accounts {
			if isTaxPayableName(acct.Name) {
				payableOnly = payableOnly.Add(acct.Balance)
			}
			if isTaxSuspenseName(acct.Name) {
				suspenseOnly = suspenseOnly.Add(acct.Balance)
			}
		}
		actualTotal := payableOnly.Add(suspenseOnly)

		// Payments are only attributable when the export carries agency
		// refs at all; otherwise skip them rather than guessing.
		netPayments := decimal.Zero
		if paymentsMapped {
			for _, p := range payments {
				if p.AgencyID != agencyID || p.PaymentAmount == nil || p.PaymentDate == nil {
					continue
				}
				if p.PaymentDate.After(ctx.PeriodEnd) {
					continue
				}
				amt := *p.PaymentAmount
				if p.Refund {
					amt = amt.Neg()
				}
				netPayments = netPayments.Add(amt)
			}
		}

		expectedTotal := target.NetTaxAmountDue.Sub(netPayments)
		diff := actualTotal.Sub(expectedTotal).Abs()

		core := review.StatusPass
		if !diff.IsZero() {
			core = cfg.DelinquentStatus
		}

		var note any
		if target.NetTaxAmountDue.Sign() < 0 && core == review.StatusPass {
			note = "Refund indicated on latest return; refund may not have been issued yet."
			if target.FileDate != nil && target.FileDate.DaysUntil(ctx.PeriodEnd) > cfg.RefundGraceDays {
				core = review.StatusWarn
			}
		}

		var placementWarning any
		if payableOnly.Sign() < 0 {
			if target.NetTaxAmountDue.Sign() < 0 && core == review.StatusPass {
				placementWarning = "Payable is negative; refund/credit scenario."
			} else {
				core = review.WorstStatus(core, review.StatusWarn)
				placementWarning = "Payable is negative; verify refund/overpayment/coding."
			}
		}

		statuses = append(statuses, core)
		details = append(details, review.ResultDetail{
			Key:     agencyID,
			Message: "Tax payable/suspense balance reconciled to expected return.",
			Values: map[string]any{
				"agency_name":               agencyName,
				"period_end":                ctx.PeriodEnd.String(),
				"expected_period_end":       expectedEnd.String(),
				"return_start_date":         dateOrNil(target.StartDate),
				"return_end_date":           dateOrNil(target.EndDate),
				"return_file_date":          dateOrNil(target.FileDate),
				"return_net_tax_due":        review.DecimalString(*target.NetTaxAmountDue),
				"net_payments":              review.DecimalString(netPayments),
				"payments_mapped_to_agency": paymentsMapped,
				"expected_total":            review.DecimalString(expectedTotal),
				"actual_total":              review.DecimalString(actualTotal),
				"difference":                review.DecimalString(diff),
				"payable_only":              review.DecimalString(payableOnly),
				"suspense_only":             review.DecimalString(suspenseOnly),
				"status":                    core.String(),
				"note":                      note,
				"placement_warning":         placementWarning,
			},
		})
	}

	overall := review.WorstStatus(statuses...)
	summary := "Tax payable/suspense balances require review against the most recent returns."
	if overall == review.StatusPass {
		summary = fmt.Sprintf("Tax payable/suspense balances reconcile to expected returns as of %s.", ctx.PeriodEnd)
	}

	res := r.Result(overall, summary)
	res.Details = details
	res.EvidenceUsed = []review.EvidenceItem{*agenciesItem, *returnsItem, *paymentsItem}
	if overall != review.StatusPass && overall != review.StatusNotApplicable {
		res.HumanAction = "Reconcile tax payable/suspense balances to the expected return and payments."
	}
	return res
}

// inferTaxAgencyForAccount maps an account to an agency by display-name
// substring, then by the GST/HST -> revenue agency and PST -> finance
// conventions used in Canadian QBO files.
func inferTaxAgencyForAccount(accountName string, agencies []taxAgency) string {
	lowered := strings.ToLower(accountName)
	for _, a := range agencies {
		if a.DisplayName != "" && strings.Contains(lowered, strings.ToLower(a.DisplayName)) {
			return a.ID
		}
	}
	if strings.Contains(lowered, "gst") || strings.Contains(lowered, "hst") {
		for _, a := range agencies {
			if strings.Contains(strings.ToLower(a.DisplayName), "revenue agency") {
				return a.ID
			}
		}
	}
	if strings.Contains(lowered, "pst") {
		for _, a := range agencies {
			if strings.Contains(strings.ToLower(a.DisplayName), "finance") {
				return a.ID
			}
		}
	}
	return ""
}

// targetTaxReturn picks the return for the expected period, falling back to
// the latest return ending on or before it.
func targetTaxReturn(agencyReturns []taxReturn, expectedEnd review.Date) *taxReturn {
	for i := range agencyReturns {
		if e := agencyReturns[i].EndDate; e != nil && e.Equal(expectedEnd) {
			return &agencyReturns[i]
		}
	}
	var best *taxReturn
	for i := range agencyReturns {
		e := agencyReturns[i].EndDate
		if e == nil || e.After(expectedEnd) {
			continue
		}
		if best == nil || e.After(*best.EndDate) {
			best = &agencyReturns[i]
		}
	}
	return best
}

func isTaxPayableName(name string) bool {
	return strings.Contains(strings.ToLower(name), "payable")
}

func isTaxSuspenseName(name string) bool {
	lowered := strings.ToLower(name)
	return strings.Contains(lowered, "suspense") || strings.Contains(lowered, "suspence")
}
