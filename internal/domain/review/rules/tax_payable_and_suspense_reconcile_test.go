package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closebooks/backend/internal/domain/review"
)

func filedReturnRow(agencyID, start, end, filed, netDue string) map[string]any {
	row := returnRow(agencyID, start, end, filed)
	row["net_tax_amount_due"] = netDue
	return row
}

func paymentRow(agencyID, paid, amount string) map[string]any {
	return map[string]any{
		"agency_id":      agencyID,
		"payment_date":   paid,
		"payment_amount": amount,
	}
}

func taxPaymentsEvidence(rows ...map[string]any) review.EvidenceItem {
	return itemsEvidence("tax_payments", "0", testPeriodEnd, rows)
}

func TestTaxPayableSuspenseReconcile(t *testing.T) {
	rule := NewTaxPayableSuspenseReconcile()
	craQ3 := filedReturnRow("3", "2025-07-01", "2025-09-30", "2025-10-25", "1750.00")

	t.Run("payable matches latest return", func(t *testing.T) {
		ctx := reviewContext(
			account("acct::TAXPAY", "GST/HST Payable", "1750.00"),
			account("acct::TAXSUSP", "GST/HST Suspense", "0.00"),
		)
		ctx.Evidence = evidenceBundle(
			taxAgenciesEvidence(agencyRow("3", "Canada Revenue Agency", true)),
			taxReturnsEvidence(craQ3),
			taxPaymentsEvidence(),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, "BS-TAX-PAYABLE-AND-SUSPENSE-RECONCILE-TO-RETURN", res.RuleID)
		assert.Equal(t, review.StatusPass, res.Status)
		assert.Equal(t, "Tax payable/suspense balances reconcile to expected returns as of 2025-12-31.", res.Summary)
		assert.Empty(t, res.HumanAction)
		assert.Len(t, res.EvidenceUsed, 3)

		require.Len(t, res.Details, 1)
		detail := res.Details[0]
		assert.Equal(t, "3", detail.Key)
		assert.Equal(t, "Tax payable/suspense balance reconciled to expected return.", detail.Message)
		assert.Equal(t, "Canada Revenue Agency", detail.Values["agency_name"])
		assert.Equal(t, "2025-12-31", detail.Values["expected_period_end"])
		assert.Equal(t, "2025-09-30", detail.Values["return_end_date"])
		assert.Equal(t, "1750.00", detail.Values["return_net_tax_due"])
		assert.Equal(t, "0", detail.Values["net_payments"])
		assert.Equal(t, false, detail.Values["payments_mapped_to_agency"])
		assert.Equal(t, "1750.00", detail.Values["expected_total"])
		assert.Equal(t, "1750.00", detail.Values["actual_total"])
		assert.Equal(t, "0.00", detail.Values["difference"])
		assert.Equal(t, "1750.00", detail.Values["payable_only"])
		assert.Equal(t, "0.00", detail.Values["suspense_only"])
		assert.Nil(t, detail.Values["note"])
		assert.Nil(t, detail.Values["placement_warning"])
	})

	t.Run("mapped payments reduce the expected total", func(t *testing.T) {
		ctx := reviewContext(
			account("acct::TAXPAY", "GST/HST Payable", "1100.00"),
			account("acct::TAXSUSP", "GST/HST Suspense", "150.00"),
		)
		ctx.Evidence = evidenceBundle(
			taxAgenciesEvidence(agencyRow("3", "Canada Revenue Agency", true)),
			taxReturnsEvidence(craQ3),
			taxPaymentsEvidence(paymentRow("3", "2025-11-05", "500.00")),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusPass, res.Status)
		require.Len(t, res.Details, 1)
		detail := res.Details[0]
		assert.Equal(t, "500.00", detail.Values["net_payments"])
		assert.Equal(t, true, detail.Values["payments_mapped_to_agency"])
		assert.Equal(t, "1250.00", detail.Values["expected_total"])
		assert.Equal(t, "1250.00", detail.Values["actual_total"])
		assert.Equal(t, "0.00", detail.Values["difference"])
		assert.Equal(t, "1100.00", detail.Values["payable_only"])
		assert.Equal(t, "150.00", detail.Values["suspense_only"])
	})

	t.Run("payments after period end are ignored", func(t *testing.T) {
		ctx := reviewContext(account("acct::TAXPAY", "GST/HST Payable", "1750.00"))
		ctx.Evidence = evidenceBundle(
			taxAgenciesEvidence(agencyRow("3", "Canada Revenue Agency", true)),
			taxReturnsEvidence(craQ3),
			taxPaymentsEvidence(paymentRow("3", "2026-01-10", "1750.00")),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusPass, res.Status)
		require.Len(t, res.Details, 1)
		assert.Equal(t, "0", res.Details[0].Values["net_payments"])
	})

	t.Run("unreconciled difference fails", func(t *testing.T) {
		ctx := reviewContext(account("acct::TAXPAY", "GST/HST Payable", "1900.00"))
		ctx.Evidence = evidenceBundle(
			taxAgenciesEvidence(agencyRow("3", "Canada Revenue Agency", true)),
			taxReturnsEvidence(craQ3),
			taxPaymentsEvidence(),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusFail, res.Status)
		assert.Equal(t, review.SeverityHigh, res.Severity)
		assert.Equal(t, "Tax payable/suspense balances require review against the most recent returns.", res.Summary)
		assert.Equal(t, "Reconcile tax payable/suspense balances to the expected return and payments.", res.HumanAction)

		require.Len(t, res.Details, 1)
		assert.Equal(t, "150.00", res.Details[0].Values["difference"])
		assert.Equal(t, "FAIL", res.Details[0].Values["status"])
	})

	t.Run("recent refund passes with a note", func(t *testing.T) {
		ctx := reviewContext(account("acct::TAXPAY", "GST/HST Payable", "-300.00"))
		ctx.Evidence = evidenceBundle(
			taxAgenciesEvidence(agencyRow("3", "Canada Revenue Agency", true)),
			taxReturnsEvidence(filedReturnRow("3", "2025-07-01", "2025-09-30", "2025-11-20", "-300.00")),
			taxPaymentsEvidence(),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusPass, res.Status)
		require.Len(t, res.Details, 1)
		detail := res.Details[0]
		assert.Equal(t, "Refund indicated on latest return; refund may not have been issued yet.", detail.Values["note"])
		assert.Equal(t, "Payable is negative; refund/credit scenario.", detail.Values["placement_warning"])
	})

	t.Run("refund outstanding past the grace period warns", func(t *testing.T) {
		ctx := reviewContext(account("acct::TAXPAY", "GST/HST Payable", "-300.00"))
		ctx.Evidence = evidenceBundle(
			taxAgenciesEvidence(agencyRow("3", "Canada Revenue Agency", true)),
			taxReturnsEvidence(filedReturnRow("3", "2025-07-01", "2025-09-30", "2025-09-15", "-300.00")),
			taxPaymentsEvidence(),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusWarn, res.Status)
		assert.Equal(t, review.SeverityLow, res.Severity)
		require.Len(t, res.Details, 1)
		detail := res.Details[0]
		assert.Equal(t, "Refund indicated on latest return; refund may not have been issued yet.", detail.Values["note"])
		assert.Equal(t, "Payable is negative; verify refund/overpayment/coding.", detail.Values["placement_warning"])
	})

	t.Run("account without a matching agency needs review", func(t *testing.T) {
		ctx := reviewContext(account("acct::PST", "PST Payable", "420.00"))
		ctx.Evidence = evidenceBundle(
			taxAgenciesEvidence(agencyRow("3", "Canada Revenue Agency", true)),
			taxReturnsEvidence(craQ3),
			taxPaymentsEvidence(),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusNeedsReview, res.Status)
		assert.Equal(t, review.SeverityMedium, res.Severity)
		require.Len(t, res.Details, 1)
		detail := res.Details[0]
		assert.Equal(t, "acct::PST", detail.Key)
		assert.Equal(t, "Tax account could not be mapped to a tax agency.", detail.Message)
		assert.Equal(t, "PST Payable", detail.Values["account_name"])
		assert.Equal(t, "420.00", detail.Values["balance"])
	})

	t.Run("pst account maps to the finance ministry", func(t *testing.T) {
		ctx := reviewContext(account("acct::PST", "PST Payable", "0.00"))
		ctx.Evidence = evidenceBundle(
			taxAgenciesEvidence(
				agencyRow("3", "Canada Revenue Agency", true),
				agencyRow("4", "Minister of Finance", true),
			),
			taxReturnsEvidence(filedReturnRow("4", "2025-12-01", "2025-12-31", "2026-01-15", "0.00")),
			taxPaymentsEvidence(),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusPass, res.Status)
		require.Len(t, res.Details, 1)
		assert.Equal(t, "4", res.Details[0].Key)
		assert.Equal(t, "Minister of Finance", res.Details[0].Values["agency_name"])
	})

	t.Run("no tax accounts is not applicable", func(t *testing.T) {
		ctx := reviewContext(account("acct::CHK", "Operating Chequing", "5000.00"))
		ctx.Evidence = evidenceBundle(
			taxAgenciesEvidence(agencyRow("3", "Canada Revenue Agency", true)),
			taxReturnsEvidence(craQ3),
			taxPaymentsEvidence(),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusNotApplicable, res.Status)
		assert.Equal(t, "No tax payable/suspense accounts found on Balance Sheet.", res.Summary)
		assert.Empty(t, res.HumanAction)
	})

	t.Run("missing payments evidence needs review", func(t *testing.T) {
		ctx := reviewContext(account("acct::TAXPAY", "GST/HST Payable", "1750.00"))
		ctx.Evidence = evidenceBundle(
			taxAgenciesEvidence(agencyRow("3", "Canada Revenue Agency", true)),
			taxReturnsEvidence(craQ3),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusNeedsReview, res.Status)
		assert.Equal(t, "Missing tax agency/return/payment data; cannot reconcile tax balances.", res.Summary)
		assert.Equal(t, "Provide TaxAgency, TaxReturn, and TaxPayment data from QBO.", res.HumanAction)
		assert.Len(t, res.EvidenceUsed, 2)
	})

	t.Run("empty agency items cannot be reconciled", func(t *testing.T) {
		ctx := reviewContext(account("acct::TAXPAY", "GST/HST Payable", "1750.00"))
		ctx.Evidence = evidenceBundle(
			taxAgenciesEvidence(),
			taxReturnsEvidence(craQ3),
			taxPaymentsEvidence(),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusNeedsReview, res.Status)
		assert.Equal(t, "Tax agency/return data is empty; cannot reconcile tax balances.", res.Summary)
		assert.Equal(t, "Confirm TaxAgency and TaxReturn exports contain data.", res.HumanAction)
		assert.Len(t, res.EvidenceUsed, 3)
	})

	t.Run("agency without filed returns needs review", func(t *testing.T) {
		ctx := reviewContext(account("acct::TAXPAY", "GST/HST Payable", "1750.00"))
		ctx.Evidence = evidenceBundle(
			taxAgenciesEvidence(agencyRow("3", "Canada Revenue Agency", true)),
			taxReturnsEvidence(returnRow("3", "2025-07-01", "2025-09-30", "")),
			taxPaymentsEvidence(),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusNeedsReview, res.Status)
		require.Len(t, res.Details, 1)
		assert.Equal(t, "No filed tax returns found for agency.", res.Details[0].Message)
	})
}
