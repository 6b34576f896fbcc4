package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closebooks/backend/internal/domain/review"
)

func TestAPSubledgerReconciles(t *testing.T) {
	rule := NewAPSubledgerReconciles()

	t.Run("total line ties out to summary and detail", func(t *testing.T) {
		ctx := reviewContext(
			account("acct::AP1", "Accounts Payable (CAD)", "1200.00"),
			account("report::total-ap", "Total Accounts Payable", "1200.00"),
		)
		ctx.Evidence = evidenceBundle(
			amountEvidence("ap_aging_summary_total", "1200.00", testPeriodEnd),
			amountEvidence("ap_aging_detail_total", "1200.00", testPeriodEnd),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusPass, res.Status)
		assert.Equal(t, "AP aging totals reconcile to the Balance Sheet as of 2025-12-31.", res.Summary)
		assert.Empty(t, res.HumanAction)
		assert.Len(t, res.EvidenceUsed, 2)

		require.Len(t, res.Details, 2)
		assert.Equal(t, "report::total-ap", res.Details[0].Key)
		assert.Equal(t, true, res.Details[0].Values["used_total_line"])
		assert.Equal(t, false, res.Details[0].Values["inferred_by_name_match"])

		totals := res.Details[1]
		assert.Equal(t, "ap_aging_totals", totals.Key)
		assert.Equal(t, "1200.00", totals.Values["bs_total"])
		assert.Equal(t, "0.00", totals.Values["summary_difference"])
		assert.Equal(t, "0.00", totals.Values["detail_difference"])
		assert.Equal(t, "2025-12-31", totals.Values["summary_evidence_as_of_date"])
	})

	t.Run("detail total off by fifty fails", func(t *testing.T) {
		ctx := reviewContext(account("report::total-ap", "Total Accounts Payable", "1200.00"))
		ctx.Evidence = evidenceBundle(
			amountEvidence("ap_aging_summary_total", "1200.00", testPeriodEnd),
			amountEvidence("ap_aging_detail_total", "1150.00", testPeriodEnd),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusFail, res.Status)
		assert.Equal(t, "AP aging totals do not reconcile to the Balance Sheet as of 2025-12-31.", res.Summary)
		assert.Equal(t,
			"Reconcile the AP aging summary/detail totals to the Balance Sheet and resolve discrepancies.",
			res.HumanAction)

		totals := res.Details[len(res.Details)-1]
		assert.Equal(t, "0.00", totals.Values["summary_difference"])
		assert.Equal(t, "50.00", totals.Values["detail_difference"])
	})

	t.Run("multiple total lines cannot be verified", func(t *testing.T) {
		ctx := reviewContext(
			account("report::total-ap", "Total Accounts Payable", "1200.00"),
			account("report::total-ap-usd", "Total A/P", "300.00"),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusNeedsReview, res.Status)
		assert.Equal(t, "Multiple AP total lines found in Balance Sheet as of 2025-12-31; cannot verify.", res.Summary)
		assert.Equal(t, "Use a single AP total line or configure specific account refs.", res.HumanAction)
		assert.Len(t, res.Details, 2)
	})

	t.Run("name inference sums substring and token matches", func(t *testing.T) {
		ctx := reviewContext(
			account("acct::AP1", "Accounts Payable (CAD)", "800.00"),
			account("acct::AP2", "A/P Trade", "400.00"),
			account("acct::CAP", "CA/Pacific Vendors", "999.00"),
		)
		ctx.Evidence = evidenceBundle(
			amountEvidence("ap_aging_summary_total", "1200.00", testPeriodEnd),
			amountEvidence("ap_aging_detail_total", "1200.00", testPeriodEnd),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusPass, res.Status)
		require.Len(t, res.Details, 3)
		assert.Equal(t, "acct::AP1", res.Details[0].Key)
		assert.Equal(t, "acct::AP2", res.Details[1].Key)
		assert.Equal(t, true, res.Details[0].Values["inferred_by_name_match"])
		assert.Equal(t, "1200.00", res.Details[2].Values["bs_total"])
	})

	t.Run("summary report dated off period end cannot be verified", func(t *testing.T) {
		ctx := reviewContext(account("report::total-ap", "Total Accounts Payable", "1200.00"))
		ctx.Evidence = evidenceBundle(
			amountEvidence("ap_aging_summary_total", "1200.00", "2025-11-30"),
			amountEvidence("ap_aging_detail_total", "1200.00", testPeriodEnd),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusNeedsReview, res.Status)
		assert.Equal(t, "AP aging summary as-of date is missing or does not match period end; cannot verify.", res.Summary)
		assert.Equal(t, "Provide the AP aging summary as of the period end date.", res.HumanAction)
		assert.Len(t, res.EvidenceUsed, 1)
	})

	t.Run("detail report dated off period end cannot be verified", func(t *testing.T) {
		ctx := reviewContext(account("report::total-ap", "Total Accounts Payable", "1200.00"))
		ctx.Evidence = evidenceBundle(
			amountEvidence("ap_aging_summary_total", "1200.00", testPeriodEnd),
			amountEvidence("ap_aging_detail_total", "1200.00", "2025-11-30"),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusNeedsReview, res.Status)
		assert.Equal(t, "AP aging detail as-of date is missing or does not match period end; cannot verify.", res.Summary)
		assert.Equal(t, "Provide the AP aging detail report as of the period end date.", res.HumanAction)
	})

	t.Run("missing summary evidence cannot be verified", func(t *testing.T) {
		ctx := reviewContext(account("report::total-ap", "Total Accounts Payable", "1200.00"))

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusNeedsReview, res.Status)
		assert.Equal(t, "Missing AP aging summary total for 2025-12-31; cannot verify.", res.Summary)
		assert.Empty(t, res.EvidenceUsed)
	})

	t.Run("missing detail evidence cannot be verified", func(t *testing.T) {
		ctx := reviewContext(account("report::total-ap", "Total Accounts Payable", "1200.00"))
		ctx.Evidence = evidenceBundle(amountEvidence("ap_aging_summary_total", "1200.00", testPeriodEnd))

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusNeedsReview, res.Status)
		assert.Equal(t, "Missing AP aging detail total for 2025-12-31; cannot verify.", res.Summary)
	})

	t.Run("configured refs missing from the balance sheet cannot be verified", func(t *testing.T) {
		ctx := reviewContext(account("acct::MISC", "Office Supplies Payable Reserve", "100.00"))
		ctx.ClientConfig = configFor(rule.ID(), `{"account_refs": ["acct::MISC", "acct::GONE"]}`)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusNeedsReview, res.Status)
		assert.Equal(t,
			"Some configured AP accounts were missing from the Balance Sheet as of 2025-12-31; cannot verify.",
			res.Summary)
		require.Len(t, res.Details, 1)
		assert.Equal(t, "acct::GONE", res.Details[0].Key)
		assert.Equal(t, "Configured account not found in balance sheet snapshot.", res.Details[0].Message)
	})

	t.Run("no payable accounts is not applicable", func(t *testing.T) {
		ctx := reviewContext(account("acct::BANK1", "Operating Chequing", "1000.00"))

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusNotApplicable, res.Status)
		assert.Equal(t, "No Accounts Payable accounts found as of 2025-12-31.", res.Summary)
	})
}

func TestARSubledgerReconciles(t *testing.T) {
	rule := NewARSubledgerReconciles()

	t.Run("total line ties out to summary and detail", func(t *testing.T) {
		ctx := reviewContext(account("report::total-ar", "Total Accounts Receivable", "3300.00"))
		ctx.Evidence = evidenceBundle(
			amountEvidence("ar_aging_summary_total", "3300.00", testPeriodEnd),
			amountEvidence("ar_aging_detail_total", "3300.00", testPeriodEnd),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusPass, res.Status)
		assert.Equal(t, "AR aging totals reconcile to the Balance Sheet as of 2025-12-31.", res.Summary)
		assert.Equal(t, "ar_aging_totals", res.Details[len(res.Details)-1].Key)
	})

	t.Run("receivable token bounds the match", func(t *testing.T) {
		ctx := reviewContext(account("acct::AR1", "A/R Trade", "500.00"))
		ctx.Evidence = evidenceBundle(
			amountEvidence("ar_aging_summary_total", "500.00", testPeriodEnd),
			amountEvidence("ar_aging_detail_total", "500.00", testPeriodEnd),
		)

		res := rule.Evaluate(ctx)

		assert.Equal(t, review.StatusPass, res.Status)
		require.Len(t, res.Details, 2)
		assert.Equal(t, "acct::AR1", res.Details[0].Key)
	})
}
