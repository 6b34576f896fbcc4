package manifest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closebooks/backend/internal/domain/review"
	"github.com/closebooks/backend/internal/domain/shared"
)

func TestDecodeEvidenceManifest(t *testing.T) {
	t.Run("parses items under the evidence key", func(t *testing.T) {
		raw := []byte(`{
			"evidence": [
				{
					"evidence_type": "statement_balance_attachment",
					"amount": "4580.25",
					"as_of_date": "2025-11-30",
					"uri": "fixture://statements/paypal-aud-2025-11.pdf",
					"meta": {"account_name_match": "paypal"}
				},
				{"evidence_type": "petty_cash_support", "amount": 200.00, "as_of_date": "2025-12-31"},
				{"evidence_type": "ap_aging_summary_total", "amount": "1200.00", "as_of_date": "2025-12-31", "source": "qbo"}
			]
		}`)

		bundle, err := DecodeEvidenceManifest(raw)
		require.NoError(t, err)
		require.Len(t, bundle.Items, 3)

		first := bundle.Items[0]
		assert.Equal(t, "statement_balance_attachment", first.EvidenceType)
		assert.Equal(t, "fixture", first.Source)
		assert.Equal(t, "fixture://statements/paypal-aud-2025-11.pdf", first.URI)
		require.NotNil(t, first.Amount)
		assert.True(t, first.Amount.Equal(decimal.RequireFromString("4580.25")))
		require.NotNil(t, first.AsOfDate)
		assert.Equal(t, "2025-11-30", first.AsOfDate.String())
		assert.Equal(t, "paypal", review.MetaString(first.MetaValue("account_name_match")))

		assert.Equal(t, "fixture", bundle.Items[1].Source)
		assert.Equal(t, "qbo", bundle.Items[2].Source)
	})

	t.Run("accepts the canonical items key", func(t *testing.T) {
		raw := []byte(`{"items": [{"evidence_type": "loan_schedule", "amount": "-18500.00"}]}`)

		bundle, err := DecodeEvidenceManifest(raw)
		require.NoError(t, err)
		require.Len(t, bundle.Items, 1)
		assert.Equal(t, "loan_schedule", bundle.Items[0].EvidenceType)
	})

	t.Run("meta numbers keep decimal precision", func(t *testing.T) {
		raw := []byte(`{"evidence": [{"evidence_type": "ap_aging_detail_total", "meta": {"items": [{"open_balance": 1234.56}]}}]}`)

		bundle, err := DecodeEvidenceManifest(raw)
		require.NoError(t, err)
		rows := bundle.Items[0].MetaItems()
		require.Len(t, rows, 1)
		amount := review.MetaDecimal(rows[0]["open_balance"])
		require.NotNil(t, amount)
		assert.Equal(t, "1234.56", amount.String())
	})

	t.Run("entry without evidence_type is rejected", func(t *testing.T) {
		raw := []byte(`{"evidence": [{"amount": "1.00"}]}`)

		_, err := DecodeEvidenceManifest(raw)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrMissingData)
		assert.Contains(t, err.Error(), "evidence_type")
	})

	t.Run("empty manifest yields an empty bundle", func(t *testing.T) {
		bundle, err := DecodeEvidenceManifest([]byte(`{}`))
		require.NoError(t, err)
		assert.Empty(t, bundle.Items)
	})

	t.Run("malformed json is rejected", func(t *testing.T) {
		_, err := DecodeEvidenceManifest([]byte(`{"evidence": [`))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestDecodeReconciliationReport(t *testing.T) {
	t.Run("maps balances from the report summary", func(t *testing.T) {
		raw := []byte(`{
			"report": {"type": "reconciliation", "reconciled_on": "2025-12-03"},
			"account": {"id": "35", "name": "Paypal AUD Account"},
			"period": {"ending": "2025-11-30"},
			"summary": {
				"statement_ending_balance": "4580.25",
				"register_balance_as_of": {"date": "2025-11-30", "balance": "4580.25"}
			}
		}`)

		snap, err := DecodeReconciliationReport(raw)
		require.NoError(t, err)
		assert.Equal(t, "35", snap.AccountRef)
		assert.Equal(t, "Paypal AUD Account", snap.AccountName)
		assert.Equal(t, "fixture", snap.Source)
		require.NotNil(t, snap.StatementEndDate)
		assert.Equal(t, "2025-11-30", snap.StatementEndDate.String())
		require.NotNil(t, snap.StatementEndingBalance)
		assert.Equal(t, "4580.25", review.DecimalString(*snap.StatementEndingBalance))
		require.NotNil(t, snap.BookBalanceAsOfStatementEnd)
		assert.Equal(t, "4580.25", review.DecimalString(*snap.BookBalanceAsOfStatementEnd))
		require.NotNil(t, snap.BookBalanceAsOfPeriodEnd)
		assert.Equal(t, "reconciliation", snap.Meta["report_type"])
		assert.Equal(t, "2025-12-03", snap.Meta["reconciled_on"])
		assert.Equal(t, "2025-11-30", snap.Meta["register_balance_as_of_date"])
	})

	t.Run("register date newer than period ending is not a period end balance", func(t *testing.T) {
		raw := []byte(`{
			"account": {"name": "Operating Chequing"},
			"period": {"ending": "2025-11-30"},
			"summary": {
				"statement_ending_balance": "5000.00",
				"register_balance_as_of": {"date": "2025-12-31", "balance": "5100.00"}
			}
		}`)

		snap, err := DecodeReconciliationReport(raw)
		require.NoError(t, err)
		assert.Equal(t, "name::Operating Chequing", snap.AccountRef)
		require.NotNil(t, snap.StatementEndDate)
		assert.Equal(t, "2025-11-30", snap.StatementEndDate.String())
		require.NotNil(t, snap.BookBalanceAsOfStatementEnd)
		assert.Equal(t, "5100.00", review.DecimalString(*snap.BookBalanceAsOfStatementEnd))
		assert.Nil(t, snap.BookBalanceAsOfPeriodEnd)
	})

	t.Run("register balance backfills a missing statement ending balance", func(t *testing.T) {
		raw := []byte(`{
			"account": {"id": 35, "name": "Operating Chequing"},
			"summary": {"register_balance_as_of": {"date": "2025-11-30", "balance": "5100.00"}}
		}`)

		snap, err := DecodeReconciliationReport(raw)
		require.NoError(t, err)
		assert.Equal(t, "35", snap.AccountRef)
		require.NotNil(t, snap.StatementEndDate)
		assert.Equal(t, "2025-11-30", snap.StatementEndDate.String())
		assert.Nil(t, snap.StatementEndingBalance)
		require.NotNil(t, snap.BookBalanceAsOfStatementEnd)
	})

	t.Run("uncleared item rows are carried into meta", func(t *testing.T) {
		raw := []byte(`{
			"account": {"name": "Operating Chequing"},
			"period": {"ending": "2025-11-30"},
			"summary": {"statement_ending_balance": "5000.00"},
			"uncleared_items": {
				"as_at": [{"txn_date": "2025-08-15", "amount": "-120.00", "description": "Cheque 142"}],
				"after_date": [{"txn_date": "2025-12-02", "amount": "35.00"}]
			}
		}`)

		snap, err := DecodeReconciliationReport(raw)
		require.NoError(t, err)
		asAt, afterDate := snap.UnclearedItems()
		require.Len(t, asAt, 1)
		assert.Equal(t, "Cheque 142", review.MetaString(asAt[0]["description"]))
		assert.Len(t, afterDate, 1)
	})

	t.Run("report without account identity is rejected", func(t *testing.T) {
		_, err := DecodeReconciliationReport([]byte(`{"period": {"ending": "2025-11-30"}}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrMissingData)
	})
}

func TestDecodeBalanceSheet(t *testing.T) {
	t.Run("parses a canonical snapshot", func(t *testing.T) {
		raw := []byte(`{
			"as_of_date": "2025-12-31",
			"currency": "CAD",
			"accounts": [
				{"account_ref": "acct::CHK", "name": "Operating Chequing", "balance": "5000.00", "type": "Bank"},
				{"account_ref": "report::Total Assets", "name": "Total Assets", "balance": 95000.10}
			]
		}`)

		snap, err := DecodeBalanceSheet(raw)
		require.NoError(t, err)
		assert.Equal(t, "2025-12-31", snap.AsOfDate.String())
		assert.Equal(t, "CAD", snap.Currency)
		require.Len(t, snap.Accounts, 2)
		assert.Equal(t, "5000.00", review.DecimalString(snap.Accounts[0].Balance))
		assert.True(t, snap.Accounts[1].IsReportTotal())
	})

	t.Run("missing as_of_date is rejected", func(t *testing.T) {
		_, err := DecodeBalanceSheet([]byte(`{"accounts": []}`))
		assert.ErrorIs(t, err, shared.ErrMissingData)
	})
}

func TestDecodeProfitAndLoss(t *testing.T) {
	raw := []byte(`{
		"period_start": "2025-12-01",
		"period_end": "2025-12-31",
		"totals": {"revenue": "100000.00"}
	}`)

	snap, err := DecodeProfitAndLoss(raw)
	require.NoError(t, err)
	rev := snap.Total(review.TotalRevenue)
	require.NotNil(t, rev)
	assert.Equal(t, "100000.00", review.DecimalString(*rev))
}

func TestDecodeClientRulesConfig(t *testing.T) {
	raw := []byte(`{"rules": {"BS-UNDEPOSITED-FUNDS-ZERO": {"enabled": false}}}`)

	cfg, err := DecodeClientRulesConfig(raw)
	require.NoError(t, err)
	require.Contains(t, cfg.Rules, "BS-UNDEPOSITED-FUNDS-ZERO")
}

func TestDecodeRunInputs(t *testing.T) {
	t.Run("assembles a full rule context", func(t *testing.T) {
		raw := []byte(`{
			"period_end": "2025-12-31",
			"balance_sheet": {
				"as_of_date": "2025-12-31",
				"accounts": [{"account_ref": "acct::CHK", "name": "Operating Chequing", "balance": "5000.00"}]
			},
			"prior_balance_sheet": {
				"as_of_date": "2025-11-30",
				"accounts": [{"account_ref": "acct::CHK", "name": "Operating Chequing", "balance": "4000.00"}]
			},
			"profit_and_loss": {
				"period_start": "2025-12-01",
				"period_end": "2025-12-31",
				"totals": {"revenue": "100000.00"}
			},
			"evidence": {"items": [{"evidence_type": "petty_cash_support", "amount": "200.00"}]},
			"reconciliations": [{"account_ref": "acct::CHK", "account_name": "Operating Chequing", "statement_end_date": "2025-12-31"}],
			"client_config": {"rules": {"BS-PETTY-CASH-MATCH": {"enabled": false}}}
		}`)

		in, err := DecodeRunInputs(raw)
		require.NoError(t, err)

		ctx := in.RuleContext()
		assert.Equal(t, "2025-12-31", ctx.PeriodEnd.String())
		assert.Len(t, ctx.BalanceSheet.Accounts, 1)
		require.NotNil(t, ctx.PriorBalanceSheet)
		assert.Equal(t, "2025-11-30", ctx.PriorBalanceSheet.AsOfDate.String())
		require.NotNil(t, ctx.ProfitAndLoss)
		require.Len(t, ctx.Evidence.Items, 1)
		assert.Equal(t, "fixture", ctx.Evidence.Items[0].Source)
		require.Len(t, ctx.Reconciliations, 1)
		require.Contains(t, ctx.ClientConfig.Rules, "BS-PETTY-CASH-MATCH")
	})

	t.Run("period end defaults to the balance sheet date", func(t *testing.T) {
		raw := []byte(`{"balance_sheet": {"as_of_date": "2025-12-31", "accounts": []}}`)

		in, err := DecodeRunInputs(raw)
		require.NoError(t, err)
		assert.Equal(t, "2025-12-31", in.PeriodEnd.String())
	})

	t.Run("missing balance sheet is rejected", func(t *testing.T) {
		_, err := DecodeRunInputs([]byte(`{"period_end": "2025-12-31"}`))
		assert.ErrorIs(t, err, shared.ErrMissingData)
	})

	t.Run("undated inputs are rejected", func(t *testing.T) {
		_, err := DecodeRunInputs([]byte(`{"balance_sheet": {"accounts": []}}`))
		assert.ErrorIs(t, err, shared.ErrMissingData)
	})
}
