package manifest

import (
	"fmt"

	"github.com/closebooks/backend/internal/domain/review"
	"github.com/closebooks/backend/internal/domain/shared"
)

// reconciliationReport mirrors the QBO reconciliation report export. Id,
// balance and date fields are kept untyped: exports mix strings and numbers
// for the same field across clients.
type reconciliationReport struct {
	Report struct {
		Type         string `json:"type"`
		ReconciledOn any    `json:"reconciled_on"`
	} `json:"report"`
	Account struct {
		ID   any `json:"id"`
		Name any `json:"name"`
	} `json:"account"`
	Period struct {
		Ending any `json:"ending"`
	} `json:"period"`
	Summary struct {
		StatementEndingBalance any `json:"statement_ending_balance"`
		RegisterBalanceAsOf    struct {
			Date    any `json:"date"`
			Balance any `json:"balance"`
		} `json:"register_balance_as_of"`
	} `json:"summary"`
	UnclearedItems map[string]any `json:"uncleared_items"`
}

// DecodeReconciliationReport maps a QBO reconciliation report document onto a
// reconciliation snapshot. The account ref prefers the account id and falls
// back to "name::<account name>"; the register balance doubles as the book
// balance as of period end only when the register date equals the period
// ending exactly.
func DecodeReconciliationReport(raw []byte) (review.ReconciliationSnapshot, error) {
	var report reconciliationReport
	if err := decodeJSON(raw, &report); err != nil {
		return review.ReconciliationSnapshot{}, fmt.Errorf("%w: reconciliation report: %v", shared.ErrInvalidInput, err)
	}

	accountName := review.MetaString(report.Account.Name)
	accountRef := review.MetaString(report.Account.ID)
	if accountRef == "" && accountName != "" {
		accountRef = "name::" + accountName
	}
	if accountRef == "" {
		return review.ReconciliationSnapshot{}, fmt.Errorf(
			"%w: reconciliation report missing account id and name", shared.ErrMissingData)
	}

	periodEnd := review.MetaDate(report.Period.Ending)
	registerDate := review.MetaDate(report.Summary.RegisterBalanceAsOf.Date)
	statementEndDate := periodEnd
	if statementEndDate == nil {
		statementEndDate = registerDate
	}

	statementEndingBalance := review.MetaDecimal(report.Summary.StatementEndingBalance)
	registerBalance := review.MetaDecimal(report.Summary.RegisterBalanceAsOf.Balance)

	bookBalanceAsOfStatementEnd := registerBalance
	if bookBalanceAsOfStatementEnd == nil {
		bookBalanceAsOfStatementEnd = statementEndingBalance
	}

	snap := review.ReconciliationSnapshot{
		AccountRef:                  accountRef,
		AccountName:                 accountName,
		StatementEndDate:            statementEndDate,
		StatementEndingBalance:      statementEndingBalance,
		BookBalanceAsOfStatementEnd: bookBalanceAsOfStatementEnd,
		Source:                      DefaultEvidenceSource,
		Meta: map[string]any{
			"report_type":                 report.Report.Type,
			"reconciled_on":               review.MetaString(report.Report.ReconciledOn),
			"register_balance_as_of_date": dateStringOrNil(registerDate),
		},
	}
	if registerDate != nil && periodEnd != nil && registerDate.Equal(*periodEnd) {
		snap.BookBalanceAsOfPeriodEnd = registerBalance
	}
	if report.UnclearedItems != nil {
		snap.Meta["uncleared_items"] = report.UnclearedItems
	}
	return snap, nil
}

func dateStringOrNil(d *review.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}
