package review

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ReportTotalPrefix marks balance-sheet rows that are report subtotals
// rather than leaf accounts (e.g. "report::Total Accounts Payable").
const ReportTotalPrefix = "report::"

// DefaultCurrency is assumed when a snapshot does not carry one
const DefaultCurrency = "USD"

// TotalRevenue is the only P&L total label the engine reads
const TotalRevenue = "revenue"

// AccountBalance is one balance-sheet row as of the snapshot date
type AccountBalance struct {
	AccountRef string          `json:"account_ref"`
	Name       string          `json:"name"`
	Balance    decimal.Decimal `json:"balance"`
	Type       string          `json:"type,omitempty"`
	Subtype    string          `json:"subtype,omitempty"`
}

// IsReportTotal reports whether the row is an aggregate report line
func (a AccountBalance) IsReportTotal() bool {
	return strings.HasPrefix(a.AccountRef, ReportTotalPrefix)
}

// IsLeaf reports whether the row is a leaf account
func (a AccountBalance) IsLeaf() bool {
	return !a.IsReportTotal()
}

// BalanceSheetSnapshot is the balance sheet as of a single date.
// At most one row exists per account_ref, except report total rows.
type BalanceSheetSnapshot struct {
	AsOfDate Date             `json:"as_of_date"`
	Currency string           `json:"currency,omitempty"`
	Accounts []AccountBalance `json:"accounts"`
}

// Account returns the first row with the given account_ref, or nil
func (s BalanceSheetSnapshot) Account(ref string) *AccountBalance {
	for i := range s.Accounts {
		if s.Accounts[i].AccountRef == ref {
			return &s.Accounts[i]
		}
	}
	return nil
}

// ProfitAndLossSnapshot carries P&L totals for a reporting period
type ProfitAndLossSnapshot struct {
	PeriodStart Date                       `json:"period_start"`
	PeriodEnd   Date                       `json:"period_end"`
	Currency    string                     `json:"currency,omitempty"`
	Totals      map[string]decimal.Decimal `json:"totals"`
}

// Total returns the named total, or nil when absent
func (s ProfitAndLossSnapshot) Total(label string) *decimal.Decimal {
	if s.Totals == nil {
		return nil
	}
	v, ok := s.Totals[label]
	if !ok {
		return nil
	}
	return &v
}

// EvidenceItem is one piece of supporting evidence (statement extract,
// aging report total, tax export, ...). Rules key on EvidenceType; Meta
// carries per-type structure (see the adapter contract).
type EvidenceItem struct {
	EvidenceType     string           `json:"evidence_type" yaml:"evidence_type"`
	Source           string           `json:"source,omitempty" yaml:"source,omitempty"`
	AsOfDate         *Date            `json:"as_of_date,omitempty" yaml:"as_of_date,omitempty"`
	StatementEndDate *Date            `json:"statement_end_date,omitempty" yaml:"statement_end_date,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty" yaml:"amount,omitempty"`
	URI              string           `json:"uri,omitempty" yaml:"uri,omitempty"`
	Meta             map[string]any   `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// MetaItems returns meta["items"] as a list of objects (nil when absent)
func (e EvidenceItem) MetaItems() []map[string]any {
	if e.Meta == nil {
		return nil
	}
	return objectList(e.Meta["items"])
}

// MetaValue returns a raw meta field (nil when absent)
func (e EvidenceItem) MetaValue(key string) any {
	if e.Meta == nil {
		return nil
	}
	return e.Meta[key]
}

// EvidenceBundle is the unordered evidence collection for a run
type EvidenceBundle struct {
	Items []EvidenceItem `json:"items"`
}

// First returns the first item of the given evidence type, or nil
func (b EvidenceBundle) First(evidenceType string) *EvidenceItem {
	for i := range b.Items {
		if b.Items[i].EvidenceType == evidenceType {
			return &b.Items[i]
		}
	}
	return nil
}

// AllOf returns every item of the given evidence type, in bundle order
func (b EvidenceBundle) AllOf(evidenceType string) []EvidenceItem {
	var out []EvidenceItem
	for i := range b.Items {
		if b.Items[i].EvidenceType == evidenceType {
			out = append(out, b.Items[i])
		}
	}
	return out
}

// ReconciliationSnapshot captures one account's bank/credit-card
// reconciliation state as of a statement end date.
type ReconciliationSnapshot struct {
	AccountRef                  string           `json:"account_ref"`
	AccountName                 string           `json:"account_name"`
	StatementEndDate            *Date            `json:"statement_end_date,omitempty"`
	StatementEndingBalance      *decimal.Decimal `json:"statement_ending_balance,omitempty"`
	BookBalanceAsOfStatementEnd *decimal.Decimal `json:"book_balance_as_of_statement_end,omitempty"`
	BookBalanceAsOfPeriodEnd    *decimal.Decimal `json:"book_balance_as_of_period_end,omitempty"`
	Source                      string           `json:"source,omitempty"`
	Meta                        map[string]any   `json:"meta,omitempty"`
}

// UnclearedItems returns the uncleared-item rows from the snapshot meta.
// The nested shape meta["uncleared_items"] = {"as_at": [...], "after_date":
// [...]} is canonical; the flat keys "uncleared_items_as_at" and
// "uncleared_items_after_date" are accepted as a fallback.
func (r ReconciliationSnapshot) UnclearedItems() (asAt, afterDate []map[string]any) {
	if r.Meta == nil {
		return nil, nil
	}
	if bucket, ok := r.Meta["uncleared_items"].(map[string]any); ok {
		return objectList(bucket["as_at"]), objectList(bucket["after_date"])
	}
	return objectList(r.Meta["uncleared_items_as_at"]), objectList(r.Meta["uncleared_items_after_date"])
}
