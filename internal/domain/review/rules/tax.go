package rules

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/closebooks/backend/internal/domain/review"
)

// taxAgency, taxReturn and taxPayment mirror the QBO TaxAgency, TaxReturn
// and TaxPayment exports flattened into evidence meta items.
type taxAgency struct {
	ID                string
	DisplayName       string
	LastFileDate      *review.Date
	TaxTrackedOnSales bool
}

type taxReturn struct {
	AgencyID        string
	StartDate       *review.Date
	EndDate         *review.Date
	FileDate        *review.Date
	NetTaxAmountDue *decimal.Decimal
}

type taxPayment struct {
	AgencyID      string
	PaymentDate   *review.Date
	PaymentAmount *decimal.Decimal
	Refund        bool
}

func parseTaxAgencies(item *review.EvidenceItem) []taxAgency {
	var out []taxAgency
	for _, m := range item.MetaItems() {
		out = append(out, taxAgency{
			ID:                strings.TrimSpace(review.MetaString(m["id"])),
			DisplayName:       review.MetaString(m["display_name"]),
			LastFileDate:      review.MetaDate(m["last_file_date"]),
			TaxTrackedOnSales: review.MetaBool(m["tax_tracked_on_sales"]),
		})
	}
	return out
}

func parseTaxReturns(item *review.EvidenceItem) []taxReturn {
	var out []taxReturn
	for _, m := range item.MetaItems() {
		out = append(out, taxReturn{
			AgencyID:        strings.TrimSpace(review.MetaString(m["agency_id"])),
			StartDate:       review.MetaDate(m["start_date"]),
			EndDate:         review.MetaDate(m["end_date"]),
			FileDate:        review.MetaDate(m["file_date"]),
			NetTaxAmountDue: review.MetaDecimal(m["net_tax_amount_due"]),
		})
	}
	return out
}

func parseTaxPayments(item *review.EvidenceItem) []taxPayment {
	var out []taxPayment
	for _, m := range item.MetaItems() {
		out = append(out, taxPayment{
			AgencyID:      strings.TrimSpace(review.MetaString(m["agency_id"])),
			PaymentDate:   review.MetaDate(m["payment_date"]),
			PaymentAmount: review.MetaDecimal(m["payment_amount"]),
			Refund:        review.MetaBool(m["refund"]),
		})
	}
	return out
}

// taxCadenceMonths infers a filing cadence from one return's period length in
// days, inclusive of both endpoints. Observed QBO filing periods: 28-31 days
// monthly, 89-92 quarterly, 365-366 annual. Anything outside those ranges is
// ambiguous and yields 0 so the caller can flag the agency for review.
func taxCadenceMonths(start, end *review.Date) int {
	if start == nil || end == nil || end.Before(*start) {
		return 0
	}
	days := start.DaysUntil(*end) + 1
	switch {
	case days >= 28 && days <= 31:
		return 1
	case days >= 89 && days <= 92:
		return 3
	case days >= 365 && days <= 366:
		return 12
	}
	return 0
}

// expectedTaxPeriodEnd rolls the cadence from the anchor (the latest known
// filing period end) to the most recent scheduled period end on or before
// periodEnd. Filing periods roll month-end to month-end, never aligned to
// calendar quarters.
func expectedTaxPeriodEnd(periodEnd review.Date, cadenceMonths int, anchor *review.Date) *review.Date {
	if cadenceMonths == 0 || anchor == nil {
		return nil
	}
	current := *anchor
	if current.After(periodEnd) {
		for current.After(periodEnd) {
			current = current.RollMonths(-cadenceMonths)
		}
		return &current
	}
	for {
		next := current.RollMonths(cadenceMonths)
		if next.After(periodEnd) {
			return &current
		}
		current = next
	}
}
