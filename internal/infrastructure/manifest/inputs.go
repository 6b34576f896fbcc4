package manifest

import (
	"fmt"

	"github.com/closebooks/backend/internal/domain/review"
	"github.com/closebooks/backend/internal/domain/shared"
)

// Inputs is one fully assembled review run: every snapshot, the evidence
// bundle and the client configuration. The HTTP run endpoint decodes it from
// the request body; the CLI assembles it from individual files.
type Inputs struct {
	PeriodEnd         review.Date
	BalanceSheet      review.BalanceSheetSnapshot
	PriorBalanceSheet *review.BalanceSheetSnapshot
	ProfitAndLoss     *review.ProfitAndLossSnapshot
	Evidence          review.EvidenceBundle
	Reconciliations   []review.ReconciliationSnapshot
	ClientConfig      review.ClientRulesConfig
}

type runDocument struct {
	PeriodEnd         review.Date                     `json:"period_end"`
	BalanceSheet      *review.BalanceSheetSnapshot    `json:"balance_sheet"`
	PriorBalanceSheet *review.BalanceSheetSnapshot    `json:"prior_balance_sheet"`
	ProfitAndLoss     *review.ProfitAndLossSnapshot   `json:"profit_and_loss"`
	Evidence          *evidenceManifest               `json:"evidence"`
	Reconciliations   []review.ReconciliationSnapshot `json:"reconciliations"`
	ClientConfig      *review.ClientRulesConfig       `json:"client_config"`
}

// DecodeRunInputs parses a single run document holding all canonical inputs.
// period_end defaults to the balance sheet's as_of_date when absent.
func DecodeRunInputs(raw []byte) (Inputs, error) {
	var doc runDocument
	if err := decodeJSON(raw, &doc); err != nil {
		return Inputs{}, fmt.Errorf("%w: run inputs: %v", shared.ErrInvalidInput, err)
	}
	if doc.BalanceSheet == nil {
		return Inputs{}, fmt.Errorf("%w: run inputs missing balance_sheet", shared.ErrMissingData)
	}

	in := Inputs{
		PeriodEnd:         doc.PeriodEnd,
		BalanceSheet:      *doc.BalanceSheet,
		PriorBalanceSheet: doc.PriorBalanceSheet,
		ProfitAndLoss:     doc.ProfitAndLoss,
		Reconciliations:   doc.Reconciliations,
	}
	if in.PeriodEnd.IsZero() {
		in.PeriodEnd = in.BalanceSheet.AsOfDate
	}
	if in.PeriodEnd.IsZero() {
		return Inputs{}, fmt.Errorf("%w: run inputs missing period_end and balance sheet as_of_date",
			shared.ErrMissingData)
	}
	if doc.Evidence != nil {
		items, err := normalizeEvidence(doc.Evidence.entries())
		if err != nil {
			return Inputs{}, err
		}
		in.Evidence = review.EvidenceBundle{Items: items}
	}
	if doc.ClientConfig != nil {
		in.ClientConfig = *doc.ClientConfig
	}
	return in, nil
}

// RuleContext assembles the immutable context rules evaluate against
func (in Inputs) RuleContext() review.RuleContext {
	return review.RuleContext{
		PeriodEnd:         in.PeriodEnd,
		BalanceSheet:      in.BalanceSheet,
		PriorBalanceSheet: in.PriorBalanceSheet,
		ProfitAndLoss:     in.ProfitAndLoss,
		Evidence:          in.Evidence,
		Reconciliations:   in.Reconciliations,
		ClientConfig:      in.ClientConfig,
	}
}
