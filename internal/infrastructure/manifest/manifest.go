// Package manifest decodes canonical JSON review inputs into domain types.
// The decoders are pure (bytes in, snapshots out); LoadRunInputs is the one
// entry point that touches the filesystem, assembling a run from named files.
// Decimal fields accept JSON strings or numbers; meta payloads keep numeric
// precision via json.Number so rules can re-parse amounts exactly.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/closebooks/backend/internal/domain/review"
	"github.com/closebooks/backend/internal/domain/shared"
)

// decodeJSON unmarshals raw into out with json.Number preserved for untyped
// positions (evidence/reconciliation meta maps).
func decodeJSON(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}

// DecodeBalanceSheet parses a canonical balance sheet snapshot document
func DecodeBalanceSheet(raw []byte) (review.BalanceSheetSnapshot, error) {
	var snap review.BalanceSheetSnapshot
	if err := decodeJSON(raw, &snap); err != nil {
		return review.BalanceSheetSnapshot{}, fmt.Errorf("%w: balance sheet: %v", shared.ErrInvalidInput, err)
	}
	if snap.AsOfDate.IsZero() {
		return review.BalanceSheetSnapshot{}, fmt.Errorf("%w: balance sheet missing as_of_date", shared.ErrMissingData)
	}
	return snap, nil
}

// DecodeProfitAndLoss parses a canonical profit and loss snapshot document
func DecodeProfitAndLoss(raw []byte) (review.ProfitAndLossSnapshot, error) {
	var snap review.ProfitAndLossSnapshot
	if err := decodeJSON(raw, &snap); err != nil {
		return review.ProfitAndLossSnapshot{}, fmt.Errorf("%w: profit and loss: %v", shared.ErrInvalidInput, err)
	}
	return snap, nil
}

// DecodeClientRulesConfig parses the per-client rules configuration envelope.
// Payload validation happens later, per rule, at decode time inside the rule.
func DecodeClientRulesConfig(raw []byte) (review.ClientRulesConfig, error) {
	var cfg review.ClientRulesConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return review.ClientRulesConfig{}, fmt.Errorf("%w: client rules config: %v", shared.ErrInvalidInput, err)
	}
	return cfg, nil
}
