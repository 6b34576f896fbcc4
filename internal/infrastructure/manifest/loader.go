package manifest

import (
	"fmt"
	"os"

	"github.com/closebooks/backend/internal/domain/shared"
)

// Sources names the input files of one review run. BalanceSheetPath is
// required; every other file is optional and simply absent from the
// assembled inputs when its path is empty.
type Sources struct {
	BalanceSheetPath      string
	PriorBalanceSheetPath string
	ProfitAndLossPath     string
	EvidencePath          string
	ReconciliationPaths   []string
	ClientConfigPath      string
}

// LoadRunInputs reads and decodes each named file into assembled run inputs.
// The period end is the balance sheet's as_of_date.
func LoadRunInputs(src Sources) (Inputs, error) {
	if src.BalanceSheetPath == "" {
		return Inputs{}, fmt.Errorf("%w: balance sheet path is required", shared.ErrInvalidInput)
	}

	var in Inputs

	raw, err := os.ReadFile(src.BalanceSheetPath)
	if err != nil {
		return Inputs{}, fmt.Errorf("read balance sheet: %w", err)
	}
	if in.BalanceSheet, err = DecodeBalanceSheet(raw); err != nil {
		return Inputs{}, fmt.Errorf("%s: %w", src.BalanceSheetPath, err)
	}

	if src.PriorBalanceSheetPath != "" {
		raw, err := os.ReadFile(src.PriorBalanceSheetPath)
		if err != nil {
			return Inputs{}, fmt.Errorf("read prior balance sheet: %w", err)
		}
		prior, err := DecodeBalanceSheet(raw)
		if err != nil {
			return Inputs{}, fmt.Errorf("%s: %w", src.PriorBalanceSheetPath, err)
		}
		in.PriorBalanceSheet = &prior
	}

	if src.ProfitAndLossPath != "" {
		raw, err := os.ReadFile(src.ProfitAndLossPath)
		if err != nil {
			return Inputs{}, fmt.Errorf("read profit and loss: %w", err)
		}
		pl, err := DecodeProfitAndLoss(raw)
		if err != nil {
			return Inputs{}, fmt.Errorf("%s: %w", src.ProfitAndLossPath, err)
		}
		in.ProfitAndLoss = &pl
	}

	if src.EvidencePath != "" {
		raw, err := os.ReadFile(src.EvidencePath)
		if err != nil {
			return Inputs{}, fmt.Errorf("read evidence manifest: %w", err)
		}
		if in.Evidence, err = DecodeEvidenceManifest(raw); err != nil {
			return Inputs{}, fmt.Errorf("%s: %w", src.EvidencePath, err)
		}
	}

	for _, path := range src.ReconciliationPaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Inputs{}, fmt.Errorf("read reconciliation report: %w", err)
		}
		rec, err := DecodeReconciliationReport(raw)
		if err != nil {
			return Inputs{}, fmt.Errorf("%s: %w", path, err)
		}
		in.Reconciliations = append(in.Reconciliations, rec)
	}

	if src.ClientConfigPath != "" {
		raw, err := os.ReadFile(src.ClientConfigPath)
		if err != nil {
			return Inputs{}, fmt.Errorf("read client config: %w", err)
		}
		if in.ClientConfig, err = DecodeClientRulesConfig(raw); err != nil {
			return Inputs{}, fmt.Errorf("%s: %w", src.ClientConfigPath, err)
		}
	}

	// DecodeBalanceSheet guarantees as_of_date is present
	in.PeriodEnd = in.BalanceSheet.AsOfDate
	return in, nil
}
