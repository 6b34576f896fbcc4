// Package rules holds the built-in balance-sheet review rule catalog.
// Every rule is a pure evaluator over a review.RuleContext; registration
// happens explicitly through RegisterBuiltins, never via import side
// effects.
package rules

import "github.com/closebooks/backend/internal/domain/review"

// Builtins returns fresh instances of every built-in rule in canonical
// catalog order. The order is observable: it fixes run order, result order
// and catalog export order.
func Builtins() []review.Rule {
	return []review.Rule{
		NewBankReconciled(),
		NewOverdueItems(),
		NewIntercompanyOrShareholderPaid(),
		NewNegativeOpenItems(),
		NewYearEndBatchAdjustments(),
		NewIntercompanyBalancesReconcile(),
		NewAPSubledgerReconciles(),
		NewARSubledgerReconciles(),
		NewClearingAccountsZero(),
		NewClearingAccountsNonSalesZero(),
		NewInvestmentBalanceMatch(),
		NewLoanBalanceMatch(),
		NewPlootoClearingZero(),
		NewPlootoInstantBalanceDisclosure(),
		NewUnclearedItems(),
		NewPettyCashMatch(),
		NewUndepositedFundsZero(),
		NewWorkingPaperReconciles(),
		NewTaxFilingsUpToDate(),
		NewTaxPayableSuspenseReconcile(),
		NewBalanceUnchangedPriorMonth(),
	}
}

// RegisterBuiltins registers the full catalog into reg, panicking on
// duplicate ids.
func RegisterBuiltins(reg *review.Registry) {
	for _, rule := range Builtins() {
		reg.MustRegister(rule)
	}
}

// NewBuiltinRegistry returns a registry pre-populated with the built-in
// catalog.
func NewBuiltinRegistry() *review.Registry {
	reg := review.NewRegistry()
	RegisterBuiltins(reg)
	return reg
}
