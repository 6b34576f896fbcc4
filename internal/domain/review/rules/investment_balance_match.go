package rules

import "github.com/closebooks/backend/internal/domain/review"

// InvestmentBalanceMatch ties the investment account to the custodian
// statement.
type InvestmentBalanceMatch struct {
	balanceMatch
}

func NewInvestmentBalanceMatch() *InvestmentBalanceMatch {
	return &InvestmentBalanceMatch{balanceMatch{
		BaseRule: review.NewBaseRule(
			"BS-INVESTMENT-BALANCE-MATCH",
			"Investment balance matches QBO and statement",
			"Loans/investments schedules or statements should be available and reconciled monthly",
			[]string{"Google Drive (investment statement)", "QBO (Balance Sheet)"},
		),
		noun:           "investment",
		evidenceNoun:   "investment statement",
		shortEvidence:  "statement",
		balanceKey:     "statement_balance",
		compareMessage: "Investment balance compared to statement.",
		missingMessage: "Investment balance needs statement evidence to verify.",
		asOfAction:     "Provide an investment statement as of the period end date.",
		failAction:     "Confirm the statement basis (cost vs market) and reconcile QBO if it should match.",
		defaultConfig: func() *BalanceMatchConfig {
			return defaultBalanceMatchConfig("investment", "investment_statement_balance")
		},
	}}
}
