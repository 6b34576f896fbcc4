package rules

import "github.com/closebooks/backend/internal/domain/review"

// LoanBalanceMatch ties the loan account to the amortization schedule
type LoanBalanceMatch struct {
	balanceMatch
}

func NewLoanBalanceMatch() *LoanBalanceMatch {
	return &LoanBalanceMatch{balanceMatch{
		BaseRule: review.NewBaseRule(
			"BS-LOAN-BALANCE-MATCH",
			"Loan balance matches QBO and loan schedule",
			"Loans/investments schedules or statements should be available and reconciled monthly",
			[]string{"Google Drive (loan schedule)", "QBO (Balance Sheet)"},
		),
		noun:           "loan",
		evidenceNoun:   "loan schedule",
		shortEvidence:  "schedule",
		balanceKey:     "schedule_balance",
		compareMessage: "Loan balance compared to loan schedule.",
		missingMessage: "Loan balance needs schedule evidence to verify.",
		asOfAction:     "Provide a loan schedule as of the period end date.",
		failAction:     "Verify the loan schedule balance (principal only if applicable) and reconcile QBO.",
		defaultConfig: func() *BalanceMatchConfig {
			return defaultBalanceMatchConfig("loan", "loan_schedule_balance")
		},
	}}
}
