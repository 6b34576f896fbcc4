package rules

import "github.com/closebooks/backend/internal/domain/review"

func defaultIntercompanyLoansConfig() *IntercompanyConfig {
	return &IntercompanyConfig{
		RuleConfigBase: review.DefaultRuleConfigBase(),
		NamePatterns: []string{
			"due to", "due from", "intercompany", "inter-company",
			"intercompany loan", "loan from", "loan to", "shareholder loan",
		},
		EvidenceType:                          "intercompany_balance_sheet",
		NonZeroOnly:                           true,
		RequireEvidenceAsOfDateMatchPeriodEnd: true,
	}
}

// IntercompanyBalancesReconcile checks loan-style intercompany balances
// against the related companies' balance sheets.
type IntercompanyBalancesReconcile struct {
	intercompany
}

func NewIntercompanyBalancesReconcile() *IntercompanyBalancesReconcile {
	return &IntercompanyBalancesReconcile{intercompany{
		BaseRule: review.NewBaseRule(
			"BS-INTERCOMPANY-BALANCES-RECONCILE",
			"Intercompany loan balances reconcile across related companies",
			"Intercompany Loans",
			[]string{"QBO (Balance Sheet)", "Counterparty Balance Sheets"},
		),
		subject:        "intercompany loan balances",
		accountsNoun:   "intercompany loan accounts",
		detailMessage:  "Intercompany loan balance evaluated.",
		summaryKey:     "intercompany_loan_summary",
		summaryMessage: "Intercompany loan comparison summary.",
		defaultConfig:  defaultIntercompanyLoansConfig,
	}}
}
