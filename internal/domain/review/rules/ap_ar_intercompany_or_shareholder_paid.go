package rules

import "github.com/closebooks/backend/internal/domain/review"

func defaultIntercompanyPaidConfig() *IntercompanyConfig {
	return &IntercompanyConfig{
		RuleConfigBase:                        review.DefaultRuleConfigBase(),
		NamePatterns:                          []string{"due to", "due from", "intercompany", "inter-company"},
		EvidenceType:                          "intercompany_balance_sheet",
		NonZeroOnly:                           true,
		RequireEvidenceAsOfDateMatchPeriodEnd: true,
	}
}

// IntercompanyOrShareholderPaid verifies "due to/due from" style balances
// against the counterpart company's books.
type IntercompanyOrShareholderPaid struct {
	intercompany
}

func NewIntercompanyOrShareholderPaid() *IntercompanyOrShareholderPaid {
	return &IntercompanyOrShareholderPaid{intercompany{
		BaseRule: review.NewBaseRule(
			"BS-AP-AR-INTERCOMPANY-OR-SHAREHOLDER-PAID",
			"Intercompany/shareholder-paid balances identified",
			"Accounts Payable/Receivable",
			[]string{"QBO (Balance Sheet)"},
		),
		subject:        "intercompany balances",
		accountsNoun:   "intercompany accounts",
		detailMessage:  "Intercompany balance evaluated.",
		summaryKey:     "intercompany_summary",
		summaryMessage: "Intercompany balance comparison summary.",
		defaultConfig:  defaultIntercompanyPaidConfig,
	}}
}
