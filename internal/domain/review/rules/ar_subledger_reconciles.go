package rules

import "github.com/closebooks/backend/internal/domain/review"

func defaultARSubledgerConfig() *SubledgerConfig {
	return &SubledgerConfig{
		RuleConfigBase:                        review.DefaultRuleConfigBase(),
		AccountNameMatch:                      "accounts receivable",
		AllowNameInference:                    true,
		SummaryEvidenceType:                   "ar_aging_summary_total",
		DetailEvidenceType:                    "ar_aging_detail_total",
		RequireEvidenceAsOfDateMatchPeriodEnd: true,
	}
}

// ARSubledgerReconciles ties the Aged Receivables totals to the Balance Sheet
type ARSubledgerReconciles struct {
	subledger
}

func NewARSubledgerReconciles() *ARSubledgerReconciles {
	return &ARSubledgerReconciles{subledger{
		BaseRule: review.NewBaseRule(
			"BS-AR-SUBLEDGER-RECONCILES",
			"Aged Receivables Detail reconciles to Balance Sheet",
			"Accounts Payable/Receivable",
			[]string{"QBO"},
		),
		abbrev:        "AR",
		noun:          "Accounts Receivable",
		token:         "A/R",
		defaultConfig: defaultARSubledgerConfig,
	}}
}
