package rules

import "github.com/closebooks/backend/internal/domain/review"

func defaultAPSubledgerConfig() *SubledgerConfig {
	return &SubledgerConfig{
		RuleConfigBase:                        review.DefaultRuleConfigBase(),
		AccountNameMatch:                      "accounts payable",
		AllowNameInference:                    true,
		SummaryEvidenceType:                   "ap_aging_summary_total",
		DetailEvidenceType:                    "ap_aging_detail_total",
		RequireEvidenceAsOfDateMatchPeriodEnd: true,
	}
}

// APSubledgerReconciles ties the Aged Payables totals to the Balance Sheet
type APSubledgerReconciles struct {
	subledger
}

func NewAPSubledgerReconciles() *APSubledgerReconciles {
	return &APSubledgerReconciles{subledger{
		BaseRule: review.NewBaseRule(
			"BS-AP-SUBLEDGER-RECONCILES",
			"Aged Payables Detail reconciles to Balance Sheet",
			"Accounts Payable/Receivable",
			[]string{"QBO"},
		),
		abbrev:        "AP",
		noun:          "Accounts Payable",
		token:         "A/P",
		defaultConfig: defaultAPSubledgerConfig,
	}}
}
