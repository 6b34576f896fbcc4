package review

import (
	"time"

	"github.com/google/uuid"
)

// ResultDetail is one structured finding inside a rule result, keyed by an
// identifier (usually an account_ref). Values hold display-ready fields;
// amounts and dates are rendered as strings so output is exact and stable.
type ResultDetail struct {
	Key     string         `json:"key" yaml:"key"`
	Message string         `json:"message" yaml:"message"`
	Values  map[string]any `json:"values,omitempty" yaml:"values,omitempty"`
}

// RuleResult is the outcome of evaluating one rule against a context
type RuleResult struct {
	RuleID                 string         `json:"rule_id" yaml:"rule_id"`
	RuleTitle              string         `json:"rule_title" yaml:"rule_title"`
	BestPracticesReference string         `json:"best_practices_reference,omitempty" yaml:"best_practices_reference,omitempty"`
	Sources                []string       `json:"sources,omitempty" yaml:"sources,omitempty"`
	Status                 RuleStatus     `json:"status" yaml:"status"`
	Severity               Severity       `json:"severity" yaml:"severity"`
	Summary                string         `json:"summary" yaml:"summary"`
	Details                []ResultDetail `json:"details,omitempty" yaml:"details,omitempty"`
	EvidenceUsed           []EvidenceItem `json:"evidence_used,omitempty" yaml:"evidence_used,omitempty"`
	HumanAction            string         `json:"human_action,omitempty" yaml:"human_action,omitempty"`
}

// AddDetail appends a structured finding (insertion order is preserved and
// observable in the report).
func (r *RuleResult) AddDetail(d ResultDetail) {
	r.Details = append(r.Details, d)
}

// RunReport is the aggregate outcome of one review run
type RunReport struct {
	RunID       string             `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time          `json:"generated_at" yaml:"generated_at"`
	PeriodEnd   Date               `json:"period_end" yaml:"period_end"`
	Results     []RuleResult       `json:"results" yaml:"results"`
	Totals      map[RuleStatus]int `json:"totals" yaml:"totals"`
}

// NewRunReport assembles a report from ordered results, tallying the status
// histogram and stamping a fresh run id.
func NewRunReport(periodEnd Date, results []RuleResult) RunReport {
	totals := make(map[RuleStatus]int, len(statusRank))
	for _, res := range results {
		totals[res.Status]++
	}
	return RunReport{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		PeriodEnd:   periodEnd,
		Results:     results,
		Totals:      totals,
	}
}
