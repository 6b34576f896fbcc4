package review

import (
	"fmt"
)

// Rule is one month-end review control: metadata plus a single pure
// evaluation over a context. Implementations must not perform I/O, must not
// mutate the context, and must be deterministic for identical inputs.
type Rule interface {
	ID() string
	Title() string
	BestPracticesReference() string
	Sources() []string
	// ConfigPrototype returns a fresh config payload holding the rule's
	// defaults. The catalog reflects its schema; Decode overlays the
	// client payload onto it.
	ConfigPrototype() any
	Evaluate(ctx RuleContext) RuleResult
}

// BaseRule carries rule metadata. Concrete rules embed it and implement
// ConfigPrototype and Evaluate.
type BaseRule struct {
	id        string
	title     string
	reference string
	sources   []string
}

// NewBaseRule creates the metadata backbone of a rule
func NewBaseRule(id, title, reference string, sources []string) BaseRule {
	return BaseRule{
		id:        id,
		title:     title,
		reference: reference,
		sources:   sources,
	}
}

func (b BaseRule) ID() string                     { return b.id }
func (b BaseRule) Title() string                  { return b.title }
func (b BaseRule) BestPracticesReference() string { return b.reference }

func (b BaseRule) Sources() []string {
	out := make([]string, len(b.sources))
	copy(out, b.sources)
	return out
}

// Result builds a RuleResult with the rule's metadata and the default
// severity for the status. Callers fill details, evidence and human action
// on the returned value.
func (b BaseRule) Result(status RuleStatus, summary string) RuleResult {
	return RuleResult{
		RuleID:                 b.id,
		RuleTitle:              b.title,
		BestPracticesReference: b.reference,
		Sources:                b.Sources(),
		Status:                 status,
		Severity:               SeverityForStatus(status),
		Summary:                summary,
	}
}

// Disabled is the uniform result for enabled=false
func (b BaseRule) Disabled() RuleResult {
	return b.Result(StatusNotApplicable, "Rule disabled by client configuration.")
}

// InvalidConfig is the uniform result for a config payload that failed to
// decode or validate. The run continues; only this rule reports it.
func (b BaseRule) InvalidConfig(err error) RuleResult {
	res := b.Result(StatusNeedsReview, fmt.Sprintf("Rule configuration invalid: %v.", err))
	res.HumanAction = "Fix the rule's configuration payload in the client rules config."
	return res
}
