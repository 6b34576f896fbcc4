package review

// RuleStatus represents the outcome of a single rule evaluation
type RuleStatus string

const (
	StatusPass          RuleStatus = "PASS"
	StatusWarn          RuleStatus = "WARN"
	StatusFail          RuleStatus = "FAIL"
	StatusNeedsReview   RuleStatus = "NEEDS_REVIEW"
	StatusNotApplicable RuleStatus = "NOT_APPLICABLE"
)

// IsValid checks if the status is a valid RuleStatus
func (s RuleStatus) IsValid() bool {
	switch s {
	case StatusPass, StatusWarn, StatusFail, StatusNeedsReview, StatusNotApplicable:
		return true
	}
	return false
}

// String returns the string representation
func (s RuleStatus) String() string {
	return string(s)
}

// Severity represents how urgently a result needs reviewer attention
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// IsValid checks if the severity is a valid Severity
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// String returns the string representation
func (s Severity) String() string {
	return string(s)
}

// statusRank orders statuses for worst-wins aggregation. Higher is worse.
var statusRank = map[RuleStatus]int{
	StatusFail:          50,
	StatusNeedsReview:   40,
	StatusWarn:          30,
	StatusPass:          20,
	StatusNotApplicable: 10,
}

// Rank returns the aggregation rank of the status (unknown statuses rank lowest)
func (s RuleStatus) Rank() int {
	return statusRank[s]
}

// IsWorseThan reports whether s outranks other in the worst-wins ordering
func (s RuleStatus) IsWorseThan(other RuleStatus) bool {
	return s.Rank() > other.Rank()
}

// WorstStatus returns the worst status of the given set.
// An empty set yields NOT_APPLICABLE.
func WorstStatus(statuses ...RuleStatus) RuleStatus {
	worst := StatusNotApplicable
	for _, s := range statuses {
		if s.IsWorseThan(worst) {
			worst = s
		}
	}
	return worst
}

// SeverityForStatus maps a status to its default severity
func SeverityForStatus(s RuleStatus) Severity {
	switch s {
	case StatusFail:
		return SeverityHigh
	case StatusNeedsReview:
		return SeverityMedium
	case StatusWarn:
		return SeverityLow
	default:
		return SeverityInfo
	}
}
