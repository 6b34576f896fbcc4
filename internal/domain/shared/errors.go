// Package shared holds the error vocabulary common to the review domain
// and its adapters.
package shared

// DomainError is a coded error. The code survives wrapping, so transport
// layers can map an error chain onto a wire status without string matching.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError builds a DomainError from a code and a human message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Generic sentinels. Wrap them with fmt.Errorf("%w: detail", ...) so
// errors.Is keeps matching while the message gains context.
var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")
)

// Review errors. Inside a run, rules degrade these into result statuses and
// the run continues; at the input boundary, decoders return them to the
// caller directly.
var (
	// ErrConfiguration marks a rule config payload that failed decoding or
	// validation. The affected rule reports NEEDS_REVIEW; the run continues.
	ErrConfiguration = NewDomainError("CONFIGURATION_ERROR", "Rule configuration is invalid")
	// ErrMissingData marks required input that is absent (snapshot document,
	// evidence item, required field). Rules route absence per their
	// missing_data_policy; input decoders reject it outright.
	ErrMissingData = NewDomainError("MISSING_DATA", "Required input data is missing")
	// ErrInconsistent marks ambiguity a rule cannot resolve on its own.
	ErrInconsistent = NewDomainError("INCONSISTENT_DATA", "Input data is ambiguous or inconsistent")
	// ErrMismatch marks a violated business condition (failed tie-out,
	// non-zero balance where zero is required).
	ErrMismatch = NewDomainError("MISMATCH", "Balances do not reconcile")
	// ErrInternal marks an unexpected failure inside a rule body.
	ErrInternal = NewDomainError("INTERNAL_ERROR", "Unexpected internal error")
)
