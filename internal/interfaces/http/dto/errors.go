package dto

import "net/http"

// Wire error codes. Review input problems map to 422: the request itself
// was well formed, but the snapshot content could not be evaluated.
const (
	ErrCodeUnknown         = "ERR_UNKNOWN"
	ErrCodeInternal        = "ERR_INTERNAL"
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeNotFound        = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists   = "ERR_ALREADY_EXISTS"

	ErrCodeConfiguration = "ERR_CONFIGURATION"
	ErrCodeMissingData   = "ERR_MISSING_DATA"
	ErrCodeInconsistent  = "ERR_INCONSISTENT"
	ErrCodeMismatch      = "ERR_MISMATCH"
)

var statusByCode = map[string]int{
	ErrCodeUnknown:         http.StatusInternalServerError,
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeAlreadyExists:   http.StatusConflict,
	ErrCodeConfiguration:   http.StatusUnprocessableEntity,
	ErrCodeMissingData:     http.StatusUnprocessableEntity,
	ErrCodeInconsistent:    http.StatusUnprocessableEntity,
	ErrCodeMismatch:        http.StatusUnprocessableEntity,
}

// GetHTTPStatus resolves a wire code to its HTTP status, defaulting to
// 500 for codes the mapping does not know.
func GetHTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

var domainToWire = map[string]string{
	"NOT_FOUND":           ErrCodeNotFound,
	"ALREADY_EXISTS":      ErrCodeAlreadyExists,
	"INVALID_INPUT":       ErrCodeInvalidInput,
	"CONFIGURATION_ERROR": ErrCodeConfiguration,
	"MISSING_DATA":        ErrCodeMissingData,
	"INCONSISTENT_DATA":   ErrCodeInconsistent,
	"MISMATCH":            ErrCodeMismatch,
	"INTERNAL_ERROR":      ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to its wire form.
// Codes already in wire form, and unknown ones, pass through unchanged.
func NormalizeErrorCode(code string) string {
	if wire, ok := domainToWire[code]; ok {
		return wire
	}
	return code
}
