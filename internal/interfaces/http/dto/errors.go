package dto

import (
	"net/http"

	"github.com/ledgerdesk/backend/internal/domain/shared"
)

// API error codes carried in ErrorInfo.Code
const (
	ErrCodeUnknown     = "ERR_UNKNOWN"
	ErrCodeInternal    = "ERR_INTERNAL"
	ErrCodePersistence = "ERR_PERSISTENCE"
	ErrCodeUnavailable = "ERR_UNAVAILABLE"

	ErrCodeValidation       = "ERR_VALIDATION"
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	ErrCodeBadRequest       = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON      = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge  = "ERR_REQUEST_TOO_LARGE"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeForbidden    = "ERR_FORBIDDEN"

	ErrCodeNotFound = "ERR_NOT_FOUND"
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeRequestInProgress answers a repeated Idempotency-Key whose first request is still running
	ErrCodeRequestInProgress = "ERR_REQUEST_IN_PROGRESS"
	ErrCodeRateLimited       = "ERR_RATE_LIMITED"
)

// apiError ties an API code to its HTTP status and, where one exists, the
// domain code it stands for.
type apiError struct {
	status int
	domain string
}

var apiErrors = map[string]apiError{
	ErrCodeUnknown:     {status: http.StatusInternalServerError},
	ErrCodeInternal:    {status: http.StatusInternalServerError, domain: "INTERNAL_ERROR"},
	ErrCodePersistence: {status: http.StatusInternalServerError, domain: shared.CodePersistenceFailure},
	ErrCodeUnavailable: {status: http.StatusServiceUnavailable},

	ErrCodeValidation:       {status: http.StatusBadRequest, domain: shared.CodeValidation},
	ErrCodeValidationFormat: {status: http.StatusBadRequest},
	ErrCodeBadRequest:       {status: http.StatusBadRequest, domain: "BAD_REQUEST"},
	ErrCodeInvalidJSON:      {status: http.StatusBadRequest},
	ErrCodeRequestTooLarge:  {status: http.StatusRequestEntityTooLarge},

	ErrCodeUnauthorized: {status: http.StatusUnauthorized, domain: shared.CodeUnauthorized},
	ErrCodeTokenExpired: {status: http.StatusUnauthorized},
	ErrCodeTokenInvalid: {status: http.StatusUnauthorized},
	ErrCodeForbidden:    {status: http.StatusForbidden, domain: shared.CodeForbidden},

	ErrCodeNotFound:          {status: http.StatusNotFound, domain: shared.CodeNotFound},
	ErrCodeConflict:          {status: http.StatusConflict, domain: shared.CodeConflict},
	ErrCodeRequestInProgress: {status: http.StatusConflict},
	ErrCodeRateLimited:       {status: http.StatusTooManyRequests},
}

// fromDomain is apiErrors indexed by domain code
var fromDomain = func() map[string]string {
	m := make(map[string]string)
	for code, e := range apiErrors {
		if e.domain != "" {
			m[e.domain] = code
		}
	}
	return m
}()

// GetHTTPStatus returns the status an API code is served with; unknown codes get 500
func GetHTTPStatus(code string) int {
	if e, ok := apiErrors[code]; ok {
		return e.status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode turns a domain code such as NOT_FOUND into its API form.
// API codes and unrecognised codes are returned unchanged.
func NormalizeErrorCode(code string) string {
	if api, ok := fromDomain[code]; ok {
		return api
	}
	return code
}
