package apierr

import (
	"errors"
	"net/http"
	"strings"

	"github.com/feral-file/ff-media-ledger/internal/domain"
	"github.com/feral-file/ff-media-ledger/internal/playtracker"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest       ErrorCode = "bad_request"
	ErrCodeNotFound         ErrorCode = "not_found"
	ErrCodeValidationFailed ErrorCode = "validation_failed"
	ErrCodeUnauthorized     ErrorCode = "unauthorized"

	// Server errors (5xx)
	ErrCodeInternalError      ErrorCode = "internal_error"
	ErrCodeServiceUnavailable ErrorCode = "service_unavailable"
)

// APIError carries the code, message and details of a failed request
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// Response is the error envelope returned by every endpoint
type Response struct {
	Error APIError `json:"error"`
}

// NewResponse builds an error envelope
func NewResponse(code ErrorCode, message string, details ...string) Response {
	return Response{
		Error: APIError{
			Code:    code,
			Message: message,
			Details: strings.Join(details, ", "),
		},
	}
}

// Classify maps a ledger error to its HTTP status and error code
func Classify(err error) (int, ErrorCode) {
	switch {
	case errors.Is(err, domain.ErrInvalidUser), errors.Is(err, domain.ErrInvalidIdentity):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, playtracker.ErrSessionNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}
