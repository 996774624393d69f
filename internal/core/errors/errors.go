package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Authentication & Authorization
	ErrForbidden    = errors.New("action forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role")

	// Dataset validation
	ErrDatasetNotFound  = errors.New("dataset not found")
	ErrDatasetIDInvalid = errors.New("dataset ID is invalid")
	ErrEmptyUpload      = errors.New("upload contains no tickets")
	ErrUploadTooLarge   = errors.New("upload exceeds maximum size")
	ErrInvalidCSV       = errors.New("file is not a valid ticket export")
	ErrMissingColumns   = errors.New("ticket export is missing required columns")

	// Override validation
	ErrTicketIDRequired = errors.New("ticket ID is required")
	ErrOverrideNotFound = errors.New("override not found")

	// Query validation
	ErrInvalidDateRange = errors.New("dateFrom must not be after dateTo")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrInternal    = errors.New("internal server error")
	ErrBadRequest  = errors.New("bad request")
	ErrConflict    = errors.New("resource conflict")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewBadRequestError wraps err as a 400 response.
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

// NewPayloadTooLargeError wraps err as a 413 response.
func NewPayloadTooLargeError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "PAYLOAD_TOO_LARGE",
		StatusCode: 413,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
