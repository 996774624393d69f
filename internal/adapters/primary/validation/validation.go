package validation

import (
	"encoding/json"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
)

// Common validation regex patterns
var (
	uuidRegex  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	monthRegex = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
)

// Validator validates request data
type Validator struct {
	errors *apperrors.ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: apperrors.NewValidationErrors(),
	}
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return v.errors.HasErrors()
}

// Errors returns the validation errors
func (v *Validator) Errors() *apperrors.ValidationErrors {
	return v.errors
}

// Required validates that a string is not empty
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors.Add(field, "This field is required")
	}
	return v
}

// MaxLength validates maximum string length
func (v *Validator) MaxLength(field, value string, max int) *Validator {
	if len(value) > max {
		v.errors.Add(field, "Must be at most "+strconv.Itoa(max)+" characters")
	}
	return v
}

// UUID validates UUID format
func (v *Validator) UUID(field, value string) *Validator {
	if value != "" && !uuidRegex.MatchString(value) {
		v.errors.Add(field, "Must be a valid UUID")
	}
	return v
}

// OneOf validates value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v // Empty is handled by Required
	}

	for _, a := range allowed {
		if value == a {
			return v
		}
	}

	v.errors.Add(field, "Must be one of: "+strings.Join(allowed, ", "))
	return v
}

// Custom adds a custom validation
func (v *Validator) Custom(field string, valid bool, message string) *Validator {
	if !valid {
		v.errors.Add(field, message)
	}
	return v
}

// NotNil validates that a pointer is not nil
func (v *Validator) NotNil(field string, value interface{}) *Validator {
	if value == nil || (reflect.ValueOf(value).Kind() == reflect.Ptr && reflect.ValueOf(value).IsNil()) {
		v.errors.Add(field, "This field is required")
	}
	return v
}

// DecodeAndValidate decodes JSON request body and runs basic validation
func DecodeAndValidate[T any](r *http.Request) (*T, error) {
	var req T

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apperrors.NewBadRequestError(err, "Invalid request body")
	}

	return &req, nil
}

// PaginationParams holds pagination parameters
type PaginationParams struct {
	Limit  int
	Offset int
}

// DefaultPagination returns default pagination values
func DefaultPagination() PaginationParams {
	return PaginationParams{
		Limit:  25,
		Offset: 0,
	}
}

// ParsePagination extracts and validates pagination from query parameters
func ParsePagination(r *http.Request, maxLimit int) PaginationParams {
	params := DefaultPagination()

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			params.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			params.Offset = offset
		}
	}

	// Enforce maximum limit
	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}

	return params
}

// ParseDateQueryParam parses an optional YYYY-MM-DD query parameter. An invalid
// value is recorded on v and yields nil.
func ParseDateQueryParam(r *http.Request, key string, v *Validator) *time.Time {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil
	}
	ts, ok := domain.ParseDate(raw)
	if !ok {
		v.errors.Add(key, "Must be a date in YYYY-MM-DD format")
		return nil
	}
	return &ts
}

// ParseCriteria reads the dashboard filter bar from the query string:
// sdm, company, dateFrom and dateTo.
func ParseCriteria(r *http.Request) (analytics.Criteria, error) {
	v := NewValidator()
	q := r.URL.Query()

	c := analytics.Criteria{
		SDM:      strings.TrimSpace(q.Get("sdm")),
		Company:  strings.TrimSpace(q.Get("company")),
		DateFrom: ParseDateQueryParam(r, "dateFrom", v),
		DateTo:   ParseDateQueryParam(r, "dateTo", v),
	}

	v.MaxLength("sdm", c.SDM, maxFilterLength).
		MaxLength("company", c.Company, maxFilterLength)

	if c.DateFrom != nil && c.DateTo != nil {
		v.Custom("dateTo", !c.DateFrom.After(*c.DateTo), apperrors.ErrInvalidDateRange.Error())
	}

	if v.HasErrors() {
		return analytics.Criteria{}, v.Errors()
	}
	return c, nil
}

// Period validates a report period key. Empty means all time.
func (v *Validator) Period(field, value string) *Validator {
	switch value {
	case "", analytics.PeriodAll, analytics.PeriodLast3Months, analytics.PeriodLast6Months, analytics.PeriodLastYear:
		return v
	}
	if !monthRegex.MatchString(value) {
		v.errors.Add(field, "Must be one of: all, last3months, last6months, lastyear, or YYYY-MM")
	}
	return v
}

const maxFilterLength = 255
