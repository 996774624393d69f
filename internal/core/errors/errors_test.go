package errors_test

import (
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/stretchr/testify/assert"
)

func TestAppError_UnwrapAndMessage(t *testing.T) {
	appErr := apperrors.NewBadRequestError(apperrors.ErrBadRequest, "Upload must be multipart or text/csv")
	wrapped := fmt.Errorf("reading upload: %w", appErr)

	assert.True(t, errors.Is(wrapped, apperrors.ErrBadRequest))
	assert.Equal(t, "Upload must be multipart or text/csv", appErr.Error())
	assert.Equal(t, 400, appErr.StatusCode)

	var target *apperrors.AppError
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "BAD_REQUEST", target.Code)
}

func TestAppError_FallsBackToUnderlyingMessage(t *testing.T) {
	appErr := &apperrors.AppError{Err: apperrors.ErrInvalidCSV}
	assert.Equal(t, apperrors.ErrInvalidCSV.Error(), appErr.Error())
}

func TestPayloadTooLargeError(t *testing.T) {
	appErr := apperrors.NewPayloadTooLargeError(apperrors.ErrUploadTooLarge, "File too large")
	assert.Equal(t, 413, appErr.StatusCode)
	assert.ErrorIs(t, appErr, apperrors.ErrUploadTooLarge)
}

func TestValidationErrors(t *testing.T) {
	errs := apperrors.NewValidationErrors()
	assert.False(t, errs.HasErrors())

	errs.Add("dateFrom", "Invalid date")
	errs.Add("dateFrom", "Must not be after dateTo")
	errs.Add("sdm", "Too long")

	assert.True(t, errs.HasErrors())
	assert.Len(t, errs.Errors["dateFrom"], 2)
	assert.Equal(t, "validation failed: 2 field(s) have errors", errs.Error())
}
