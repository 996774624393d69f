package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
)

const MaxDatasetNameLength = 255

// Dataset is one uploaded ticket export. Tickets are stored alongside it and
// are immutable for the dataset's lifetime.
type Dataset struct {
	ID          uuid.UUID
	Name        string
	UploadedBy  string
	UploadedAt  time.Time
	TicketCount int
}

// DatasetParams holds the inputs for creating a dataset.
type DatasetParams struct {
	Name       string
	UploadedBy string
	Tickets    []TicketRecord
}

// Validate checks dataset parameters before anything is stored.
func (p *DatasetParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	name := strings.TrimSpace(p.Name)
	if name == "" {
		errs.Add("name", "Name is required")
	} else if len(name) > MaxDatasetNameLength {
		errs.Add("name", "Name must be 255 characters or less")
	}

	if strings.TrimSpace(p.UploadedBy) == "" {
		errs.Add("uploadedBy", "Uploader is required")
	}

	if len(p.Tickets) == 0 {
		errs.Add("file", "File contains no tickets")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// NewDataset validates params and returns a dataset ready to be persisted.
func NewDataset(params DatasetParams, now time.Time) (*Dataset, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Dataset{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(params.Name),
		UploadedBy:  params.UploadedBy,
		UploadedAt:  now.UTC(),
		TicketCount: len(params.Tickets),
	}, nil
}
