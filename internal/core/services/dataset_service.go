package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	maxTicketIDLen   = 255
)

// DatasetService implements business logic for uploaded ticket datasets
type DatasetService struct {
	datasets    ports.DatasetRepository
	overrides   ports.OverrideRepository
	parser      ports.TicketParser
	txManager   ports.TransactionManager
	broadcaster ports.EventBroadcaster
	now         func() time.Time
	wg          sync.WaitGroup
}

var _ ports.DatasetService = (*DatasetService)(nil)

// NewDatasetService creates a new dataset service
func NewDatasetService(
	datasets ports.DatasetRepository,
	overrides ports.OverrideRepository,
	parser ports.TicketParser,
	txManager ports.TransactionManager,
	broadcaster ports.EventBroadcaster,
	opts ...Option,
) *DatasetService {
	o := applyOptions(opts)
	return &DatasetService{
		datasets:    datasets,
		overrides:   overrides,
		parser:      parser,
		txManager:   txManager,
		broadcaster: broadcaster,
		now:         o.now,
	}
}

// Upload parses an export and stores it as a new dataset
func (s *DatasetService) Upload(ctx context.Context, params ports.UploadDatasetParams) (*domain.Dataset, error) {
	// 1. Authorization Check
	if !params.Actor.Role.CanManage() {
		return nil, apperrors.ErrForbidden
	}

	// 2. Parse the export
	tickets, err := s.parser.Parse(ctx, params.File)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, apperrors.ErrEmptyUpload
	}

	// 3. Create domain entity with validation
	name := params.Name
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("Upload %s", s.now().UTC().Format("2006-01-02 15:04"))
	}
	dataset, err := domain.NewDataset(domain.DatasetParams{
		Name:       name,
		UploadedBy: params.Actor.UserID,
		Tickets:    tickets,
	}, s.now())
	if err != nil {
		return nil, err
	}

	// 4. Persist dataset and rows atomically
	var created *domain.Dataset
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.datasets.Create(ctx, dataset, tickets)
		return err
	})
	if err != nil {
		return nil, err
	}

	// 5. Broadcast real-time event (async)
	s.broadcast(domain.Event{
		Type:      domain.EventDatasetUploaded,
		Payload:   domain.NewDatasetSnapshot(created),
		DatasetID: created.ID.String(),
	})

	return created, nil
}

// Get retrieves dataset metadata
func (s *DatasetService) Get(ctx context.Context, id uuid.UUID) (*domain.Dataset, error) {
	return s.datasets.GetByID(ctx, id)
}

// List retrieves datasets, newest first
func (s *DatasetService) List(ctx context.Context, params ports.ListDatasetsParams) ([]*domain.Dataset, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	return s.datasets.List(ctx, ports.ListDatasetsRepoParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
}

// Delete removes a dataset together with its overrides
func (s *DatasetService) Delete(ctx context.Context, actor ports.Actor, id uuid.UUID) error {
	if !actor.Role.CanManage() {
		return apperrors.ErrForbidden
	}

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.datasets.GetByID(ctx, id); err != nil {
			return err
		}
		if err := s.overrides.DeleteByDataset(ctx, id); err != nil {
			return err
		}
		return s.datasets.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.broadcast(domain.Event{
		Type:      domain.EventDatasetDeleted,
		Payload:   map[string]string{"id": id.String()},
		DatasetID: id.String(),
	})
	return nil
}

// SetOverride records a reviewer's breach decision for one ticket. Ticket IDs
// that are not part of the dataset are accepted and have no effect.
func (s *DatasetService) SetOverride(ctx context.Context, params ports.SetOverrideParams) (*domain.SLAOverride, error) {
	// 1. Authorization Check
	if !params.Actor.Role.CanReview() {
		return nil, apperrors.ErrForbidden
	}

	// 2. Validate input
	ticketID, err := validateTicketID(params.TicketID)
	if err != nil {
		return nil, err
	}

	// 3. Ensure the dataset exists
	if _, err := s.datasets.GetByID(ctx, params.DatasetID); err != nil {
		return nil, err
	}

	// 4. Persist
	saved, err := s.overrides.Upsert(ctx, &domain.SLAOverride{
		DatasetID: params.DatasetID,
		TicketID:  ticketID,
		Breached:  params.Breached,
		UpdatedBy: params.Actor.UserID,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(domain.Event{
		Type:      domain.EventOverrideUpdated,
		Payload:   domain.NewOverrideSnapshot(saved),
		DatasetID: params.DatasetID.String(),
	})

	return saved, nil
}

// ClearOverride removes a reviewer decision so the ticket's compliance is inferred again
func (s *DatasetService) ClearOverride(ctx context.Context, params ports.ClearOverrideParams) error {
	if !params.Actor.Role.CanReview() {
		return apperrors.ErrForbidden
	}

	ticketID, err := validateTicketID(params.TicketID)
	if err != nil {
		return err
	}

	if _, err := s.datasets.GetByID(ctx, params.DatasetID); err != nil {
		return err
	}

	if err := s.overrides.Delete(ctx, params.DatasetID, ticketID); err != nil {
		return err
	}

	s.broadcast(domain.Event{
		Type: domain.EventOverrideUpdated,
		Payload: domain.OverrideSnapshot{
			TicketID:  ticketID,
			UpdatedBy: params.Actor.UserID,
			UpdatedAt: s.now().UTC().Format(time.RFC3339),
		},
		DatasetID: params.DatasetID.String(),
	})
	return nil
}

// ListOverrides returns every reviewer decision recorded for a dataset
func (s *DatasetService) ListOverrides(ctx context.Context, datasetID uuid.UUID) ([]*domain.SLAOverride, error) {
	if _, err := s.datasets.GetByID(ctx, datasetID); err != nil {
		return nil, err
	}
	return s.overrides.ListByDataset(ctx, datasetID)
}

func validateTicketID(ticketID string) (string, error) {
	ticketID = strings.TrimSpace(ticketID)
	errs := apperrors.NewValidationErrors()
	if ticketID == "" {
		errs.Add("ticketId", "Ticket ID is required")
	} else if len(ticketID) > maxTicketIDLen {
		errs.Add("ticketId", "Ticket ID must be 255 characters or less")
	}
	if errs.HasErrors() {
		return "", errs
	}
	return ticketID, nil
}

// broadcast sends a real-time event without blocking the caller
func (s *DatasetService) broadcast(event domain.Event) {
	if s.broadcaster == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.broadcaster.Broadcast(event)
	}()
}

// Shutdown waits for in-flight broadcasts
func (s *DatasetService) Shutdown() {
	s.wg.Wait()
}
