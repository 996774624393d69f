package ports

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

// ListDatasetsRepoParams bounds a dataset listing.
type ListDatasetsRepoParams struct {
	Limit  int32
	Offset int32
}

// DatasetRepository persists uploaded datasets and their ticket rows.
type DatasetRepository interface {
	Create(ctx context.Context, dataset *domain.Dataset, tickets []domain.TicketRecord) (*domain.Dataset, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Dataset, error)
	List(ctx context.Context, params ListDatasetsRepoParams) ([]*domain.Dataset, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListTickets(ctx context.Context, id uuid.UUID) ([]domain.TicketRecord, error)
}

// OverrideRepository persists reviewer SLA decisions per dataset.
type OverrideRepository interface {
	Upsert(ctx context.Context, override *domain.SLAOverride) (*domain.SLAOverride, error)
	Delete(ctx context.Context, datasetID uuid.UUID, ticketID string) error
	DeleteByDataset(ctx context.Context, datasetID uuid.UUID) error
	ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]*domain.SLAOverride, error)
}

// TicketParser turns an uploaded export into ticket records. Malformed cell
// values come back blank; structural problems are errors.
type TicketParser interface {
	Parse(ctx context.Context, r io.Reader) ([]domain.TicketRecord, error)
}
