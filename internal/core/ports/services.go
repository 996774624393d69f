package ports

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

// Actor identifies the caller of a service operation.
type Actor struct {
	UserID string
	Role   domain.Role
}

// UploadDatasetParams defines the input for uploading a ticket export.
type UploadDatasetParams struct {
	Actor Actor
	Name  string
	File  io.Reader
}

// ListDatasetsParams defines the input for listing datasets.
type ListDatasetsParams struct {
	Limit  int
	Offset int
}

// SetOverrideParams defines the input for recording a reviewer decision.
type SetOverrideParams struct {
	Actor     Actor
	DatasetID uuid.UUID
	TicketID  string
	Breached  bool
}

// ClearOverrideParams defines the input for removing a reviewer decision.
type ClearOverrideParams struct {
	Actor     Actor
	DatasetID uuid.UUID
	TicketID  string
}

// DashboardQuery selects a dataset and the filter criteria applied to it.
type DashboardQuery struct {
	DatasetID uuid.UUID
	Criteria  analytics.Criteria
}

// BreachQuery narrows the breach listing to one agent when Agent is set.
type BreachQuery struct {
	DashboardQuery
	Agent string
}

// ReportQuery carries the period key used for the report title.
type ReportQuery struct {
	DashboardQuery
	Period string
}

// DatasetService defines the business operations for uploaded datasets.
type DatasetService interface {
	Upload(ctx context.Context, params UploadDatasetParams) (*domain.Dataset, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Dataset, error)
	List(ctx context.Context, params ListDatasetsParams) ([]*domain.Dataset, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	SetOverride(ctx context.Context, params SetOverrideParams) (*domain.SLAOverride, error)
	ClearOverride(ctx context.Context, params ClearOverrideParams) error
	ListOverrides(ctx context.Context, datasetID uuid.UUID) ([]*domain.SLAOverride, error)
	Shutdown()
}

// DashboardService defines the read-side analytics over a stored dataset.
type DashboardService interface {
	GetDashboard(ctx context.Context, query DashboardQuery) (*domain.Dashboard, error)
	GetTickets(ctx context.Context, query DashboardQuery) ([]domain.TicketRecord, error)
	GetBreachReport(ctx context.Context, query BreachQuery) (*analytics.BreachReport, error)
	GetServiceReport(ctx context.Context, query ReportQuery) (*analytics.ServiceReport, error)
}

// EventBroadcaster defines the port for pushing real-time events to clients.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
