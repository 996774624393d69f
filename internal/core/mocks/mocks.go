package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

// MockDatasetRepository is a mock implementation of ports.DatasetRepository
type MockDatasetRepository struct {
	mock.Mock
}

var _ ports.DatasetRepository = (*MockDatasetRepository)(nil)

func NewMockDatasetRepository() *MockDatasetRepository {
	return &MockDatasetRepository{}
}

func (m *MockDatasetRepository) Create(ctx context.Context, dataset *domain.Dataset, tickets []domain.TicketRecord) (*domain.Dataset, error) {
	args := m.Called(ctx, dataset, tickets)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dataset), args.Error(1)
}

func (m *MockDatasetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dataset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dataset), args.Error(1)
}

func (m *MockDatasetRepository) List(ctx context.Context, params ports.ListDatasetsRepoParams) ([]*domain.Dataset, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Dataset), args.Error(1)
}

func (m *MockDatasetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDatasetRepository) ListTickets(ctx context.Context, id uuid.UUID) ([]domain.TicketRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TicketRecord), args.Error(1)
}

// MockOverrideRepository is a mock implementation of ports.OverrideRepository
type MockOverrideRepository struct {
	mock.Mock
}

var _ ports.OverrideRepository = (*MockOverrideRepository)(nil)

func NewMockOverrideRepository() *MockOverrideRepository {
	return &MockOverrideRepository{}
}

func (m *MockOverrideRepository) Upsert(ctx context.Context, override *domain.SLAOverride) (*domain.SLAOverride, error) {
	args := m.Called(ctx, override)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SLAOverride), args.Error(1)
}

func (m *MockOverrideRepository) Delete(ctx context.Context, datasetID uuid.UUID, ticketID string) error {
	args := m.Called(ctx, datasetID, ticketID)
	return args.Error(0)
}

func (m *MockOverrideRepository) DeleteByDataset(ctx context.Context, datasetID uuid.UUID) error {
	args := m.Called(ctx, datasetID)
	return args.Error(0)
}

func (m *MockOverrideRepository) ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]*domain.SLAOverride, error) {
	args := m.Called(ctx, datasetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SLAOverride), args.Error(1)
}

// MockTicketParser is a mock implementation of ports.TicketParser
type MockTicketParser struct {
	mock.Mock
}

var _ ports.TicketParser = (*MockTicketParser)(nil)

func NewMockTicketParser() *MockTicketParser {
	return &MockTicketParser{}
}

func (m *MockTicketParser) Parse(ctx context.Context, r io.Reader) ([]domain.TicketRecord, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TicketRecord), args.Error(1)
}

// MockTransactionManager runs the callback inline with the caller's context
type MockTransactionManager struct {
	mock.Mock
}

var _ ports.TransactionManager = (*MockTransactionManager)(nil)

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Called(ctx)
	return fn(ctx)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

var _ ports.EventBroadcaster = (*MockEventBroadcaster)(nil)

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockDatasetService is a mock implementation of ports.DatasetService
type MockDatasetService struct {
	mock.Mock
}

var _ ports.DatasetService = (*MockDatasetService)(nil)

func NewMockDatasetService() *MockDatasetService {
	return &MockDatasetService{}
}

func (m *MockDatasetService) Upload(ctx context.Context, params ports.UploadDatasetParams) (*domain.Dataset, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dataset), args.Error(1)
}

func (m *MockDatasetService) Get(ctx context.Context, id uuid.UUID) (*domain.Dataset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dataset), args.Error(1)
}

func (m *MockDatasetService) List(ctx context.Context, params ports.ListDatasetsParams) ([]*domain.Dataset, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Dataset), args.Error(1)
}

func (m *MockDatasetService) Delete(ctx context.Context, actor ports.Actor, id uuid.UUID) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockDatasetService) SetOverride(ctx context.Context, params ports.SetOverrideParams) (*domain.SLAOverride, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SLAOverride), args.Error(1)
}

func (m *MockDatasetService) ClearOverride(ctx context.Context, params ports.ClearOverrideParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockDatasetService) ListOverrides(ctx context.Context, datasetID uuid.UUID) ([]*domain.SLAOverride, error) {
	args := m.Called(ctx, datasetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SLAOverride), args.Error(1)
}

func (m *MockDatasetService) Shutdown() {}

// MockDashboardService is a mock implementation of ports.DashboardService
type MockDashboardService struct {
	mock.Mock
}

var _ ports.DashboardService = (*MockDashboardService)(nil)

func NewMockDashboardService() *MockDashboardService {
	return &MockDashboardService{}
}

func (m *MockDashboardService) GetDashboard(ctx context.Context, query ports.DashboardQuery) (*domain.Dashboard, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dashboard), args.Error(1)
}

func (m *MockDashboardService) GetTickets(ctx context.Context, query ports.DashboardQuery) ([]domain.TicketRecord, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TicketRecord), args.Error(1)
}

func (m *MockDashboardService) GetBreachReport(ctx context.Context, query ports.BreachQuery) (*analytics.BreachReport, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.BreachReport), args.Error(1)
}

func (m *MockDashboardService) GetServiceReport(ctx context.Context, query ports.ReportQuery) (*analytics.ServiceReport, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.ServiceReport), args.Error(1)
}
