package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

// DashboardService builds analytics views over stored datasets
type DashboardService struct {
	datasets  ports.DatasetRepository
	overrides ports.OverrideRepository
	now       func() time.Time
}

var _ ports.DashboardService = (*DashboardService)(nil)

// NewDashboardService creates a new dashboard service
func NewDashboardService(datasets ports.DatasetRepository, overrides ports.OverrideRepository, opts ...Option) *DashboardService {
	o := applyOptions(opts)
	return &DashboardService{
		datasets:  datasets,
		overrides: overrides,
		now:       o.now,
	}
}

// GetDashboard derives two views from one base engine: every filter applies to
// the KPIs, ticket lists and type breakdown, while the monthly volume chart
// ignores the date range.
func (s *DashboardService) GetDashboard(ctx context.Context, query ports.DashboardQuery) (*domain.Dashboard, error) {
	base, err := s.engine(ctx, query.DatasetID)
	if err != nil {
		return nil, err
	}

	filtered := base.Filter(query.Criteria)
	undated := base.Filter(query.Criteria.WithoutDates())

	charts := filtered.ChartData()
	charts.TicketVolume = undated.ChartData().TicketVolume

	return &domain.Dashboard{
		Metrics:               filtered.Metrics(),
		EscalatedTickets:      filtered.EscalatedTickets(),
		RecentPriorityTickets: filtered.RecentPriorityTickets(),
		Charts:                charts,
		SDMs:                  base.UniqueSDMs(),
		Companies:             base.UniqueCompanies(),
	}, nil
}

// GetTickets returns the raw ticket rows matching the query
func (s *DashboardService) GetTickets(ctx context.Context, query ports.DashboardQuery) ([]domain.TicketRecord, error) {
	base, err := s.engine(ctx, query.DatasetID)
	if err != nil {
		return nil, err
	}
	return base.Filter(query.Criteria).Tickets(), nil
}

// GetBreachReport builds the SLA compliance drill-down for the query
func (s *DashboardService) GetBreachReport(ctx context.Context, query ports.BreachQuery) (*analytics.BreachReport, error) {
	base, err := s.engine(ctx, query.DatasetID)
	if err != nil {
		return nil, err
	}
	report := analytics.BuildBreachReport(base.Filter(query.Criteria), query.Agent)
	return &report, nil
}

// GetServiceReport builds the client service review for the query
func (s *DashboardService) GetServiceReport(ctx context.Context, query ports.ReportQuery) (*analytics.ServiceReport, error) {
	base, err := s.engine(ctx, query.DatasetID)
	if err != nil {
		return nil, err
	}
	report := analytics.BuildServiceReport(base.Filter(query.Criteria), analytics.ReportOptions{
		Company: query.Criteria.Company,
		SDM:     query.Criteria.SDM,
		Period:  query.Period,
	})
	return &report, nil
}

// engine loads a dataset's tickets and overrides into an unfiltered engine
func (s *DashboardService) engine(ctx context.Context, datasetID uuid.UUID) (*analytics.Engine, error) {
	if _, err := s.datasets.GetByID(ctx, datasetID); err != nil {
		return nil, err
	}

	tickets, err := s.datasets.ListTickets(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	overrides, err := s.overrides.ListByDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	return analytics.New(tickets,
		analytics.WithOverrides(domain.ToOverrides(overrides)),
		analytics.WithClock(s.now),
	), nil
}
