package analytics_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newEngine(tickets []domain.TicketRecord, opts ...analytics.Option) *analytics.Engine {
	return analytics.New(tickets, append([]analytics.Option{analytics.WithClock(clock)}, opts...)...)
}

func scenarioTickets() []domain.TicketRecord {
	return []domain.TicketRecord{
		{
			TicketID:          "T1",
			Status:            "Closed",
			Priority:          "High",
			CreatedTime:       "2024-06-01 09:00:00",
			ResolvedTime:      "2024-06-01 14:30:00",
			ResolutionTimeHrs: "5:30",
			ResolutionStatus:  "Within SLA",
		},
		{
			TicketID:          "T2",
			Status:            "Closed",
			Priority:          "Low",
			CreatedTime:       "2024-06-02 09:00:00",
			ResolvedTime:      "2024-06-02 19:00:00",
			ResolutionTimeHrs: "10:00",
			ResolutionStatus:  "SLA Violated",
		},
		{
			TicketID:    "T3",
			Status:      "New",
			Priority:    "Urgent",
			CreatedTime: "2024-06-05 09:00:00",
			DueByTime:   "2024-06-10 09:00:00",
		},
	}
}

func datePtr(t *testing.T, value string) *time.Time {
	t.Helper()
	d, ok := domain.ParseDate(value)
	require.True(t, ok)
	return &d
}

func TestEngine_Metrics_Scenario(t *testing.T) {
	m := newEngine(scenarioTickets()).Metrics()

	assert.Equal(t, 3, m.TotalTickets)
	assert.Equal(t, 2, m.ClosedTickets)
	assert.Equal(t, 1, m.OpenTickets)
	assert.Equal(t, 7.5, m.AvgResolution)
	assert.Equal(t, 33.3, m.SLACompliance)
}

func TestEngine_Metrics_OverrideScenario(t *testing.T) {
	e := newEngine(scenarioTickets(), analytics.WithOverrides(domain.SLAOverrides{"T2": false}))

	assert.Equal(t, 66.7, e.Metrics().SLACompliance)
}

func TestEngine_Empty(t *testing.T) {
	e := newEngine(nil)

	assert.Equal(t, domain.DashboardMetrics{}, e.Metrics())
	assert.Zero(t, e.SLACompliance())
	assert.NotNil(t, e.Tickets())
	assert.Empty(t, e.Tickets())
	assert.NotNil(t, e.EscalatedTickets())
	assert.Empty(t, e.EscalatedTickets())
	assert.NotNil(t, e.RecentPriorityTickets())
	assert.Empty(t, e.RecentPriorityTickets())
	assert.Empty(t, e.UniqueSDMs())
	assert.Empty(t, e.UniqueCompanies())

	charts := e.ChartData()
	require.Len(t, charts.TicketVolume, analytics.ChartMonths)
	assert.Equal(t, "2023-12", charts.TicketVolume[0].Month)
	assert.Equal(t, "2024-06", charts.TicketVolume[6].Month)
	for _, p := range charts.TicketVolume {
		assert.Zero(t, p.Created)
		assert.Zero(t, p.Resolved)
	}
	assert.Empty(t, charts.OpenTicketTypes)
}

func TestEngine_AvgResolution_NoClosedTickets(t *testing.T) {
	e := newEngine([]domain.TicketRecord{
		{TicketID: "A", Status: "New", ResolutionTimeHrs: "4"},
		{TicketID: "B", Status: "Pending", ResolutionTimeHrs: "8"},
	})

	assert.Equal(t, 0.0, e.Metrics().AvgResolution)
}

func TestEngine_AvgResolution_UnparseableCountsAsZero(t *testing.T) {
	e := newEngine([]domain.TicketRecord{
		{TicketID: "A", Status: "Closed", ResolutionTimeHrs: "6"},
		{TicketID: "B", Status: "Resolved", ResolutionTimeHrs: "n/a"},
		{TicketID: "C", Status: "Resolved", ResolutionTimeHrs: "1:15"},
	})

	assert.Equal(t, 2.3, e.Metrics().AvgResolution)
}

func TestEngine_SLACompliance_Bounds(t *testing.T) {
	tests := []struct {
		name      string
		tickets   []domain.TicketRecord
		overrides domain.SLAOverrides
		want      float64
	}{
		{
			name: "all within sla",
			tickets: []domain.TicketRecord{
				{TicketID: "A", ResolutionStatus: "Within SLA"},
				{TicketID: "B", ResolutionStatus: "Within SLA"},
			},
			want: 100,
		},
		{
			name: "all overridden compliant",
			tickets: []domain.TicketRecord{
				{TicketID: "A", ResolutionStatus: "SLA Violated"},
				{TicketID: "B", Status: "New", DueByTime: "2020-01-01"},
			},
			overrides: domain.SLAOverrides{"A": false, "B": false},
			want:      100,
		},
		{
			name: "all breached",
			tickets: []domain.TicketRecord{
				{TicketID: "A", ResolutionStatus: "SLA Violated"},
				{TicketID: "B", Status: "New", DueByTime: "2020-01-01"},
			},
			want: 0,
		},
		{
			name: "inert override",
			tickets: []domain.TicketRecord{
				{TicketID: "A", ResolutionStatus: "SLA Violated"},
			},
			overrides: domain.SLAOverrides{"missing": false},
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newEngine(tt.tickets, analytics.WithOverrides(tt.overrides)).SLACompliance()
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_WithOverrides_CopiesTable(t *testing.T) {
	overrides := domain.SLAOverrides{"T2": false}
	e := newEngine(scenarioTickets(), analytics.WithOverrides(overrides))

	overrides["T2"] = true
	delete(overrides, "T2")

	assert.Equal(t, 66.7, e.Metrics().SLACompliance)
	assert.True(t, e.IsOverridden("T2"))
}

func TestEngine_DoesNotAliasInput(t *testing.T) {
	tickets := scenarioTickets()
	e := newEngine(tickets)

	tickets[0].Status = "New"
	out := e.Tickets()
	out[1].Status = "New"

	assert.Equal(t, 2, e.Metrics().ClosedTickets)
}

func TestEngine_EscalatedTickets(t *testing.T) {
	e := newEngine([]domain.TicketRecord{
		{TicketID: "A", SDMEscalation: "true", CreatedTime: "2024-05-01 10:00:00", NumberOfUsersAffected: "25"},
		{TicketID: "B", SDMEscalation: "false", CreatedTime: "2024-06-01 10:00:00"},
		{TicketID: "C", SDMEscalation: "Yes", CreatedTime: "bad date"},
		{TicketID: "D", SDMEscalation: "1", CreatedTime: "2024-06-10 10:00:00", NumberOfUsersAffected: "many"},
		{TicketID: "E", SDMEscalation: "true", CreatedTime: "2024-05-20 10:00:00"},
	})

	got := e.EscalatedTickets()

	ids := make([]string, 0, len(got))
	for _, tk := range got {
		ids = append(ids, tk.TicketID)
	}
	assert.Equal(t, []string{"D", "E", "A", "C"}, ids)
	assert.Equal(t, 0, got[0].UsersAffected)
	assert.Equal(t, 25, got[2].UsersAffected)
}

func TestEngine_RecentPriorityTickets(t *testing.T) {
	var tickets []domain.TicketRecord
	for i := 1; i <= 14; i++ {
		tickets = append(tickets, domain.TicketRecord{
			TicketID:    fmt.Sprintf("P%02d", i),
			Priority:    []string{"Urgent", "High"}[i%2],
			CreatedTime: fmt.Sprintf("2024-05-%02d 08:00:00", i),
			Agent:       "alice",
		})
	}
	tickets = append(tickets, domain.TicketRecord{TicketID: "L1", Priority: "Low", CreatedTime: "2024-05-30 08:00:00"})

	got := newEngine(tickets).RecentPriorityTickets()

	require.Len(t, got, analytics.MaxRecentPriorityTickets)
	assert.Equal(t, "P14", got[0].TicketID)
	assert.Equal(t, "P05", got[9].TicketID)
	assert.Equal(t, "alice", got[0].Agent)

	for i := 1; i < len(got); i++ {
		prev, _ := domain.ParseTimestamp(got[i-1].CreatedTime)
		cur, _ := domain.ParseTimestamp(got[i].CreatedTime)
		assert.False(t, cur.After(prev), "list must be non-increasing by created time")
	}
}

func TestEngine_UniqueValues(t *testing.T) {
	e := newEngine([]domain.TicketRecord{
		{SDM: "Bob", CompanyName: "Acme"},
		{SDM: " Alice ", CompanyName: "Globex"},
		{SDM: "Bob", CompanyName: " "},
		{SDM: "", CompanyName: "Acme"},
	})

	assert.Equal(t, []string{"Alice", "Bob"}, e.UniqueSDMs())
	assert.Equal(t, []string{"Acme", "Globex"}, e.UniqueCompanies())
}
