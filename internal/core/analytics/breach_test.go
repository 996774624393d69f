package analytics_test

import (
	"testing"

	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func breachTickets() []domain.TicketRecord {
	return []domain.TicketRecord{
		{TicketID: "A1", Agent: "alice", Priority: "Urgent", Status: "Closed", ResolutionStatus: "Within SLA",
			CreatedTime: "2024-06-01 08:00:00", ResolvedTime: "2024-06-01 11:00:00"},
		{TicketID: "A2", Agent: "alice", Priority: "High", Status: "Closed", ResolutionStatus: "SLA Violated",
			CreatedTime: "2024-06-03 08:00:00", ResolvedTime: "2024-06-03 20:00:00"},
		{TicketID: "B1", Agent: "bob", Status: "New", DueByTime: "2024-06-10 08:00:00",
			CreatedTime: "2024-06-09 08:00:00"},
		{TicketID: "B2", Agent: "bob", Status: "New", DueByTime: "2024-06-11 08:00:00",
			CreatedTime: "2024-06-08 08:00:00"},
		{TicketID: "U1", Status: "Pending", DueByTime: "2024-06-01 08:00:00",
			CreatedTime: "2024-06-12 08:00:00"},
	}
}

func TestBuildBreachReport(t *testing.T) {
	e := newEngine(breachTickets())

	report := analytics.BuildBreachReport(e, "")

	assert.Equal(t, 5, report.TotalTickets)
	assert.Equal(t, 3, report.BreachedTickets)
	assert.Equal(t, 40.0, report.CompliancePercentage)
	assert.Equal(t, e.Metrics().SLACompliance, report.CompliancePercentage)

	got := make([]string, 0, len(report.Tickets))
	for _, row := range report.Tickets {
		got = append(got, row.TicketID)
	}
	assert.Equal(t, []string{"B1", "B2", "A2", "U1", "A1"}, got)

	u1 := report.Tickets[3]
	assert.Equal(t, analytics.DefaultAgent, u1.Agent)
	assert.Equal(t, analytics.DefaultSubject, u1.Subject)
	assert.Equal(t, analytics.DefaultCompany, u1.CompanyName)
	assert.Equal(t, analytics.DefaultPriority, u1.Priority)
	assert.Equal(t, 24, u1.SLAHours)
	assert.Equal(t, 76, u1.ActualHours)
	assert.Equal(t, domain.SLASourceInferred, u1.Source)

	a2 := report.Tickets[2]
	assert.Equal(t, 8, a2.SLAHours)
	assert.Equal(t, 12, a2.ActualHours)
	assert.Equal(t, domain.SLASourceStatus, a2.Source)

	assert.Equal(t, []analytics.AgentBreachSummary{
		{Agent: "bob", Breached: 2, Total: 2, Percentage: 100},
		{Agent: "alice", Breached: 1, Total: 2, Percentage: 50},
	}, report.Agents)
}

func TestBuildBreachReport_Override(t *testing.T) {
	e := newEngine(breachTickets(), analytics.WithOverrides(domain.SLAOverrides{"A2": false, "A1": true}))

	report := analytics.BuildBreachReport(e, "")

	byID := map[string]analytics.BreachTicket{}
	for _, row := range report.Tickets {
		byID[row.TicketID] = row
	}
	require.Contains(t, byID, "A2")
	assert.False(t, byID["A2"].Breached)
	assert.True(t, byID["A2"].Overridden)
	assert.True(t, byID["A1"].Breached)
	assert.Equal(t, domain.SLASourceOverride, byID["A1"].Source)
	assert.False(t, byID["B1"].Overridden)
}

func TestBuildBreachReport_AgentFilter(t *testing.T) {
	report := analytics.BuildBreachReport(newEngine(breachTickets()), "alice")

	assert.Equal(t, "alice", report.Agent)
	require.Len(t, report.Tickets, 1)
	assert.Equal(t, "A2", report.Tickets[0].TicketID)
	assert.Len(t, report.Agents, 2)
}

func TestBuildBreachReport_Empty(t *testing.T) {
	report := analytics.BuildBreachReport(newEngine(nil), "")

	assert.Zero(t, report.TotalTickets)
	assert.Zero(t, report.CompliancePercentage)
	assert.Empty(t, report.Tickets)
	assert.Empty(t, report.Agents)
}
