package analytics_test

import (
	"fmt"
	"testing"

	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodLabel(t *testing.T) {
	tests := []struct {
		period string
		want   string
	}{
		{"last3months", "Last 3 Months"},
		{"last6months", "Last 6 Months"},
		{"lastyear", "Last 12 Months"},
		{"all", "All Time"},
		{"", "All Time"},
		{"2024-03", "March 2024"},
		{"2024-13", "All Time"},
		{"weekly", "All Time"},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			assert.Equal(t, tt.want, analytics.PeriodLabel(tt.period))
		})
	}
}

func TestBuildServiceReport_Scenario(t *testing.T) {
	tickets := scenarioTickets()
	tickets[2].SDMEscalation = "true"
	tickets[2].Type = "Incident"

	report := analytics.BuildServiceReport(newEngine(tickets), analytics.ReportOptions{Company: "all", Period: "2024-06"})

	assert.Equal(t, "All Companies", report.Title.Company)
	assert.Equal(t, "June 2024", report.Title.Period)
	assert.Equal(t, fixedNow, report.Title.GeneratedAt)

	require.Len(t, report.Overview, 4)
	assert.Equal(t, analytics.StatusNeutral, report.Overview[0].Status)
	assert.Equal(t, "33.3%", report.Overview[1].Value)
	assert.Equal(t, analytics.StatusAttention, report.Overview[1].Status)
	assert.Equal(t, "7.5 hours", report.Overview[2].Value)
	assert.Equal(t, analytics.StatusExcellent, report.Overview[2].Status)
	assert.Equal(t, analytics.StatusAttention, report.Overview[3].Status)

	assert.Equal(t, 1, report.SLA.Compliant)
	assert.Equal(t, 2, report.SLA.Breached)
	assert.False(t, report.SLA.Met)
	assert.Contains(t, report.SLA.Assessment, "immediate attention")

	require.Len(t, report.Volume, 3)
	last := report.Volume[2]
	assert.Equal(t, "2024-06", last.Month)
	assert.Equal(t, "Jun 2024", last.Label)
	assert.Equal(t, 3, last.Created)
	assert.Equal(t, 2, last.Resolved)
	assert.Equal(t, -1, last.Net)

	assert.Equal(t, []analytics.CategoryRow{{Type: "Incident", Count: 1, Percentage: 100, Priority: "High"}}, report.Categories)

	assert.Equal(t, 1, report.Escalation.Total)
	assert.Equal(t, 33.3, report.Escalation.Rate)
	assert.Equal(t, "High", report.Escalation.Assessment)
	assert.Equal(t, 66.7, report.Escalation.FirstCallResolution)

	titles := make([]string, 0, len(report.Recommendations))
	for _, rec := range report.Recommendations {
		titles = append(titles, rec.Title)
	}
	assert.Equal(t, []string{
		"Improve SLA Compliance",
		"Reduce Escalation Rate",
		"Address Open Ticket Backlog",
		"Continuous Service Improvement",
	}, titles)
	assert.Equal(t, analytics.PriorityHigh, report.Recommendations[0].Priority)
}

func TestBuildServiceReport_UsesOverrides(t *testing.T) {
	e := newEngine(scenarioTickets(), analytics.WithOverrides(domain.SLAOverrides{"T2": false, "T3": false}))

	report := analytics.BuildServiceReport(e, analytics.ReportOptions{Company: "Acme"})

	assert.Equal(t, "Acme", report.Title.Company)
	assert.Equal(t, "All Time", report.Title.Period)
	assert.Equal(t, 3, report.SLA.Compliant)
	assert.Zero(t, report.SLA.Breached)
	assert.True(t, report.SLA.Met)
	assert.Equal(t, "100%", report.Overview[1].Value)
}

func TestBuildServiceReport_Agents(t *testing.T) {
	var tickets []domain.TicketRecord
	add := func(agent string, closed, open int) {
		for i := 0; i < closed; i++ {
			tickets = append(tickets, domain.TicketRecord{TicketID: fmt.Sprintf("%s-c%d", agent, i), Agent: agent, Status: "Closed"})
		}
		for i := 0; i < open; i++ {
			tickets = append(tickets, domain.TicketRecord{TicketID: fmt.Sprintf("%s-o%d", agent, i), Agent: agent, Status: "New"})
		}
	}
	add("ann", 3, 1)
	add("ben", 1, 1)
	add("cat", 2, 0)
	add("dan", 0, 2)
	add("eve", 1, 2)
	add("fay", 2, 2)
	add("Unassigned", 5, 0)
	add("", 5, 0)

	agents := analytics.BuildServiceReport(newEngine(tickets), analytics.ReportOptions{}).Agents

	names := make([]string, 0, len(agents))
	for _, a := range agents {
		names = append(names, a.Agent)
	}
	assert.Equal(t, []string{"cat", "ann", "ben", "fay", "eve"}, names)
	assert.Equal(t, 75.0, agents[1].Rate)
	assert.Equal(t, 33.3, agents[4].Rate)
}

func TestBuildServiceReport_Empty(t *testing.T) {
	report := analytics.BuildServiceReport(newEngine(nil), analytics.ReportOptions{})

	assert.Zero(t, report.Escalation.Rate)
	assert.Equal(t, 100.0, report.Escalation.FirstCallResolution)
	assert.Equal(t, "Low", report.Escalation.Assessment)
	assert.Empty(t, report.Categories)
	assert.Empty(t, report.Agents)
	assert.Len(t, report.Volume, 3)

	last := report.Recommendations[len(report.Recommendations)-1]
	assert.Equal(t, "Continuous Service Improvement", last.Title)
	assert.Equal(t, analytics.PriorityLow, last.Priority)
}
