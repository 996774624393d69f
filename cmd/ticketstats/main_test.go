package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/service-desk-analytics/internal/auth"
	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

const export = `Ticket ID,Subject,Status,Priority,Type,Company Name,SDM,Agent,Created Time,Resolved Time,Due by Time,Resolution Time (Hrs),Resolution Status,SDM Escalation,Number of Users Affected
1,Printer,Resolved,High,Incident,Acme,Alice,Bob,2024-03-01 09:00:00,2024-03-01 12:00:00,2024-03-01 17:00:00,3,Within SLA,false,1
2,VPN,Closed,Low,Request,Acme,Alice,Bob,2024-03-05 09:00:00,2024-03-06 09:00:00,2024-03-04 09:00:00,24,SLA Violated,true,5
3,Laptop,Open,Urgent,Incident,Globex,Carol,Dan,2024-04-01 09:00:00,,2024-04-01 13:00:00,,,false,2
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_Metrics(t *testing.T) {
	file := writeFile(t, "tickets.csv", export)

	var out bytes.Buffer
	err := run(context.Background(), []string{"metrics", "--file", file}, &out)
	require.NoError(t, err)

	var dashboard domain.Dashboard
	require.NoError(t, json.Unmarshal(out.Bytes(), &dashboard))
	assert.Equal(t, 3, dashboard.Metrics.TotalTickets)
	assert.Equal(t, 1, dashboard.Metrics.OpenTickets)
	assert.Equal(t, 2, dashboard.Metrics.ClosedTickets)
	assert.Equal(t, []string{"Alice", "Carol"}, dashboard.SDMs)
	require.Len(t, dashboard.EscalatedTickets, 1)
	assert.Equal(t, "2", dashboard.EscalatedTickets[0].TicketID)
}

func TestRun_MetricsWithFiltersAndOverrides(t *testing.T) {
	file := writeFile(t, "tickets.csv", export)
	overrides := writeFile(t, "overrides.json", `{"2": false}`)

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"metrics", "-f", file, "--sdm", "Alice", "--overrides", overrides,
	}, &out)
	require.NoError(t, err)

	var dashboard domain.Dashboard
	require.NoError(t, json.Unmarshal(out.Bytes(), &dashboard))
	assert.Equal(t, 2, dashboard.Metrics.TotalTickets)
	// Ticket 2 is marked not breached, so both Alice tickets comply
	assert.Equal(t, 100.0, dashboard.Metrics.SLACompliance)
	// Filter options always come from the full dataset
	assert.Equal(t, []string{"Acme", "Globex"}, dashboard.Companies)
}

func TestRun_Breaches(t *testing.T) {
	file := writeFile(t, "tickets.csv", export)

	var out bytes.Buffer
	err := run(context.Background(), []string{"breaches", "--file", file, "--to", "2024-03-31"}, &out)
	require.NoError(t, err)

	var report analytics.BreachReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 2, report.TotalTickets)
	assert.Equal(t, 1, report.BreachedTickets)
}

func TestRun_Report(t *testing.T) {
	file := writeFile(t, "tickets.csv", export)

	var out bytes.Buffer
	err := run(context.Background(), []string{"report", "--file", file, "--company", "Acme"}, &out)
	require.NoError(t, err)

	var report analytics.ServiceReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 2, report.Metrics.TotalTickets)
	assert.NotEmpty(t, report.Summary)
}

func TestRun_Token(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{
		"token", "--user", "u-1", "--role", "reviewer", "--secret", "s3cret",
	}, &out)
	require.NoError(t, err)

	claims, err := auth.NewTokenManager("s3cret", 0).ValidateToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "reviewer", claims.Role)
}

func TestRun_Errors(t *testing.T) {
	missingColumns := writeFile(t, "bad.csv", "Subject\nhello\n")
	badOverrides := writeFile(t, "overrides.json", `not json`)
	good := writeFile(t, "tickets.csv", export)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no command", nil, "usage"},
		{"unknown command", []string{"export"}, "unknown command"},
		{"missing file flag", []string{"metrics"}, "--file is required"},
		{"bad date", []string{"metrics", "--file", good, "--from", "03/01/2024"}, "--from must be a date"},
		{"inverted range", []string{"metrics", "--file", good, "--from", "2024-05-01", "--to", "2024-04-01"}, "must not be after"},
		{"missing columns", []string{"metrics", "--file", missingColumns}, "missing required columns"},
		{"bad overrides", []string{"metrics", "--file", good, "--overrides", badOverrides}, "invalid overrides file"},
		{"token without user", []string{"token", "--secret", "x"}, "--user is required"},
		{"token bad role", []string{"token", "--user", "u", "--secret", "x", "--role", "root"}, "invalid role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.args, &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
