// ticketstats computes dashboard metrics and service reports for a ticket
// export without running the API, and mints API tokens for local use.
//
// Usage:
//
//	ticketstats metrics  --file tickets.csv [--sdm S] [--company C] [--from D] [--to D] [--overrides o.json]
//	ticketstats report   --file tickets.csv [filters] [--period P]
//	ticketstats breaches --file tickets.csv [filters] [--agent A]
//	ticketstats token    --user U --role R --secret S [--ttl 1h]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/lorrc/service-desk-analytics/internal/adapters/secondary/csvimport"
	"github.com/lorrc/service-desk-analytics/internal/adapters/secondary/memory"
	"github.com/lorrc/service-desk-analytics/internal/auth"
	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
	"github.com/lorrc/service-desk-analytics/internal/core/services"
)

const cliUser = "ticketstats"

var errUsage = errors.New("usage: ticketstats <metrics|report|breaches|token> [flags]")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "metrics":
		return runMetrics(ctx, args[1:], stdout)
	case "report":
		return runReport(ctx, args[1:], stdout)
	case "breaches":
		return runBreaches(ctx, args[1:], stdout)
	case "token":
		return runToken(args[1:], stdout)
	case "-h", "--help", "help":
		fmt.Fprintln(stdout, errUsage.Error())
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%w", args[0], errUsage)
	}
}

// datasetFlags are shared by every command that reads an export.
type datasetFlags struct {
	file      string
	sdm       string
	company   string
	from      string
	to        string
	overrides string
}

func (f *datasetFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.file, "file", "f", "", "ticket export CSV (required)")
	fs.StringVar(&f.sdm, "sdm", "", "only tickets for this SDM")
	fs.StringVar(&f.company, "company", "", "only tickets for this company")
	fs.StringVar(&f.from, "from", "", "earliest created date, YYYY-MM-DD")
	fs.StringVar(&f.to, "to", "", "latest created date, YYYY-MM-DD")
	fs.StringVar(&f.overrides, "overrides", "", `JSON file of SLA overrides: {"<ticket id>": <breached>}`)
}

func (f *datasetFlags) criteria() (analytics.Criteria, error) {
	c := analytics.Criteria{SDM: f.sdm, Company: f.company}
	for _, d := range []struct {
		name  string
		value string
		dst   **time.Time
	}{
		{"from", f.from, &c.DateFrom},
		{"to", f.to, &c.DateTo},
	} {
		if d.value == "" {
			continue
		}
		ts, ok := domain.ParseDate(d.value)
		if !ok {
			return c, fmt.Errorf("--%s must be a date in YYYY-MM-DD format", d.name)
		}
		*d.dst = &ts
	}
	if c.DateFrom != nil && c.DateTo != nil && c.DateFrom.After(*c.DateTo) {
		return c, errors.New("--from must not be after --to")
	}
	return c, nil
}

// session holds the services over an in-memory copy of one export.
type session struct {
	dashboard *services.DashboardService
	datasetID uuid.UUID
}

// load imports the export and applies the overrides file through the same
// services the API uses.
func (f *datasetFlags) load(ctx context.Context) (*session, error) {
	if f.file == "" {
		return nil, errors.New("--file is required")
	}

	file, err := os.Open(f.file)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	store := memory.NewStore()
	datasetService := services.NewDatasetService(
		store.Datasets(),
		store.Overrides(),
		csvimport.NewParser(),
		store.TransactionManager(),
		nil,
	)
	actor := ports.Actor{UserID: cliUser, Role: domain.RoleAdmin}

	dataset, err := datasetService.Upload(ctx, ports.UploadDatasetParams{
		Actor: actor,
		Name:  filepath.Base(f.file),
		File:  file,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", f.file, err)
	}

	if f.overrides != "" {
		overrides, err := readOverrides(f.overrides)
		if err != nil {
			return nil, err
		}
		for ticketID, breached := range overrides {
			_, err := datasetService.SetOverride(ctx, ports.SetOverrideParams{
				Actor:     actor,
				DatasetID: dataset.ID,
				TicketID:  ticketID,
				Breached:  breached,
			})
			if err != nil {
				return nil, fmt.Errorf("override %q: %w", ticketID, err)
			}
		}
	}

	return &session{
		dashboard: services.NewDashboardService(store.Datasets(), store.Overrides()),
		datasetID: dataset.ID,
	}, nil
}

func readOverrides(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var overrides map[string]bool
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("invalid overrides file %s: %w", path, err)
	}
	return overrides, nil
}

func (s *session) query(c analytics.Criteria) ports.DashboardQuery {
	return ports.DashboardQuery{DatasetID: s.datasetID, Criteria: c}
}

func runMetrics(ctx context.Context, args []string, stdout io.Writer) error {
	var flags datasetFlags
	fs := pflag.NewFlagSet("metrics", pflag.ContinueOnError)
	flags.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := flags.criteria()
	if err != nil {
		return err
	}
	s, err := flags.load(ctx)
	if err != nil {
		return err
	}

	dashboard, err := s.dashboard.GetDashboard(ctx, s.query(c))
	if err != nil {
		return err
	}
	return writeJSON(stdout, dashboard)
}

func runReport(ctx context.Context, args []string, stdout io.Writer) error {
	var flags datasetFlags
	var period string
	fs := pflag.NewFlagSet("report", pflag.ContinueOnError)
	flags.register(fs)
	fs.StringVar(&period, "period", "", "report period: all, last3months, last6months, lastyear or YYYY-MM")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := flags.criteria()
	if err != nil {
		return err
	}
	s, err := flags.load(ctx)
	if err != nil {
		return err
	}

	report, err := s.dashboard.GetServiceReport(ctx, ports.ReportQuery{
		DashboardQuery: s.query(c),
		Period:         period,
	})
	if err != nil {
		return err
	}
	return writeJSON(stdout, report)
}

func runBreaches(ctx context.Context, args []string, stdout io.Writer) error {
	var flags datasetFlags
	var agent string
	fs := pflag.NewFlagSet("breaches", pflag.ContinueOnError)
	flags.register(fs)
	fs.StringVar(&agent, "agent", "", "only breaches handled by this agent")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := flags.criteria()
	if err != nil {
		return err
	}
	s, err := flags.load(ctx)
	if err != nil {
		return err
	}

	report, err := s.dashboard.GetBreachReport(ctx, ports.BreachQuery{
		DashboardQuery: s.query(c),
		Agent:          agent,
	})
	if err != nil {
		return err
	}
	return writeJSON(stdout, report)
}

func runToken(args []string, stdout io.Writer) error {
	var userID, role, secret string
	var ttl time.Duration
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	fs.StringVar(&userID, "user", "", "user ID to embed in the token (required)")
	fs.StringVar(&role, "role", string(domain.RoleViewer), "viewer, reviewer or admin")
	fs.StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "signing secret (default $JWT_SECRET)")
	fs.DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case userID == "":
		return errors.New("--user is required")
	case secret == "":
		return errors.New("--secret or JWT_SECRET is required")
	case !domain.Role(role).IsValid():
		return fmt.Errorf("invalid role %q", role)
	}

	token, err := auth.NewTokenManager(secret, ttl).GenerateToken(userID, role)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
