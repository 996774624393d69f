package http

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/service-desk-analytics/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
)

var breachCSVHeader = []string{
	"Ticket ID", "Subject", "Company", "Agent", "Priority", "Status",
	"Created", "Resolved", "SLA Hours", "Actual Hours", "Breached",
}

// DashboardHandler serves the analytics read endpoints of one dataset
type DashboardHandler struct {
	dashboardService ports.DashboardService
	errorHandler     *ErrorHandler
	logger           *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(
	dashboardService ports.DashboardService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		errorHandler:     errorHandler,
		logger:           logger.With("handler", "dashboard"),
	}
}

// RegisterRoutes sets up the routing for the dashboard endpoints. The parent
// router supplies the {datasetID} parameter.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.HandleGetDashboard)
	r.Get("/tickets", h.HandleListTickets)
	r.Get("/sla/breaches", h.HandleGetBreaches)
	r.Get("/report", h.HandleGetReport)
}

// HandleGetDashboard handles GET /datasets/{datasetID}/dashboard
func (h *DashboardHandler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	query, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	dashboard, err := h.dashboardService.GetDashboard(r.Context(), query)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, dashboard)
}

// HandleListTickets handles GET /datasets/{datasetID}/tickets
func (h *DashboardHandler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	query, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	tickets, err := h.dashboardService.GetTickets(r.Context(), query)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteList(w, tickets)
}

// HandleGetBreaches handles GET /datasets/{datasetID}/sla/breaches. With
// format=csv the ticket rows are streamed as a spreadsheet export.
func (h *DashboardHandler) HandleGetBreaches(w http.ResponseWriter, r *http.Request) {
	query, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	agent := strings.TrimSpace(r.URL.Query().Get("agent"))
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))

	v := validation.NewValidator().
		MaxLength("agent", agent, 255).
		OneOf("format", format, []string{formatJSON, formatCSV})
	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	report, err := h.dashboardService.GetBreachReport(r.Context(), ports.BreachQuery{
		DashboardQuery: query,
		Agent:          agent,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	if format == formatCSV {
		h.writeBreachCSV(w, r, query, report)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// HandleGetReport handles GET /datasets/{datasetID}/report
func (h *DashboardHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	query, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	period := strings.TrimSpace(r.URL.Query().Get("period"))
	if v := validation.NewValidator().Period("period", period); v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	report, err := h.dashboardService.GetServiceReport(r.Context(), ports.ReportQuery{
		DashboardQuery: query,
		Period:         period,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// --- Helper methods ---

func (h *DashboardHandler) parseQuery(w http.ResponseWriter, r *http.Request) (ports.DashboardQuery, bool) {
	if _, ok := getClaims(w, r); !ok {
		return ports.DashboardQuery{}, false
	}

	id, err := parseDatasetID(r)
	if HandleError(w, r, err, h.errorHandler) {
		return ports.DashboardQuery{}, false
	}

	criteria, err := validation.ParseCriteria(r)
	if HandleError(w, r, err, h.errorHandler) {
		return ports.DashboardQuery{}, false
	}

	return ports.DashboardQuery{DatasetID: id, Criteria: criteria}, true
}

func (h *DashboardHandler) writeBreachCSV(w http.ResponseWriter, r *http.Request, query ports.DashboardQuery, report *analytics.BreachReport) {
	filename := fmt.Sprintf("sla-breaches-%s.csv", query.DatasetID)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(breachCSVHeader)
	for _, t := range report.Tickets {
		_ = cw.Write([]string{
			t.TicketID,
			t.Subject,
			t.CompanyName,
			t.Agent,
			t.Priority,
			t.Status,
			t.CreatedTime,
			t.ResolvedTime,
			strconv.Itoa(t.SLAHours),
			strconv.Itoa(t.ActualHours),
			yesNo(t.Breached),
		})
	}
	cw.Flush()

	if err := cw.Error(); err != nil {
		h.logger.WarnContext(r.Context(), "breach export interrupted", "error", err)
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
