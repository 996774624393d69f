package http

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/lorrc/service-desk-analytics/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-analytics/internal/auth"
	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/lorrc/service-desk-analytics/internal/core/mocks"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

const testSecret = "handler-test-secret"

type testAPI struct {
	router    stdhttp.Handler
	datasets  *mocks.MockDatasetService
	dashboard *mocks.MockDashboardService
	tokens    *auth.TokenManager
}

func newTestAPI(t *testing.T, maxUpload int64) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := NewErrorHandler(logger)
	datasets := mocks.NewMockDatasetService()
	dashboard := mocks.NewMockDashboardService()
	tm := auth.NewTokenManager(testSecret, time.Hour)

	datasetHandler := NewDatasetHandler(
		datasets,
		NewDashboardHandler(dashboard, errorHandler, logger),
		NewOverrideHandler(datasets, errorHandler, logger),
		errorHandler,
		DatasetHandlerConfig{MaxUploadBytes: maxUpload},
		logger,
	)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Group(func(r chi.Router) {
		r.Use(mw.JWTMiddleware(tm))
		r.Mount("/datasets", datasetHandler.Router())
		r.Route("/me", NewMeHandler(logger).RegisterRoutes)
	})

	return &testAPI{router: r, datasets: datasets, dashboard: dashboard, tokens: tm}
}

func (a *testAPI) do(t *testing.T, role domain.Role, req *stdhttp.Request) *httptest.ResponseRecorder {
	t.Helper()
	token, err := a.tokens.GenerateToken("user-"+string(role), string(role))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func sampleDataset() *domain.Dataset {
	return &domain.Dataset{
		ID:          uuid.New(),
		Name:        "March export",
		UploadedBy:  "user-admin",
		UploadedAt:  time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC),
		TicketCount: 42,
	}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(v))
}

func TestDatasetHandler_List(t *testing.T) {
	api := newTestAPI(t, 0)
	ds := sampleDataset()

	api.datasets.On("List", mock.Anything, ports.ListDatasetsParams{Limit: 2, Offset: 0}).
		Return([]*domain.Dataset{ds, sampleDataset()}, nil)

	rr := api.do(t, domain.RoleViewer, httptest.NewRequest(stdhttp.MethodGet, "/datasets?limit=1", nil))
	require.Equal(t, stdhttp.StatusOK, rr.Code)

	var body PaginatedResponse[DatasetDTO]
	decodeBody(t, rr, &body)
	require.Len(t, body.Data, 1)
	assert.Equal(t, ds.ID.String(), body.Data[0].ID)
	assert.Equal(t, "2024-03-31T09:00:00Z", body.Data[0].UploadedAt)
	assert.True(t, body.Pagination.HasMore)
}

func TestDatasetHandler_Unauthenticated(t *testing.T) {
	api := newTestAPI(t, 0)

	rr := httptest.NewRecorder()
	api.router.ServeHTTP(rr, httptest.NewRequest(stdhttp.MethodGet, "/datasets", nil))

	assert.Equal(t, stdhttp.StatusUnauthorized, rr.Code)
}

func TestDatasetHandler_UploadMultipart(t *testing.T) {
	api := newTestAPI(t, 0)
	ds := sampleDataset()

	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)
	require.NoError(t, mpw.WriteField("name", "March export"))
	fw, err := mpw.CreateFormFile("file", "tickets.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Ticket ID,Status\n1,Open\n"))
	require.NoError(t, err)
	require.NoError(t, mpw.Close())

	api.datasets.On("Upload", mock.Anything, mock.MatchedBy(func(p ports.UploadDatasetParams) bool {
		return p.Name == "March export" &&
			p.Actor.UserID == "user-admin" &&
			p.Actor.Role == domain.RoleAdmin &&
			p.File != nil
	})).Return(ds, nil)

	req := httptest.NewRequest(stdhttp.MethodPost, "/datasets", &buf)
	req.Header.Set("Content-Type", mpw.FormDataContentType())

	rr := api.do(t, domain.RoleAdmin, req)
	require.Equal(t, stdhttp.StatusCreated, rr.Code)

	var body DatasetDTO
	decodeBody(t, rr, &body)
	assert.Equal(t, ds.ID.String(), body.ID)
	assert.Equal(t, 42, body.TicketCount)
	api.datasets.AssertExpectations(t)
}

func TestDatasetHandler_UploadRawCSV(t *testing.T) {
	api := newTestAPI(t, 0)
	ds := sampleDataset()

	api.datasets.On("Upload", mock.Anything, mock.MatchedBy(func(p ports.UploadDatasetParams) bool {
		return p.Name == "raw" && p.File != nil
	})).Return(ds, nil)

	req := httptest.NewRequest(stdhttp.MethodPost, "/datasets?name=raw", strings.NewReader("Ticket ID\n1\n"))
	req.Header.Set("Content-Type", "text/csv")

	rr := api.do(t, domain.RoleAdmin, req)
	assert.Equal(t, stdhttp.StatusCreated, rr.Code)
}

func TestDatasetHandler_UploadErrors(t *testing.T) {
	tests := []struct {
		name        string
		role        domain.Role
		contentType string
		body        string
		serviceErr  error
		wantStatus  int
	}{
		{
			name:        "viewer forbidden",
			role:        domain.RoleViewer,
			contentType: "text/csv",
			body:        "Ticket ID\n1\n",
			wantStatus:  stdhttp.StatusForbidden,
		},
		{
			name:        "unsupported content type",
			role:        domain.RoleAdmin,
			contentType: "application/json",
			body:        "{}",
			wantStatus:  stdhttp.StatusBadRequest,
		},
		{
			name:        "missing columns",
			role:        domain.RoleAdmin,
			contentType: "text/csv",
			body:        "Foo\n1\n",
			serviceErr:  apperrors.ErrMissingColumns,
			wantStatus:  stdhttp.StatusUnprocessableEntity,
		},
		{
			name:        "empty upload",
			role:        domain.RoleAdmin,
			contentType: "text/csv",
			body:        "Ticket ID\n",
			serviceErr:  apperrors.ErrEmptyUpload,
			wantStatus:  stdhttp.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, 0)
			if tt.serviceErr != nil {
				api.datasets.On("Upload", mock.Anything, mock.Anything).Return(nil, tt.serviceErr)
			}

			req := httptest.NewRequest(stdhttp.MethodPost, "/datasets", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)

			rr := api.do(t, tt.role, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestDatasetHandler_UploadTooLarge(t *testing.T) {
	api := newTestAPI(t, 16)

	// The parser reads past the limit; MaxBytesReader surfaces it as an error.
	api.datasets.On("Upload", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidCSV, &stdhttp.MaxBytesError{Limit: 16}))

	req := httptest.NewRequest(stdhttp.MethodPost, "/datasets", strings.NewReader(strings.Repeat("x", 64)))
	req.Header.Set("Content-Type", "text/csv")

	rr := api.do(t, domain.RoleAdmin, req)
	assert.Equal(t, stdhttp.StatusRequestEntityTooLarge, rr.Code)
}

func TestDatasetHandler_GetAndDelete(t *testing.T) {
	api := newTestAPI(t, 0)
	ds := sampleDataset()
	missing := uuid.New()

	api.datasets.On("Get", mock.Anything, ds.ID).Return(ds, nil)
	api.datasets.On("Get", mock.Anything, missing).Return(nil, apperrors.ErrDatasetNotFound)
	api.datasets.On("Delete", mock.Anything, ports.Actor{UserID: "user-admin", Role: domain.RoleAdmin}, ds.ID).Return(nil)

	rr := api.do(t, domain.RoleViewer, httptest.NewRequest(stdhttp.MethodGet, "/datasets/"+ds.ID.String(), nil))
	assert.Equal(t, stdhttp.StatusOK, rr.Code)

	rr = api.do(t, domain.RoleViewer, httptest.NewRequest(stdhttp.MethodGet, "/datasets/"+missing.String(), nil))
	assert.Equal(t, stdhttp.StatusNotFound, rr.Code)

	rr = api.do(t, domain.RoleViewer, httptest.NewRequest(stdhttp.MethodGet, "/datasets/not-a-uuid", nil))
	assert.Equal(t, stdhttp.StatusUnprocessableEntity, rr.Code)

	rr = api.do(t, domain.RoleReviewer, httptest.NewRequest(stdhttp.MethodDelete, "/datasets/"+ds.ID.String(), nil))
	assert.Equal(t, stdhttp.StatusForbidden, rr.Code)

	rr = api.do(t, domain.RoleAdmin, httptest.NewRequest(stdhttp.MethodDelete, "/datasets/"+ds.ID.String(), nil))
	assert.Equal(t, stdhttp.StatusNoContent, rr.Code)
	api.datasets.AssertExpectations(t)
}

func TestDashboardHandler_Dashboard(t *testing.T) {
	api := newTestAPI(t, 0)
	id := uuid.New()

	dashboard := &domain.Dashboard{
		Metrics: domain.DashboardMetrics{TotalTickets: 3, OpenTickets: 1, ClosedTickets: 2, SLACompliance: 66.7},
		SDMs:    []string{"Alice"},
	}

	api.dashboard.On("GetDashboard", mock.Anything, mock.MatchedBy(func(q ports.DashboardQuery) bool {
		return q.DatasetID == id &&
			q.Criteria.SDM == "Alice" &&
			q.Criteria.DateFrom != nil &&
			q.Criteria.DateFrom.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) &&
			q.Criteria.DateTo == nil
	})).Return(dashboard, nil)

	rr := api.do(t, domain.RoleViewer, httptest.NewRequest(stdhttp.MethodGet,
		"/datasets/"+id.String()+"/dashboard?sdm=Alice&dateFrom=2024-01-01", nil))
	require.Equal(t, stdhttp.StatusOK, rr.Code)

	var body map[string]any
	decodeBody(t, rr, &body)
	metrics := body["metrics"].(map[string]any)
	assert.Equal(t, float64(3), metrics["totalTickets"])
	assert.Equal(t, 66.7, metrics["slaCompliance"])
	assert.Contains(t, body, "charts")
}

func TestDashboardHandler_InvalidCriteria(t *testing.T) {
	api := newTestAPI(t, 0)
	id := uuid.New()

	rr := api.do(t, domain.RoleViewer, httptest.NewRequest(stdhttp.MethodGet,
		"/datasets/"+id.String()+"/dashboard?dateFrom=2024-02-01&dateTo=2024-01-01", nil))
	require.Equal(t, stdhttp.StatusUnprocessableEntity, rr.Code)

	var body ValidationErrorResponse
	decodeBody(t, rr, &body)
	assert.Contains(t, body.Fields, "dateTo")
	api.dashboard.AssertNotCalled(t, "GetDashboard", mock.Anything, mock.Anything)
}

func TestDashboardHandler_Tickets(t *testing.T) {
	api := newTestAPI(t, 0)
	id := uuid.New()

	api.dashboard.On("GetTickets", mock.Anything, mock.MatchedBy(func(q ports.DashboardQuery) bool {
		return q.DatasetID == id && q.Criteria.Company == "Acme"
	})).Return([]domain.TicketRecord{{TicketID: "T-1", CompanyName: "Acme"}}, nil)

	rr := api.do(t, domain.RoleViewer, httptest.NewRequest(stdhttp.MethodGet,
		"/datasets/"+id.String()+"/tickets?company=Acme", nil))
	require.Equal(t, stdhttp.StatusOK, rr.Code)

	var body ListResponse[domain.TicketRecord]
	decodeBody(t, rr, &body)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "T-1", body.Data[0].TicketID)
}

func TestDashboardHandler_BreachesCSV(t *testing.T) {
	api := newTestAPI(t, 0)
	id := uuid.New()

	report := &analytics.BreachReport{
		CompliancePercentage: 50,
		TotalTickets:         2,
		BreachedTickets:      1,
		Tickets: []analytics.BreachTicket{
			{TicketID: "T-1", Subject: "VPN down", CompanyName: "Acme", Agent: "Bob", Priority: "High",
				Status: "Open", CreatedTime: "2024-01-01 09:00", SLAHours: 8, ActualHours: 30, Breached: true},
			{TicketID: "T-2", Subject: "Printer, jammed", CompanyName: "Acme", Agent: "Eve", Priority: "Low",
				Status: "Closed", CreatedTime: "2024-01-02 09:00", ResolvedTime: "2024-01-02 10:00", SLAHours: 72, ActualHours: 1},
		},
	}

	api.dashboard.On("GetBreachReport", mock.Anything, mock.MatchedBy(func(q ports.BreachQuery) bool {
		return q.DatasetID == id && q.Agent == "Bob"
	})).Return(report, nil)

	rr := api.do(t, domain.RoleViewer, httptest.NewRequest(stdhttp.MethodGet,
		"/datasets/"+id.String()+"/sla/breaches?agent=Bob&format=csv", nil))
	require.Equal(t, stdhttp.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")

	rows, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, breachCSVHeader, rows[0])
	assert.Equal(t, []string{"T-1", "VPN down", "Acme", "Bob", "High", "Open", "2024-01-01 09:00", "", "8", "30", "Yes"}, rows[1])
	assert.Equal(t, "Printer, jammed", rows[2][1])
	assert.Equal(t, "No", rows[2][10])
}

func TestDashboardHandler_BreachesJSONAndInvalidFormat(t *testing.T) {
	api := newTestAPI(t, 0)
	id := uuid.New()

	api.dashboard.On("GetBreachReport", mock.Anything, mock.Anything).
		Return(&analytics.BreachReport{CompliancePercentage: 100}, nil)

	rr := api.do(t, domain.RoleViewer, httptest.NewRequest(stdhttp.MethodGet,
		"/datasets/"+id.String()+"/sla/breaches", nil))
	require.Equal(t, stdhttp.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	rr = api.do(t, domain.RoleViewer, httptest.NewRequest(stdhttp.MethodGet,
		"/datasets/"+id.String()+"/sla/breaches?format=xlsx", nil))
	assert.Equal(t, stdhttp.StatusUnprocessableEntity, rr.Code)
}

func TestDashboardHandler_Report(t *testing.T) {
	api := newTestAPI(t, 0)
	id := uuid.New()

	api.dashboard.On("GetServiceReport", mock.Anything, mock.MatchedBy(func(q ports.ReportQuery) bool {
		return q.DatasetID == id && q.Period == "2024-03" && q.Criteria.Company == "Acme"
	})).Return(&analytics.ServiceReport{Summary: "ok"}, nil)

	rr := api.do(t, domain.RoleViewer, httptest.NewRequest(stdhttp.MethodGet,
		"/datasets/"+id.String()+"/report?company=Acme&period=2024-03", nil))
	assert.Equal(t, stdhttp.StatusOK, rr.Code)

	rr = api.do(t, domain.RoleViewer, httptest.NewRequest(stdhttp.MethodGet,
		"/datasets/"+id.String()+"/report?period=fortnight", nil))
	assert.Equal(t, stdhttp.StatusUnprocessableEntity, rr.Code)
}

func TestOverrideHandler(t *testing.T) {
	api := newTestAPI(t, 0)
	id := uuid.New()
	updatedAt := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	saved := &domain.SLAOverride{DatasetID: id, TicketID: "T-9", Breached: true, UpdatedBy: "user-reviewer", UpdatedAt: updatedAt}

	api.datasets.On("ListOverrides", mock.Anything, id).Return([]*domain.SLAOverride{saved}, nil)
	api.datasets.On("SetOverride", mock.Anything, ports.SetOverrideParams{
		Actor:     ports.Actor{UserID: "user-reviewer", Role: domain.RoleReviewer},
		DatasetID: id,
		TicketID:  "T-9",
		Breached:  true,
	}).Return(saved, nil)
	api.datasets.On("ClearOverride", mock.Anything, ports.ClearOverrideParams{
		Actor:     ports.Actor{UserID: "user-admin", Role: domain.RoleAdmin},
		DatasetID: id,
		TicketID:  "T-9",
	}).Return(nil)

	base := "/datasets/" + id.String() + "/overrides"

	t.Run("list", func(t *testing.T) {
		rr := api.do(t, domain.RoleViewer, httptest.NewRequest(stdhttp.MethodGet, base, nil))
		require.Equal(t, stdhttp.StatusOK, rr.Code)

		var body ListResponse[OverrideDTO]
		decodeBody(t, rr, &body)
		require.Len(t, body.Data, 1)
		assert.Equal(t, "2024-04-01T12:00:00Z", body.Data[0].UpdatedAt)
	})

	t.Run("set", func(t *testing.T) {
		req := httptest.NewRequest(stdhttp.MethodPut, base+"/T-9", strings.NewReader(`{"breached":true}`))
		rr := api.do(t, domain.RoleReviewer, req)
		require.Equal(t, stdhttp.StatusOK, rr.Code)

		var body OverrideDTO
		decodeBody(t, rr, &body)
		assert.True(t, body.Breached)
		assert.Equal(t, "T-9", body.TicketID)
	})

	t.Run("set requires breached", func(t *testing.T) {
		req := httptest.NewRequest(stdhttp.MethodPut, base+"/T-9", strings.NewReader(`{}`))
		rr := api.do(t, domain.RoleReviewer, req)
		assert.Equal(t, stdhttp.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("set malformed body", func(t *testing.T) {
		req := httptest.NewRequest(stdhttp.MethodPut, base+"/T-9", strings.NewReader(`{`))
		rr := api.do(t, domain.RoleReviewer, req)
		assert.Equal(t, stdhttp.StatusBadRequest, rr.Code)
	})

	t.Run("viewer cannot set", func(t *testing.T) {
		req := httptest.NewRequest(stdhttp.MethodPut, base+"/T-9", strings.NewReader(`{"breached":false}`))
		rr := api.do(t, domain.RoleViewer, req)
		assert.Equal(t, stdhttp.StatusForbidden, rr.Code)
	})

	t.Run("clear", func(t *testing.T) {
		rr := api.do(t, domain.RoleAdmin, httptest.NewRequest(stdhttp.MethodDelete, base+"/T-9", nil))
		assert.Equal(t, stdhttp.StatusNoContent, rr.Code)
	})

	api.datasets.AssertExpectations(t)
}

func TestMeHandler(t *testing.T) {
	api := newTestAPI(t, 0)

	rr := api.do(t, domain.RoleReviewer, httptest.NewRequest(stdhttp.MethodGet, "/me", nil))
	require.Equal(t, stdhttp.StatusOK, rr.Code)

	var body MeResponse
	decodeBody(t, rr, &body)
	assert.Equal(t, "user-reviewer", body.UserID)
	assert.Equal(t, []string{domain.PermissionDatasetsRead, domain.PermissionOverridesWrite}, body.Permissions)

	rr = api.do(t, domain.RoleAdmin, httptest.NewRequest(stdhttp.MethodGet, "/me/permissions", nil))
	require.Equal(t, stdhttp.StatusOK, rr.Code)

	var perms PermissionsResponse
	decodeBody(t, rr, &perms)
	assert.Equal(t, []string{
		domain.PermissionDatasetsManage,
		domain.PermissionDatasetsRead,
		domain.PermissionOverridesWrite,
	}, perms.Permissions)
}

func TestErrorHandler_MapsDomainErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewErrorHandler(logger)

	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{apperrors.ErrDatasetNotFound, stdhttp.StatusNotFound, "DATASET_NOT_FOUND"},
		{apperrors.ErrOverrideNotFound, stdhttp.StatusNotFound, "OVERRIDE_NOT_FOUND"},
		{apperrors.ErrForbidden, stdhttp.StatusForbidden, "FORBIDDEN"},
		{apperrors.ErrUnauthorized, stdhttp.StatusUnauthorized, "UNAUTHORIZED"},
		{apperrors.ErrUploadTooLarge, stdhttp.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{apperrors.ErrMissingColumns, stdhttp.StatusUnprocessableEntity, "MISSING_COLUMNS"},
		{apperrors.ErrInvalidCSV, stdhttp.StatusUnprocessableEntity, "INVALID_UPLOAD"},
		{apperrors.ErrTicketIDRequired, stdhttp.StatusBadRequest, "VALIDATION_ERROR"},
		{apperrors.ErrRateLimited, stdhttp.StatusTooManyRequests, "RATE_LIMITED"},
		{io.ErrUnexpectedEOF, stdhttp.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.Handle(rr, httptest.NewRequest(stdhttp.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var body ErrorResponse
			decodeBody(t, rr, &body)
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}
