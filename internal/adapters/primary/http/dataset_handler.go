package http

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/lorrc/service-desk-analytics/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-analytics/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-analytics/internal/auth"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
	"github.com/lorrc/service-desk-analytics/internal/infrastructure/logging"
)

const (
	maxDatasetsPerPage    = 100
	defaultMaxUploadBytes = 10 << 20
	multipartMemoryLimit  = 8 << 20
	uploadFileField       = "file"
	uploadNameField       = "name"
	datasetIDParam        = "datasetID"
)

// DatasetHandlerConfig tunes the upload endpoint.
type DatasetHandlerConfig struct {
	MaxUploadBytes int64
	// UploadLimiter wraps the upload route, typically a per-user rate limit.
	UploadLimiter func(http.Handler) http.Handler
}

// DatasetHandler handles HTTP requests for uploaded datasets
type DatasetHandler struct {
	datasetService   ports.DatasetService
	dashboardHandler *DashboardHandler
	overrideHandler  *OverrideHandler
	errorHandler     *ErrorHandler
	cfg              DatasetHandlerConfig
	logger           *slog.Logger
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(
	datasetService ports.DatasetService,
	dashboardHandler *DashboardHandler,
	overrideHandler *OverrideHandler,
	errorHandler *ErrorHandler,
	cfg DatasetHandlerConfig,
	logger *slog.Logger,
) *DatasetHandler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &DatasetHandler{
		datasetService:   datasetService,
		dashboardHandler: dashboardHandler,
		overrideHandler:  overrideHandler,
		errorHandler:     errorHandler,
		cfg:              cfg,
		logger:           logger.With("handler", "dataset"),
	}
}

// Router sets up a new chi Router for all dataset-related routes.
func (h *DatasetHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all dataset endpoints.
func (h *DatasetHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListDatasets)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(domain.RoleAdmin))
		if h.cfg.UploadLimiter != nil {
			r.Use(h.cfg.UploadLimiter)
		}
		r.Post("/", h.HandleUploadDataset)
	})

	r.Route("/{datasetID}", func(r chi.Router) {
		r.Use(h.withDatasetID)

		r.Get("/", h.HandleGetDataset)
		r.With(mw.RequireRole(domain.RoleAdmin)).Delete("/", h.HandleDeleteDataset)

		if h.dashboardHandler != nil {
			h.dashboardHandler.RegisterRoutes(r)
		}
		if h.overrideHandler != nil {
			r.Mount("/overrides", h.overrideHandler.Router())
		}
	})
}

// --- Response DTOs ---

// DatasetDTO is the API representation of a dataset
type DatasetDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	UploadedBy  string `json:"uploadedBy"`
	UploadedAt  string `json:"uploadedAt"`
	TicketCount int    `json:"ticketCount"`
}

func toDatasetDTO(ds *domain.Dataset) DatasetDTO {
	return DatasetDTO{
		ID:          ds.ID.String(),
		Name:        ds.Name,
		UploadedBy:  ds.UploadedBy,
		UploadedAt:  ds.UploadedAt.UTC().Format(time.RFC3339),
		TicketCount: ds.TicketCount,
	}
}

func toDatasetDTOs(datasets []*domain.Dataset) []DatasetDTO {
	response := make([]DatasetDTO, 0, len(datasets))
	for _, ds := range datasets {
		response = append(response, toDatasetDTO(ds))
	}
	return response
}

// --- Handlers ---

// HandleListDatasets handles GET /datasets
func (h *DatasetHandler) HandleListDatasets(w http.ResponseWriter, r *http.Request) {
	if _, ok := getClaims(w, r); !ok {
		return
	}

	pagination := validation.ParsePagination(r, maxDatasetsPerPage)

	datasets, err := h.datasetService.List(r.Context(), ports.ListDatasetsParams{
		Limit:  pagination.Limit + 1,
		Offset: pagination.Offset,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WritePaginatedSimple(w, toDatasetDTOs(datasets), pagination.Limit, pagination.Offset)
}

// HandleUploadDataset handles POST /datasets. The export is either a multipart
// "file" field or a raw text/csv body; the name comes from the "name" field or
// query parameter.
func (h *DatasetHandler) HandleUploadDataset(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)

	file, name, cleanup, err := h.readUpload(r)
	if err != nil {
		h.errorHandler.Handle(w, r, uploadError(err))
		return
	}
	defer cleanup()

	v := validation.NewValidator().MaxLength(uploadNameField, name, domain.MaxDatasetNameLength)
	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	dataset, err := h.datasetService.Upload(r.Context(), ports.UploadDatasetParams{
		Actor: actorFromClaims(claims),
		Name:  name,
		File:  file,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, uploadError(err))
		return
	}

	h.logger.InfoContext(r.Context(), "dataset uploaded",
		"dataset_id", dataset.ID,
		"ticket_count", dataset.TicketCount,
	)

	WriteCreated(w, toDatasetDTO(dataset))
}

// HandleGetDataset handles GET /datasets/{datasetID}
func (h *DatasetHandler) HandleGetDataset(w http.ResponseWriter, r *http.Request) {
	if _, ok := getClaims(w, r); !ok {
		return
	}

	id, err := parseDatasetID(r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	dataset, err := h.datasetService.Get(r.Context(), id)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, toDatasetDTO(dataset))
}

// HandleDeleteDataset handles DELETE /datasets/{datasetID}
func (h *DatasetHandler) HandleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	id, err := parseDatasetID(r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	if err := h.datasetService.Delete(r.Context(), actorFromClaims(claims), id); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "dataset deleted", "dataset_id", id)

	WriteNoContent(w)
}

// --- Helper methods ---

// readUpload returns the export stream and the requested dataset name.
func (h *DatasetHandler) readUpload(r *http.Request) (io.Reader, string, func(), error) {
	noop := func() {}
	name := strings.TrimSpace(r.URL.Query().Get(uploadNameField))

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
			return nil, "", noop, apperrors.NewBadRequestError(err, "Invalid multipart form")
		}
		file, _, err := r.FormFile(uploadFileField)
		if err != nil {
			v := validation.NewValidator().Custom(uploadFileField, false, "A CSV file is required")
			return nil, "", noop, v.Errors()
		}
		if formName := strings.TrimSpace(r.FormValue(uploadNameField)); formName != "" {
			name = formName
		}
		cleanup := func() {
			_ = file.Close()
			_ = r.MultipartForm.RemoveAll()
		}
		return file, name, cleanup, nil

	case "text/csv", "application/csv", "text/plain", "application/octet-stream":
		return r.Body, name, noop, nil

	default:
		return nil, "", noop, apperrors.NewBadRequestError(apperrors.ErrBadRequest,
			"Content-Type must be multipart/form-data or text/csv")
	}
}

// uploadError reports a body that tripped MaxBytesReader as an oversize upload.
func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.NewPayloadTooLargeError(apperrors.ErrUploadTooLarge,
			"Upload exceeds the maximum allowed size")
	}
	return err
}

// withDatasetID validates the dataset path parameter and tags the request's
// log context with it.
func (h *DatasetHandler) withDatasetID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseDatasetID(r)
		if HandleError(w, r, err, h.errorHandler) {
			return
		}
		ctx := logging.WithDatasetID(r.Context(), id.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getClaims extracts and validates user claims from the request context
func getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}

func actorFromClaims(claims *auth.Claims) ports.Actor {
	return ports.Actor{UserID: claims.UserID, Role: domain.Role(claims.Role)}
}

// parseDatasetID extracts and validates the dataset ID from the URL
func parseDatasetID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, datasetIDParam))
	if err != nil {
		v := validation.NewValidator()
		v.Custom(datasetIDParam, false, "Invalid dataset ID")
		return uuid.Nil, v.Errors()
	}
	return id, nil
}
