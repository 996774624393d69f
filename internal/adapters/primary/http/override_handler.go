package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/lorrc/service-desk-analytics/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-analytics/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

// OverrideHandler handles reviewer SLA decisions for one dataset
type OverrideHandler struct {
	datasetService ports.DatasetService
	errorHandler   *ErrorHandler
	logger         *slog.Logger
}

// NewOverrideHandler creates a new override handler
func NewOverrideHandler(
	datasetService ports.DatasetService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *OverrideHandler {
	return &OverrideHandler{
		datasetService: datasetService,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "override"),
	}
}

// Router sets up a new chi Router for the override routes.
func (h *OverrideHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for the override endpoints.
func (h *OverrideHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListOverrides)

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(domain.RoleReviewer, domain.RoleAdmin))
		r.Put("/{ticketID}", h.HandleSetOverride)
		r.Delete("/{ticketID}", h.HandleClearOverride)
	})
}

// --- Request/Response DTOs ---

// SetOverrideRequest defines the expected JSON body for recording a decision
type SetOverrideRequest struct {
	Breached *bool `json:"breached"`
}

// Validate validates the set override request
func (r *SetOverrideRequest) Validate() error {
	v := validation.NewValidator()
	v.NotNil("breached", r.Breached)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// OverrideDTO is the API representation of a reviewer decision
type OverrideDTO struct {
	TicketID  string `json:"ticketId"`
	Breached  bool   `json:"breached"`
	UpdatedBy string `json:"updatedBy"`
	UpdatedAt string `json:"updatedAt"`
}

func toOverrideDTO(o *domain.SLAOverride) OverrideDTO {
	return OverrideDTO{
		TicketID:  o.TicketID,
		Breached:  o.Breached,
		UpdatedBy: o.UpdatedBy,
		UpdatedAt: o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toOverrideDTOs(list []*domain.SLAOverride) []OverrideDTO {
	response := make([]OverrideDTO, 0, len(list))
	for _, o := range list {
		response = append(response, toOverrideDTO(o))
	}
	return response
}

// --- Handlers ---

// HandleListOverrides handles GET /datasets/{datasetID}/overrides
func (h *OverrideHandler) HandleListOverrides(w http.ResponseWriter, r *http.Request) {
	if _, ok := getClaims(w, r); !ok {
		return
	}

	datasetID, err := parseDatasetID(r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	overrides, err := h.datasetService.ListOverrides(r.Context(), datasetID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteList(w, toOverrideDTOs(overrides))
}

// HandleSetOverride handles PUT /datasets/{datasetID}/overrides/{ticketID}
func (h *OverrideHandler) HandleSetOverride(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	datasetID, err := parseDatasetID(r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	req, err := validation.DecodeAndValidate[SetOverrideRequest](r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	override, err := h.datasetService.SetOverride(r.Context(), ports.SetOverrideParams{
		Actor:     actorFromClaims(claims),
		DatasetID: datasetID,
		TicketID:  chi.URLParam(r, "ticketID"),
		Breached:  *req.Breached,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	h.logger.InfoContext(r.Context(), "sla override set",
		"ticket_id", override.TicketID,
		"breached", override.Breached,
	)

	WriteJSON(w, http.StatusOK, toOverrideDTO(override))
}

// HandleClearOverride handles DELETE /datasets/{datasetID}/overrides/{ticketID}
func (h *OverrideHandler) HandleClearOverride(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	datasetID, err := parseDatasetID(r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	err = h.datasetService.ClearOverride(r.Context(), ports.ClearOverrideParams{
		Actor:     actorFromClaims(claims),
		DatasetID: datasetID,
		TicketID:  chi.URLParam(r, "ticketID"),
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	h.logger.InfoContext(r.Context(), "sla override cleared", "ticket_id", chi.URLParam(r, "ticketID"))

	WriteNoContent(w)
}
