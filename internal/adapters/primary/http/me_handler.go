package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

// MeResponse describes the authenticated caller.
type MeResponse struct {
	UserID      string   `json:"userId"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// PermissionsResponse defines the JSON response for user permissions.
type PermissionsResponse struct {
	Permissions []string `json:"permissions"`
}

// MeHandler handles HTTP requests for the authenticated user.
type MeHandler struct {
	logger *slog.Logger
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(logger *slog.Logger) *MeHandler {
	return &MeHandler{
		logger: logger.With("handler", "me"),
	}
}

// RegisterRoutes registers the /me routes.
func (h *MeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleMe)
	r.Get("/permissions", h.HandlePermissions)
}

// HandleMe handles GET /me.
func (h *MeHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	role := domain.Role(claims.Role)
	WriteJSON(w, http.StatusOK, MeResponse{
		UserID:      claims.UserID,
		Role:        string(role),
		Permissions: role.Permissions(),
	})
}

// HandlePermissions handles GET /me/permissions.
func (h *MeHandler) HandlePermissions(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, PermissionsResponse{
		Permissions: domain.Role(claims.Role).Permissions(),
	})
}
