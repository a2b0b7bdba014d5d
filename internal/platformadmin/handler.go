package platformadmin

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tessera-io/tessera/internal/identity"
	"github.com/tessera-io/tessera/internal/platform/httpx"
)

// Handler exposes platform admin registry management.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers admin registry routes. The caller is expected to
// wrap the router in the platform admin guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/admins", h.Create)
	r.Get("/admins", h.List)
	r.Get("/admins/{userID}", h.Show)
	r.Delete("/admins/{userID}", h.Delete)
}

// Check reports whether the caller is a platform admin. Unlike the mutation
// routes it is reachable by any authenticated user.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	isAdmin, err := h.service.IsPlatformAdmin(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("platform admin check", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrStorageUnavailable, err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"is_platform_admin": isAdmin})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAdminRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	principal, _ := identity.PrincipalFromContext(r.Context())
	admin, err := h.service.Create(r.Context(), req, principal.UserID)
	if err != nil {
		h.logger.Error("create platform admin", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, admin)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list platform admins", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, admins)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	admin, err := h.service.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, admin)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := h.service.Delete(r.Context(), userID); err != nil {
		h.logger.Error("delete platform admin", slog.Any("error", err), slog.String("user_id", userID))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
