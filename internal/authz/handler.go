package authz

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tessera-io/tessera/internal/identity"
	"github.com/tessera-io/tessera/internal/permissions"
	"github.com/tessera-io/tessera/internal/platform/httpx"
)

// Handler exposes the authorization resolution endpoints.
type Handler struct {
	logger   *slog.Logger
	resolver *Resolver
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, resolver *Resolver, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, resolver: resolver, validate: validate}
}

// Authorize answers a single permission check. A deny is a successful
// response, not an error; only infrastructure failures produce one.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req AuthorizeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = principal.UserID
	}

	key := permissions.Key{Service: req.Service, Entity: req.Entity, Action: req.Action}
	authorized, err := h.resolver.Authorize(r.Context(), userID, req.TenantID, key)
	if err != nil {
		h.logger.Error("authorize", slog.Any("error", err),
			slog.String("user_id", userID),
			slog.String("tenant_id", req.TenantID.String()),
			slog.String("permission", key.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, AuthorizeResponse{Authorized: authorized})
}

// UserPermissions returns the caller's resolved permission set in a tenant.
func (h *Handler) UserPermissions(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid tenant id", httpx.ErrValidation))
		return
	}

	grants, err := h.resolver.UserPermissions(r.Context(), principal.UserID, tenantID)
	if err != nil {
		h.logger.Error("user permissions", slog.Any("error", err),
			slog.String("user_id", principal.UserID),
			slog.String("tenant_id", tenantID.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grants)
}
