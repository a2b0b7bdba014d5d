package policies

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tessera-io/tessera/internal/platform/httpx"
)

// Handler exposes policy management over the admin-only mutation API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePolicyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	policy, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create policy", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, policy)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var tenantID *uuid.UUID
	if raw := r.URL.Query().Get("tenant_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: invalid tenant id", httpx.ErrValidation))
			return
		}
		tenantID = &id
	}

	list, err := h.service.List(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("list policies", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.policyID(w, r)
	if !ok {
		return
	}
	policy, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, policy)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.policyID(w, r)
	if !ok {
		return
	}
	var req UpdatePolicyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	policy, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update policy", slog.Any("error", err), slog.String("id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, policy)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.policyID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete policy", slog.Any("error", err), slog.String("id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) AssignPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.policyID(w, r)
	if !ok {
		return
	}
	var req AssignPermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	if err := h.service.AssignPermissions(r.Context(), id, req); err != nil {
		h.logger.Error("assign permissions", slog.Any("error", err), slog.String("policy_id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := h.policyID(w, r)
	if !ok {
		return
	}
	permID, err := uuid.Parse(chi.URLParam(r, "permissionID"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid permission id", httpx.ErrValidation))
		return
	}

	if err := h.service.RevokePermission(r.Context(), id, permID); err != nil {
		h.logger.Error("revoke permission", slog.Any("error", err), slog.String("policy_id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) EffectivePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.policyID(w, r)
	if !ok {
		return
	}
	keys, err := h.service.EffectivePermissions(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, keys)
}

func (h *Handler) policyID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid policy id", httpx.ErrValidation))
		return uuid.Nil, false
	}
	return id, true
}
