package memberships

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tessera-io/tessera/internal/identity"
	"github.com/tessera-io/tessera/internal/platform/httpx"
	"github.com/tessera-io/tessera/internal/shared"
)

// Handler exposes tenant membership management.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req AddMemberRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	var invitedBy string
	if principal, ok := identity.PrincipalFromContext(r.Context()); ok {
		invitedBy = principal.UserID
	}

	member, err := h.service.Add(r.Context(), tenantID, req, invitedBy)
	if err != nil {
		h.logger.Error("add member", slog.Any("error", err), slog.String("tenant_id", tenantID.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, member)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	req := ListMembersRequest{TenantID: tenantID, Limit: limit, Offset: offset}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	members, page, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list members", slog.Any("error", err), slog.String("tenant_id", tenantID.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listMembersResponse{Members: members, Pagination: page})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	member, err := h.service.Get(r.Context(), tenantID, chi.URLParam(r, "userID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, member)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req UpdateMemberRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	member, err := h.service.Update(r.Context(), tenantID, chi.URLParam(r, "userID"), req)
	if err != nil {
		h.logger.Error("update member", slog.Any("error", err), slog.String("tenant_id", tenantID.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, member)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	if err := h.service.Remove(r.Context(), tenantID, chi.URLParam(r, "userID")); err != nil {
		h.logger.Error("remove member", slog.Any("error", err), slog.String("tenant_id", tenantID.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

type listMembersResponse struct {
	Members    []Membership      `json:"members"`
	Pagination shared.Pagination `json:"pagination"`
}

func tenantID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid tenant id", httpx.ErrValidation)
	}
	return id, nil
}
