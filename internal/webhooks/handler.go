package webhooks

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/parley-chat/parley/internal/platform/httpx"
	"github.com/parley-chat/parley/internal/rbac"
	"github.com/parley-chat/parley/internal/shared"
)

// Handler wires HTTP endpoints for webhook configuration.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers webhook routes; all require MANAGE_WEBHOOKS.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermManageWebhooks))
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Put("/{id}", h.handleUpdate)
		r.Post("/{id}/activate", h.handleActivate)
		r.Post("/{id}/deactivate", h.handleDeactivate)
		r.Delete("/{id}", h.handleDelete)
	})
}

type webhookRequest struct {
	URL    string   `json:"url" validate:"required,url"`
	Events []string `json:"events" validate:"required,min=1"`
}

func (h *Handler) tenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil || identity.CompanyCode == "" {
		httpx.RespondError(w, shared.ErrPermissionDenied)
		return "", false
	}
	return identity.CompanyCode, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return 0, false
	}
	return id, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	company, ok := h.tenant(w, r)
	if !ok {
		return
	}
	items, err := h.service.List(r.Context(), company)
	if err != nil {
		h.logger.Error("list webhooks", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"webhooks": items})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	company, ok := h.tenant(w, r)
	if !ok {
		return
	}
	var req webhookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	created, secret, err := h.service.Create(r.Context(), company, req.URL, req.Events)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	// The signing secret appears in this response only.
	httpx.JSON(w, http.StatusCreated, map[string]any{"webhook": created, "secret": secret})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	company, ok := h.tenant(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req webhookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	if err := h.service.Update(r.Context(), company, id, req.URL, req.Events); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	company, ok := h.tenant(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.SetActive(r.Context(), company, id, active); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"is_active": active})
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	company, ok := h.tenant(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), company, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
