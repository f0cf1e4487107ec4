package contacts

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/parley-chat/parley/internal/platform/httpx"
	"github.com/parley-chat/parley/internal/shared"
)

// Handler wires HTTP endpoints for contact relationships. All routes assume
// the auth middleware already placed an identity on the context.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers contact routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/request", h.handleRequest)
	r.Post("/{id}/accept", h.handleAccept)
	r.Post("/{id}/reject", h.handleReject)
	r.Post("/block", h.handleBlock)
	r.Post("/unblock", h.handleUnblock)
}

type targetRequest struct {
	TargetID int64 `json:"target_id" validate:"required,gt=0"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrPermissionDenied)
		return
	}
	items, err := h.service.List(r.Context(), *identity)
	if err != nil {
		h.logger.Error("list contacts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"contacts": items})
}

func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrPermissionDenied)
		return
	}
	var req targetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	rel, err := h.service.Request(r.Context(), *identity, req.TargetID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rel)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, f func(ctx shared.Identity, id int64) error) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrPermissionDenied)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	if err := f(*identity, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(identity shared.Identity, id int64) error {
		return h.service.Accept(r.Context(), identity, id)
	})
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(identity shared.Identity, id int64) error {
		return h.service.Reject(r.Context(), identity, id)
	})
}

func (h *Handler) handleBlock(w http.ResponseWriter, r *http.Request) {
	h.handleTarget(w, r, h.service.Block)
}

func (h *Handler) handleUnblock(w http.ResponseWriter, r *http.Request) {
	h.handleTarget(w, r, h.service.Unblock)
}

func (h *Handler) handleTarget(w http.ResponseWriter, r *http.Request, f func(ctx context.Context, identity shared.Identity, otherID int64) error) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrPermissionDenied)
		return
	}
	var req targetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	if err := f(r.Context(), *identity, req.TargetID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
