package applications

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/parley-chat/parley/internal/platform/httpx"
	"github.com/parley-chat/parley/internal/rbac"
	"github.com/parley-chat/parley/internal/shared"
)

// Handler wires HTTP endpoints for application credential administration.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers application management routes; they sit behind the
// auth middleware and the MANAGE_APPLICATIONS permission.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermManageApplications))
		r.Get("/", h.list)
		r.Post("/", h.register)
		r.Post("/{code}/renew", h.renew)
		r.Post("/{code}/revoke", h.revoke)
	})
}

// MountPublicRoutes registers routes open to holders of the credential pair
// itself, with no bearer token.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/validate", h.validateTokens)
}

type registerRequest struct {
	Code         string `json:"code" validate:"required"`
	Name         string `json:"name" validate:"required"`
	ValidityDays int    `json:"validity_days" validate:"gte=0"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrPermissionDenied)
		return
	}
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	reg, err := h.service.Register(r.Context(), identity.CompanyCode, req.Code, req.Name, daysToValidity(req.ValidityDays))
	if err != nil {
		h.logger.Error("register application", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	// The secret is shown once, at creation.
	httpx.JSON(w, http.StatusCreated, Credentials{
		ApplicationCode: reg.Code,
		AccessToken:     reg.AccessToken,
		SecretToken:     reg.SecretToken,
		ExpiresAt:       reg.ExpiresAt,
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrPermissionDenied)
		return
	}
	out, err := h.service.List(r.Context(), identity.CompanyCode)
	if err != nil {
		h.logger.Error("list applications", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type renewRequest struct {
	ValidityDays int `json:"validity_days" validate:"gte=0"`
}

func (h *Handler) renew(w http.ResponseWriter, r *http.Request) {
	var req renewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	creds, err := h.service.Renew(r.Context(), chi.URLParam(r, "code"), daysToValidity(req.ValidityDays))
	if err != nil {
		h.logger.Error("renew application tokens", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, creds)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Revoke(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.logger.Error("revoke application", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusNoContent, nil)
}

type validateRequest struct {
	AccessToken   string `json:"access_token" validate:"required"`
	SecretToken   string `json:"secret_token"`
	RequireSecret bool   `json:"require_secret"`
	RequireFresh  bool   `json:"require_not_expired"`
}

func (h *Handler) validateTokens(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	result, err := h.service.Validate(r.Context(), req.AccessToken, req.SecretToken, req.RequireSecret, req.RequireFresh)
	if err != nil {
		h.logger.Error("validate application tokens", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func daysToValidity(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}
