package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/parley-chat/parley/internal/observability"
	"github.com/parley-chat/parley/internal/platform/httpx"
	"github.com/parley-chat/parley/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance. metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router. All routes here
// are reachable without a bearer token except logout and password change,
// which the router mounts behind the middleware separately.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/register", h.handleRegister)
	r.Post("/refresh", h.handleRefresh)
	r.Post("/password/reset/request", h.handleResetRequest)
	r.Post("/password/reset", h.handleReset)
	r.Post("/verify", h.handleVerify)
}

// MountProtectedRoutes registers routes that require an authenticated caller.
func (h *Handler) MountProtectedRoutes(r chi.Router) {
	r.Post("/logout", h.handleLogout)
	r.Post("/password/change", h.handleChangePassword)
}

type loginRequest struct {
	Code           string `json:"code" validate:"required"`
	Password       string `json:"password" validate:"required"`
	CompanyCode    string `json:"company_code"`
	AppAccessToken string `json:"app_access_token"`
	AppSecretToken string `json:"app_secret_token"`
}

type registerRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	Name            string `json:"name" validate:"required"`
	Code            string `json:"code"`
	CompanyCode     string `json:"company_code"`
	AppAccessToken  string `json:"app_access_token"`
	AppSecretToken  string `json:"app_secret_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

type resetRequestRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type verifyRequest struct {
	Token string `json:"token" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "code and password are required")
		return
	}
	bundle, err := h.service.Login(r.Context(), LoginInput{
		Code:           req.Code,
		Password:       req.Password,
		CompanyCode:    req.CompanyCode,
		AppAccessToken: req.AppAccessToken,
		AppSecretToken: req.AppSecretToken,
	})
	if err != nil {
		h.metrics.CountLogin(loginOutcome(err))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.CountLogin("success")
	httpx.JSON(w, http.StatusOK, bundle)
}

// loginOutcome maps a login failure to a metric label.
func loginOutcome(err error) string {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, shared.ErrAccountUnverified):
		return "unverified"
	case errors.Is(err, shared.ErrTenantMismatch):
		return "tenant_mismatch"
	case errors.Is(err, shared.ErrApplicationToken):
		return "application_token"
	case errors.Is(err, shared.ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid registration payload")
		return
	}
	bundle, err := h.service.Register(r.Context(), RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Name:            req.Name,
		Code:            req.Code,
		CompanyCode:     req.CompanyCode,
		AppAccessToken:  req.AppAccessToken,
		AppSecretToken:  req.AppSecretToken,
	})
	if err != nil {
		if !shared.IsUserFacing(err) {
			h.logger.Error("register account", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bundle)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "refresh_token is required")
		return
	}
	bundle, err := h.service.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid refresh token")
		return
	}
	httpx.JSON(w, http.StatusOK, bundle)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	expiry := time.Now().Add(h.service.Issuer().TTL())
	if claims, err := h.service.Issuer().Validate(identity.RawToken); err == nil {
		expiry = claims.ExpiresAt.Time
	}
	if err := h.service.Logout(r.Context(), identity.AccountID, identity.TokenID, expiry); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "old and new passwords are required")
		return
	}
	if err := h.service.ChangePassword(r.Context(), identity.AccountID, req.OldPassword, req.NewPassword); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}

func (h *Handler) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequestRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "email is required")
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		httpx.RespondError(w, err)
		return
	}
	// Always the same response, whether or not the email exists.
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "reset_requested"})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "token and new password are required")
		return
	}
	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword, req.ConfirmPassword); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "password_reset"})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "token is required")
		return
	}
	if err := h.service.VerifyAccount(r.Context(), req.Token); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
