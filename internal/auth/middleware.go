package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/parley-chat/parley/internal/observability"
	"github.com/parley-chat/parley/internal/platform/httpx"
	"github.com/parley-chat/parley/internal/shared"
)

// Middleware authenticates requests bearing a session token.
type Middleware struct {
	logger  *slog.Logger
	service *Service
	metrics *observability.Metrics
}

// NewMiddleware constructs the auth middleware. metrics may be nil.
func NewMiddleware(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Middleware {
	return &Middleware{logger: logger, service: service, metrics: metrics}
}

// RequireToken rejects requests without a valid, unrevoked bearer token
// whose subject is still an active account. On success the resolved
// identity is placed on the request context.
func (m *Middleware) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		claims, err := m.service.Issuer().Validate(raw)
		if err != nil {
			m.metrics.CountTokenValidation(tokenOutcome(err))
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
			return
		}
		if m.service.IsRevoked(r.Context(), claims.ID) {
			m.metrics.CountTokenValidation("revoked")
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "token revoked")
			return
		}
		account, err := m.service.Account(r.Context(), claims.AccountID())
		if err != nil || !account.IsActive {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "account unavailable")
			return
		}
		identity := &shared.Identity{
			AccountID:       account.ID,
			Code:            account.Code,
			Email:           account.Email,
			Name:            account.Name,
			Role:            account.Role,
			CompanyCode:     account.CompanyCode,
			ApplicationCode: claims.ApplicationCode,
			TokenID:         claims.ID,
			RawToken:        raw,
		}
		m.metrics.CountTokenValidation("valid")
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
	})
}

func tokenOutcome(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenSignature):
		return "signature"
	default:
		return "malformed"
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
