package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/accounts"
	"github.com/parley-chat/parley/internal/applications"
	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/companies"
	"github.com/parley-chat/parley/internal/contacts"
	"github.com/parley-chat/parley/internal/conversations"
	"github.com/parley-chat/parley/internal/rbac"
	"github.com/parley-chat/parley/internal/shared"
	_ "github.com/parley-chat/parley/internal/testing/guard"
	"github.com/parley-chat/parley/internal/webhooks"
)

type routerStore struct {
	account accounts.Account
}

func (s *routerStore) FindByID(_ context.Context, id int64) (*accounts.Account, error) {
	if id != s.account.ID {
		return nil, shared.ErrNotFound
	}
	a := s.account
	return &a, nil
}

func (s *routerStore) FindByCode(_ context.Context, code string) (*accounts.Account, error) {
	if code != s.account.Code {
		return nil, shared.ErrNotFound
	}
	a := s.account
	return &a, nil
}

func (s *routerStore) FindByEmail(context.Context, string) (*accounts.Account, error) {
	return nil, shared.ErrNotFound
}

func (s *routerStore) FindByResetToken(context.Context, string) (*accounts.Account, error) {
	return nil, shared.ErrNotFound
}

func (s *routerStore) FindByVerificationToken(context.Context, string) (*accounts.Account, error) {
	return nil, shared.ErrNotFound
}

func (s *routerStore) Create(_ context.Context, a *accounts.Account) (*accounts.Account, error) {
	return a, nil
}

func (s *routerStore) UpdatePassword(context.Context, int64, string) error { return nil }

func (s *routerStore) UpdatePresence(context.Context, int64, bool, time.Time) error { return nil }

func (s *routerStore) SetResetToken(context.Context, int64, string, time.Time) error { return nil }

func (s *routerStore) SetVerified(context.Context, int64) error { return nil }

// List satisfies the accounts repository port so the same stub can back the
// accounts handler.
func (s *routerStore) List(context.Context, string) ([]accounts.Account, error) {
	return []accounts.Account{s.account}, nil
}

func (s *routerStore) Deactivate(context.Context, int64) error { return nil }

type routerApps struct{}

func (routerApps) Validate(context.Context, string, string, bool, bool) (applications.Validation, error) {
	return applications.Validation{Valid: true, Reason: applications.ReasonValid}, nil
}

type routerRevoker struct{}

func (routerRevoker) Revoke(context.Context, string, time.Duration) error { return nil }

func (routerRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }

type routerMailer struct{}

func (routerMailer) SendVerification(context.Context, string, string, string) error { return nil }

func (routerMailer) SendPasswordReset(context.Context, string, string, string) error { return nil }

func newTestRouter(t *testing.T) (http.Handler, *auth.Issuer, *accounts.Account) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second}

	store := &routerStore{account: accounts.Account{
		ID:          7,
		Code:        "admin",
		Email:       "admin@example.com",
		Role:        string(rbac.RoleAdmin),
		CompanyCode: "acme",
		IsActive:    true,
		IsVerified:  true,
	}}
	issuer := auth.NewIssuer("router-test-secret", "parley", time.Hour, 24*time.Hour)
	authService := auth.NewService(logger, store, routerApps{}, issuer, routerRevoker{}, routerMailer{}, auth.Config{})
	rbacMiddleware := rbac.Middleware{Logger: logger}

	router := NewRouter(RouterParams{
		Logger:               logger,
		Config:               cfg,
		AuthHandler:          auth.NewHandler(logger, authService, nil),
		AuthMiddleware:       auth.NewMiddleware(logger, authService, nil),
		AccountsHandler:      accounts.NewHandler(logger, accounts.NewService(store), rbacMiddleware),
		ApplicationsHandler:  applications.NewHandler(logger, applications.NewService(nil), rbacMiddleware),
		CompaniesHandler:     companies.NewHandler(logger, companies.NewService(nil), rbacMiddleware),
		ContactsHandler:      contacts.NewHandler(logger, contacts.NewService(logger, nil, nil)),
		ConversationsHandler: conversations.NewHandler(logger, conversations.NewService(logger, nil, nil)),
		WebhooksHandler:      webhooks.NewHandler(logger, webhooks.NewService(nil), rbacMiddleware),
	})
	return router, issuer, &store.account
}

func TestRouterHealthEndpoints(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterRejectsMissingBearerToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	for _, path := range []string{"/api/v1/accounts", "/api/v1/conversations", "/api/v1/contacts", "/api/v1/webhooks"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouterAcceptsMintedToken(t *testing.T) {
	router, issuer, account := newTestRouter(t)

	token, _, err := issuer.Mint(account, "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"admin"`)
}

func TestRouterRejectsTamperedToken(t *testing.T) {
	router, _, account := newTestRouter(t)

	foreign := auth.NewIssuer("a-different-secret", "parley", time.Hour, 24*time.Hour)
	token, _, err := foreign.Mint(account, "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
