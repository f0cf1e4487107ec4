package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/parley-chat/parley/internal/accounts"
	"github.com/parley-chat/parley/internal/applications"
	"github.com/parley-chat/parley/internal/shared"
)

type stubStore struct {
	byID    map[int64]*accounts.Account
	nextID  int64
	lookups int
	creates int
}

func newStubStore(seed ...*accounts.Account) *stubStore {
	s := &stubStore{byID: make(map[int64]*accounts.Account), nextID: 1}
	for _, a := range seed {
		if a.ID == 0 {
			a.ID = s.nextID
		}
		if a.ID >= s.nextID {
			s.nextID = a.ID + 1
		}
		s.byID[a.ID] = a
	}
	return s
}

func (s *stubStore) find(match func(*accounts.Account) bool) (*accounts.Account, error) {
	s.lookups++
	for _, a := range s.byID {
		if match(a) {
			return a, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubStore) FindByID(_ context.Context, id int64) (*accounts.Account, error) {
	return s.find(func(a *accounts.Account) bool { return a.ID == id })
}

func (s *stubStore) FindByCode(_ context.Context, code string) (*accounts.Account, error) {
	return s.find(func(a *accounts.Account) bool { return a.Code == code })
}

func (s *stubStore) FindByEmail(_ context.Context, email string) (*accounts.Account, error) {
	return s.find(func(a *accounts.Account) bool { return a.Email == email })
}

func (s *stubStore) FindByResetToken(_ context.Context, token string) (*accounts.Account, error) {
	return s.find(func(a *accounts.Account) bool { return a.ResetToken != nil && *a.ResetToken == token })
}

func (s *stubStore) FindByVerificationToken(_ context.Context, token string) (*accounts.Account, error) {
	return s.find(func(a *accounts.Account) bool { return a.VerificationToken != nil && *a.VerificationToken == token })
}

func (s *stubStore) Create(_ context.Context, a *accounts.Account) (*accounts.Account, error) {
	s.creates++
	a.ID = s.nextID
	s.nextID++
	s.byID[a.ID] = a
	return a, nil
}

func (s *stubStore) UpdatePassword(_ context.Context, id int64, hash string) error {
	a, ok := s.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.PasswordHash = hash
	a.ResetToken = nil
	a.ResetTokenExpiry = nil
	return nil
}

func (s *stubStore) UpdatePresence(_ context.Context, id int64, online bool, at time.Time) error {
	a, ok := s.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.IsOnline = online
	a.LastConnection = &at
	return nil
}

func (s *stubStore) SetResetToken(_ context.Context, id int64, token string, expiry time.Time) error {
	a, ok := s.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.ResetToken = &token
	a.ResetTokenExpiry = &expiry
	return nil
}

func (s *stubStore) SetVerified(_ context.Context, id int64) error {
	a, ok := s.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.IsVerified = true
	a.VerificationToken = nil
	return nil
}

type stubApps struct {
	result applications.Validation
	calls  int
}

func (s *stubApps) Validate(_ context.Context, _, _ string, _, _ bool) (applications.Validation, error) {
	s.calls++
	return s.result, nil
}

type stubMailer struct {
	verifications []string
	resets        []string
}

func (m *stubMailer) SendVerification(_ context.Context, email, _, _ string) error {
	m.verifications = append(m.verifications, email)
	return nil
}

func (m *stubMailer) SendPasswordReset(_ context.Context, email, _, _ string) error {
	m.resets = append(m.resets, email)
	return nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func seedAccount(t *testing.T) *accounts.Account {
	return &accounts.Account{
		Code:         "alice",
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: mustHash(t, "s3cret-pass"),
		Role:         "USER",
		CompanyCode:  "acme",
		IsActive:     true,
		IsVerified:   true,
	}
}

func newTestService(store AccountStore, apps ApplicationValidator, cfg Config) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := NewIssuer("test-secret", "parley", time.Hour, 7*24*time.Hour)
	return NewService(logger, store, apps, issuer, nil, nil, cfg)
}

func newTestServiceWithRevoker(store AccountStore, revoker Revoker) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := NewIssuer("test-secret", "parley", time.Hour, 7*24*time.Hour)
	return NewService(logger, store, &stubApps{}, issuer, revoker, nil, Config{})
}

func TestLoginHappyPath(t *testing.T) {
	store := newStubStore(seedAccount(t))
	svc := newTestService(store, &stubApps{}, Config{})

	bundle, err := svc.Login(context.Background(), LoginInput{Code: "alice", Password: "s3cret-pass"})
	require.NoError(t, err)
	require.NotEmpty(t, bundle.Token)
	require.NotEmpty(t, bundle.RefreshToken)
	assert.Equal(t, "alice", bundle.Account.Code)

	claims, err := svc.Issuer().Validate(bundle.Token)
	require.NoError(t, err)
	assert.Equal(t, "USER", claims.Role)
	assert.Equal(t, "acme", claims.CompanyCode)

	account := store.byID[claims.AccountID()]
	assert.True(t, account.IsOnline)
	require.NotNil(t, account.LastConnection)
}

func TestLoginRejectsEmptyInput(t *testing.T) {
	svc := newTestService(newStubStore(), &stubApps{}, Config{})

	for _, in := range []LoginInput{
		{},
		{Code: "alice"},
		{Password: "s3cret-pass"},
		{Code: "   ", Password: "s3cret-pass"},
	} {
		_, err := svc.Login(context.Background(), in)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	store := newStubStore(seedAccount(t))
	svc := newTestService(store, &stubApps{}, Config{})

	_, err := svc.Login(context.Background(), LoginInput{Code: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginUnknownCodeLooksLikeWrongPassword(t *testing.T) {
	svc := newTestService(newStubStore(seedAccount(t)), &stubApps{}, Config{})

	_, err := svc.Login(context.Background(), LoginInput{Code: "nobody", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginInactiveAccount(t *testing.T) {
	account := seedAccount(t)
	account.IsActive = false
	svc := newTestService(newStubStore(account), &stubApps{}, Config{})

	_, err := svc.Login(context.Background(), LoginInput{Code: "alice", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginUnverifiedAccount(t *testing.T) {
	account := seedAccount(t)
	account.IsVerified = false
	store := newStubStore(account)

	_, err := newTestService(store, &stubApps{}, Config{}).
		Login(context.Background(), LoginInput{Code: "alice", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, shared.ErrAccountUnverified)

	// The same login succeeds when the gate is disabled.
	_, err = newTestService(store, &stubApps{}, Config{AllowUnverified: true}).
		Login(context.Background(), LoginInput{Code: "alice", Password: "s3cret-pass"})
	assert.NoError(t, err)
}

func TestLoginTenantCheck(t *testing.T) {
	store := newStubStore(seedAccount(t))
	svc := newTestService(store, &stubApps{}, Config{})

	_, err := svc.Login(context.Background(), LoginInput{Code: "alice", Password: "s3cret-pass", CompanyCode: "globex"})
	assert.ErrorIs(t, err, shared.ErrTenantMismatch)

	for _, tenant := range []string{"acme", "ACME", "default", ""} {
		_, err := svc.Login(context.Background(), LoginInput{Code: "alice", Password: "s3cret-pass", CompanyCode: tenant})
		assert.NoError(t, err, "tenant %q", tenant)
	}
}

func TestLoginInvalidApplicationPairShortCircuits(t *testing.T) {
	store := newStubStore(seedAccount(t))
	apps := &stubApps{result: applications.Validation{Valid: false, Reason: applications.ReasonSecretMismatch}}
	svc := newTestService(store, apps, Config{})

	_, err := svc.Login(context.Background(), LoginInput{
		Code:           "alice",
		Password:       "s3cret-pass",
		AppAccessToken: "app-access",
		AppSecretToken: "bad-secret",
	})
	assert.ErrorIs(t, err, shared.ErrApplicationToken)
	assert.Equal(t, 1, apps.calls)
	// The account store was never consulted.
	assert.Zero(t, store.lookups)
}

func TestLoginCarriesApplicationIntoToken(t *testing.T) {
	store := newStubStore(seedAccount(t))
	apps := &stubApps{result: applications.Validation{
		Valid:           true,
		ApplicationCode: "chat-app",
		ApplicationName: "Chat App",
		CompanyCode:     "acme",
	}}
	svc := newTestService(store, apps, Config{})

	bundle, err := svc.Login(context.Background(), LoginInput{
		Code:           "alice",
		Password:       "s3cret-pass",
		AppAccessToken: "app-access",
		AppSecretToken: "app-secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "chat-app", bundle.ApplicationCode)
	assert.Equal(t, "Chat App", bundle.ApplicationName)

	claims, err := svc.Issuer().Validate(bundle.Token)
	require.NoError(t, err)
	assert.Equal(t, "chat-app", claims.ApplicationCode)
}

func TestLoginLegacyPlaintextHash(t *testing.T) {
	account := seedAccount(t)
	account.PasswordHash = "legacy-plain"
	svc := newTestService(newStubStore(account), &stubApps{}, Config{})

	_, err := svc.Login(context.Background(), LoginInput{Code: "alice", Password: "legacy-plain"})
	assert.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginInput{Code: "alice", Password: "other"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRegisterHappyPath(t *testing.T) {
	store := newStubStore()
	mailer := &stubMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := NewIssuer("test-secret", "parley", time.Hour, 7*24*time.Hour)
	svc := NewService(logger, store, &stubApps{}, issuer, nil, mailer, Config{AllowUnverified: true})

	bundle, err := svc.Register(context.Background(), RegisterInput{
		Email:           "Bob@Example.com",
		Password:        "longenough",
		ConfirmPassword: "longenough",
		Name:            "Bob",
	})
	require.NoError(t, err)
	require.NotEmpty(t, bundle.Token)
	assert.Equal(t, 1, store.creates)

	created := store.byID[bundle.Account.ID]
	require.NotNil(t, created)
	assert.Equal(t, "bob@example.com", created.Email)
	assert.Equal(t, "USER", created.Role)
	assert.False(t, created.IsVerified)
	require.NotNil(t, created.VerificationToken)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("longenough")))
	assert.Equal(t, []string{"bob@example.com"}, mailer.verifications)
}

func TestRegisterValidationPrecedesStorage(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, &stubApps{}, Config{})

	cases := []RegisterInput{
		{},
		{Email: "bob@example.com", Name: "Bob", Password: "short", ConfirmPassword: "short"},
		{Email: "bob@example.com", Name: "Bob", Password: "longenough", ConfirmPassword: "different"},
		{Email: "bob@example.com", Password: "longenough", ConfirmPassword: "longenough"},
	}
	for _, in := range cases {
		_, err := svc.Register(context.Background(), in)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	}
	assert.Zero(t, store.lookups)
	assert.Zero(t, store.creates)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newStubStore(seedAccount(t))
	svc := newTestService(store, &stubApps{}, Config{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:           "alice@example.com",
		Password:        "longenough",
		ConfirmPassword: "longenough",
		Name:            "Other Alice",
	})
	assert.ErrorIs(t, err, shared.ErrDuplicate)
	assert.Zero(t, store.creates)
}

func TestRegisterDuplicateCode(t *testing.T) {
	store := newStubStore(seedAccount(t))
	svc := newTestService(store, &stubApps{}, Config{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:           "alice2@example.com",
		Password:        "longenough",
		ConfirmPassword: "longenough",
		Name:            "Other Alice",
		Code:            "alice",
	})
	assert.ErrorIs(t, err, shared.ErrDuplicate)
	assert.Zero(t, store.creates)
}

func TestRefreshTokenMintsNewSession(t *testing.T) {
	store := newStubStore(seedAccount(t))
	svc := newTestService(store, &stubApps{}, Config{})

	bundle, err := svc.Login(context.Background(), LoginInput{Code: "alice", Password: "s3cret-pass"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), bundle.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.Token)

	claims, err := svc.Issuer().Validate(refreshed.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Code)
}

func TestRefreshTokenRejectsAccessToken(t *testing.T) {
	store := newStubStore(seedAccount(t))
	svc := newTestService(store, &stubApps{}, Config{})

	bundle, err := svc.Login(context.Background(), LoginInput{Code: "alice", Password: "s3cret-pass"})
	require.NoError(t, err)

	_, err = svc.RefreshToken(context.Background(), bundle.Token)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestRefreshTokenRejectsDeactivatedAccount(t *testing.T) {
	account := seedAccount(t)
	store := newStubStore(account)
	svc := newTestService(store, &stubApps{}, Config{})

	bundle, err := svc.Login(context.Background(), LoginInput{Code: "alice", Password: "s3cret-pass"})
	require.NoError(t, err)

	account.IsActive = false
	_, err = svc.RefreshToken(context.Background(), bundle.RefreshToken)
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestChangePassword(t *testing.T) {
	account := seedAccount(t)
	store := newStubStore(account)
	svc := newTestService(store, &stubApps{}, Config{})

	err := svc.ChangePassword(context.Background(), account.ID, "wrong", "newpassword")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	err = svc.ChangePassword(context.Background(), account.ID, "s3cret-pass", "short")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	require.NoError(t, svc.ChangePassword(context.Background(), account.ID, "s3cret-pass", "newpassword"))
	_, err = svc.Login(context.Background(), LoginInput{Code: "alice", Password: "newpassword"})
	assert.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	account := seedAccount(t)
	store := newStubStore(account)
	mailer := &stubMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := NewIssuer("test-secret", "parley", time.Hour, 7*24*time.Hour)
	svc := NewService(logger, store, &stubApps{}, issuer, nil, mailer, Config{})

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "alice@example.com"))
	require.NotNil(t, account.ResetToken)
	assert.Equal(t, []string{"alice@example.com"}, mailer.resets)

	token := *account.ResetToken
	require.NoError(t, svc.ResetPassword(context.Background(), token, "brand-new-pass", "brand-new-pass"))
	assert.Nil(t, account.ResetToken)

	_, err := svc.Login(context.Background(), LoginInput{Code: "alice", Password: "brand-new-pass"})
	assert.NoError(t, err)

	// The token was one-time.
	err = svc.ResetPassword(context.Background(), token, "another-pass", "another-pass")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestRequestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	mailer := &stubMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := NewIssuer("test-secret", "parley", time.Hour, 7*24*time.Hour)
	svc := NewService(logger, newStubStore(), &stubApps{}, issuer, nil, mailer, Config{})

	assert.NoError(t, svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, mailer.resets)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	account := seedAccount(t)
	store := newStubStore(account)
	svc := newTestService(store, &stubApps{}, Config{})

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "alice@example.com"))
	token := *account.ResetToken

	svc.WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	err := svc.ResetPassword(context.Background(), token, "brand-new-pass", "brand-new-pass")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestVerifyAccount(t *testing.T) {
	account := seedAccount(t)
	account.IsVerified = false
	token := "verify-me"
	account.VerificationToken = &token
	store := newStubStore(account)
	svc := newTestService(store, &stubApps{}, Config{})

	assert.ErrorIs(t, svc.VerifyAccount(context.Background(), "bogus"), shared.ErrInvalidInput)

	require.NoError(t, svc.VerifyAccount(context.Background(), "verify-me"))
	assert.True(t, account.IsVerified)
	assert.Nil(t, account.VerificationToken)
}

func TestLogoutIsIdempotent(t *testing.T) {
	account := seedAccount(t)
	store := newStubStore(account)
	svc := newTestService(store, &stubApps{}, Config{})

	_, err := svc.Login(context.Background(), LoginInput{Code: "alice", Password: "s3cret-pass"})
	require.NoError(t, err)
	require.True(t, account.IsOnline)

	expiry := time.Now().Add(time.Hour)
	require.NoError(t, svc.Logout(context.Background(), account.ID, "jti-1", expiry))
	assert.False(t, account.IsOnline)
	require.NoError(t, svc.Logout(context.Background(), account.ID, "jti-1", expiry))
}
