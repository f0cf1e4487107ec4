package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/parley-chat/parley/internal/accounts"
	"github.com/parley-chat/parley/internal/applications"
	"github.com/parley-chat/parley/internal/rbac"
	"github.com/parley-chat/parley/internal/shared"
)

// defaultTenant is the sentinel company code that skips the tenant check.
const defaultTenant = "default"

// AccountStore defines the credential-store operations the authenticator needs.
type AccountStore interface {
	FindByID(ctx context.Context, id int64) (*accounts.Account, error)
	FindByCode(ctx context.Context, code string) (*accounts.Account, error)
	FindByEmail(ctx context.Context, email string) (*accounts.Account, error)
	FindByResetToken(ctx context.Context, token string) (*accounts.Account, error)
	FindByVerificationToken(ctx context.Context, token string) (*accounts.Account, error)
	Create(ctx context.Context, a *accounts.Account) (*accounts.Account, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdatePresence(ctx context.Context, id int64, online bool, at time.Time) error
	SetResetToken(ctx context.Context, id int64, token string, expiry time.Time) error
	SetVerified(ctx context.Context, id int64) error
}

// ApplicationValidator checks a tenant application's access/secret pair.
type ApplicationValidator interface {
	Validate(ctx context.Context, accessToken, secretToken string, requireSecret, requireNotExpired bool) (applications.Validation, error)
}

// Mailer delivers transactional mail. Implementations enqueue rather than
// send inline; see the jobs package.
type Mailer interface {
	SendVerification(ctx context.Context, email, name, token string) error
	SendPasswordReset(ctx context.Context, email, name, token string) error
}

// Config tunes authenticator behavior.
type Config struct {
	// AllowUnverified skips the email-verification gate. Set only in test
	// environments; production deployments leave it false.
	AllowUnverified   bool
	MinPasswordLength int
	ResetTokenTTL     time.Duration
}

func (c Config) minPasswordLength() int {
	if c.MinPasswordLength > 0 {
		return c.MinPasswordLength
	}
	return 6
}

func (c Config) resetTokenTTL() time.Duration {
	if c.ResetTokenTTL > 0 {
		return c.ResetTokenTTL
	}
	return time.Hour
}

// Service orchestrates login, registration, token refresh, logout, and the
// password and verification flows.
type Service struct {
	logger  *slog.Logger
	store   AccountStore
	apps    ApplicationValidator
	issuer  *Issuer
	revoker Revoker
	mailer  Mailer
	cfg     Config
	now     func() time.Time
}

// NewService constructs a Service. revoker and mailer may be nil; the
// corresponding features are then disabled.
func NewService(logger *slog.Logger, store AccountStore, apps ApplicationValidator, issuer *Issuer, revoker Revoker, mailer Mailer, cfg Config) *Service {
	return &Service{
		logger:  logger,
		store:   store,
		apps:    apps,
		issuer:  issuer,
		revoker: revoker,
		mailer:  mailer,
		cfg:     cfg,
		now:     time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Login validates end-user credentials and returns a session bundle.
func (s *Service) Login(ctx context.Context, in LoginInput) (*SessionBundle, error) {
	in.Code = strings.TrimSpace(in.Code)
	if in.Code == "" || in.Password == "" {
		return nil, shared.ErrInvalidInput
	}

	// An application pair, when supplied, gates the whole flow: it must
	// validate before the account is even looked up.
	appCode, appName := "", ""
	if in.AppAccessToken != "" {
		result, err := s.apps.Validate(ctx, in.AppAccessToken, in.AppSecretToken, in.AppSecretToken != "", true)
		if err != nil {
			s.logger.Error("application token validation", slog.Any("error", err))
			return nil, err
		}
		if !result.Valid {
			return nil, shared.ErrApplicationToken
		}
		appCode, appName = result.ApplicationCode, result.ApplicationName
	}

	account, err := s.store.FindByCode(ctx, in.Code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		s.logger.Error("account lookup", slog.Any("error", err))
		return nil, err
	}
	if !account.IsActive {
		// Same message as a wrong password so accounts cannot be enumerated.
		return nil, shared.ErrInvalidCredentials
	}

	if tenant := strings.TrimSpace(in.CompanyCode); tenant != "" && tenant != defaultTenant {
		if !strings.EqualFold(tenant, account.CompanyCode) {
			return nil, shared.ErrTenantMismatch
		}
	}

	if !verifyPassword(account.PasswordHash, in.Password) {
		return nil, shared.ErrInvalidCredentials
	}

	if !account.IsVerified && !s.cfg.AllowUnverified {
		return nil, shared.ErrAccountUnverified
	}

	return s.openSession(ctx, account, appCode, appName)
}

// Register creates an account and opens a session for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*SessionBundle, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)

	// All input validation happens before any store access.
	if in.Email == "" || in.Name == "" || in.Password == "" {
		return nil, shared.ErrInvalidInput
	}
	if len(in.Password) < s.cfg.minPasswordLength() {
		return nil, shared.ErrInvalidInput
	}
	if in.Password != in.ConfirmPassword {
		return nil, shared.ErrInvalidInput
	}

	companyCode := strings.TrimSpace(in.CompanyCode)
	appCode, appName := "", ""
	if in.AppAccessToken != "" {
		result, err := s.apps.Validate(ctx, in.AppAccessToken, in.AppSecretToken, in.AppSecretToken != "", true)
		if err != nil {
			s.logger.Error("application token validation", slog.Any("error", err))
			return nil, err
		}
		if !result.Valid {
			return nil, shared.ErrApplicationToken
		}
		appCode, appName = result.ApplicationCode, result.ApplicationName
		companyCode = result.CompanyCode
	}

	if _, err := s.store.FindByEmail(ctx, in.Email); err == nil {
		return nil, shared.ErrDuplicate
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	code := in.Code
	if code == "" {
		code = in.Email
	} else {
		if _, err := s.store.FindByCode(ctx, code); err == nil {
			return nil, shared.ErrDuplicate
		} else if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	verification := uuid.NewString()
	account := &accounts.Account{
		Code:              code,
		Email:             in.Email,
		Name:              in.Name,
		PasswordHash:      string(hash),
		Role:              string(rbac.RoleUser),
		IsActive:          true,
		IsVerified:        false,
		VerificationToken: &verification,
		CompanyCode:       companyCode,
		ApplicationCode:   appCode,
	}
	account, err = s.store.Create(ctx, account)
	if err != nil {
		return nil, err
	}

	if s.mailer != nil {
		if err := s.mailer.SendVerification(ctx, account.Email, account.Name, verification); err != nil {
			s.logger.Warn("enqueue verification mail", slog.Any("error", err))
		}
	}

	return s.openSession(ctx, account, appCode, appName)
}

// RefreshToken validates a refresh token, re-checks the account, and mints
// a new session token. No server-side refresh state exists: validity is a
// function of signature, expiry, and current account state.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*SessionBundle, error) {
	claims, err := s.issuer.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	if revoked, rerr := s.isRevoked(ctx, claims.ID); rerr == nil && revoked {
		return nil, ErrTokenRevoked
	}
	account, err := s.store.FindByID(ctx, claims.AccountID())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	token, expiresAt, err := s.issuer.Mint(account, claims.ApplicationCode)
	if err != nil {
		return nil, err
	}
	return &SessionBundle{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   accounts.Summarize(account),
	}, nil
}

// ChangePassword verifies the caller's current password and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, accountID int64, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return shared.ErrInvalidInput
	}
	if len(newPassword) < s.cfg.minPasswordLength() {
		return shared.ErrInvalidInput
	}
	account, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !verifyPassword(account.PasswordHash, oldPassword) {
		return shared.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, accountID, string(hash))
}

// RequestPasswordReset issues a one-time reset token and mails it. Unknown
// emails succeed silently so the endpoint cannot be used for enumeration.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return shared.ErrInvalidInput
	}
	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	token := uuid.NewString()
	expiry := s.now().Add(s.cfg.resetTokenTTL())
	if err := s.store.SetResetToken(ctx, account.ID, token, expiry); err != nil {
		return err
	}
	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(ctx, account.Email, account.Name, token); err != nil {
			s.logger.Warn("enqueue reset mail", slog.Any("error", err))
		}
	}
	return nil
}

// ResetPassword consumes a one-time reset token. It requires no bearer token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		return shared.ErrInvalidInput
	}
	if len(newPassword) < s.cfg.minPasswordLength() {
		return shared.ErrInvalidInput
	}
	if newPassword != confirmPassword {
		return shared.ErrInvalidInput
	}
	account, err := s.store.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrInvalidInput
		}
		return err
	}
	if account.ResetTokenExpiry == nil || s.now().After(*account.ResetTokenExpiry) {
		return shared.ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	// UpdatePassword also clears the one-time token.
	return s.store.UpdatePassword(ctx, account.ID, string(hash))
}

// VerifyAccount consumes an email verification token.
func (s *Service) VerifyAccount(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return shared.ErrInvalidInput
	}
	account, err := s.store.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrInvalidInput
		}
		return err
	}
	return s.store.SetVerified(ctx, account.ID)
}

// Logout clears presence metadata and, when a revoker is configured,
// revokes the presented token for its remaining lifetime. Calling it twice
// is harmless.
func (s *Service) Logout(ctx context.Context, accountID int64, tokenID string, tokenExpiry time.Time) error {
	if err := s.store.UpdatePresence(ctx, accountID, false, s.now().UTC()); err != nil {
		return err
	}
	if s.revoker != nil && tokenID != "" {
		if remaining := tokenExpiry.Sub(s.now()); remaining > 0 {
			if err := s.revoker.Revoke(ctx, tokenID, remaining); err != nil {
				s.logger.Warn("revoke token", slog.Any("error", err))
			}
		}
	}
	return nil
}

// IsRevoked reports whether a token id is on the revocation set.
func (s *Service) IsRevoked(ctx context.Context, tokenID string) bool {
	revoked, err := s.isRevoked(ctx, tokenID)
	if err != nil {
		s.logger.Warn("revocation lookup", slog.Any("error", err))
		// Fail closed: treat an unreachable revocation set as revoked.
		return true
	}
	return revoked
}

func (s *Service) isRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.revoker == nil || tokenID == "" {
		return false, nil
	}
	return s.revoker.IsRevoked(ctx, tokenID)
}

// Issuer exposes the token issuer for the middleware.
func (s *Service) Issuer() *Issuer {
	return s.issuer
}

// Account re-reads an account; the middleware uses it to enforce that the
// subject behind a valid token still exists and is active.
func (s *Service) Account(ctx context.Context, id int64) (*accounts.Account, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) openSession(ctx context.Context, account *accounts.Account, appCode, appName string) (*SessionBundle, error) {
	if appCode == "" {
		appCode = account.ApplicationCode
	}
	token, expiresAt, err := s.issuer.Mint(account, appCode)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.issuer.MintRefresh(account)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdatePresence(ctx, account.ID, true, s.now().UTC()); err != nil {
		s.logger.Warn("update presence", slog.Any("error", err), slog.Int64("account_id", account.ID))
	}
	return &SessionBundle{
		Token:           token,
		RefreshToken:    refresh,
		ExpiresAt:       expiresAt,
		ApplicationCode: appCode,
		ApplicationName: appName,
		Account:         accounts.Summarize(account),
	}, nil
}

// verifyPassword compares a stored hash with a candidate password. Hashes
// with a bcrypt prefix use bcrypt; anything else falls back to direct
// equality for legacy accounts that predate hashing.
func verifyPassword(storedHash, password string) bool {
	if storedHash == "" {
		return false
	}
	if strings.HasPrefix(storedHash, "$2a$") ||
		strings.HasPrefix(storedHash, "$2b$") ||
		strings.HasPrefix(storedHash, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(password)) == 1
}
