package applications

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/parley-chat/parley/internal/shared"
)

// RepositoryPort defines data access methods the service needs.
type RepositoryPort interface {
	FindByCode(ctx context.Context, code string) (*Registration, error)
	FindByAccessToken(ctx context.Context, token string) (*Registration, error)
	Create(ctx context.Context, reg *Registration) (*Registration, error)
	List(ctx context.Context, companyCode string) ([]Registration, error)
	UpdateTokens(ctx context.Context, code, accessToken, secretToken string, expiresAt *time.Time) error
	SetActive(ctx context.Context, code string, active bool) error
}

// Service issues and validates per-application credential pairs. It never
// touches end-user accounts.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock overrides the time source; tests use it to control expiry checks.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Register creates a registration together with its first credential pair.
func (s *Service) Register(ctx context.Context, companyCode, code, name string, validity time.Duration) (*Registration, error) {
	companyCode = strings.TrimSpace(companyCode)
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if companyCode == "" || code == "" || name == "" {
		return nil, shared.ErrInvalidInput
	}
	access, err := opaqueToken()
	if err != nil {
		return nil, err
	}
	secret, err := opaqueToken()
	if err != nil {
		return nil, err
	}
	reg := &Registration{
		CompanyCode: companyCode,
		Code:        code,
		Name:        name,
		AccessToken: access,
		SecretToken: secret,
		IsActive:    true,
		ExpiresAt:   expiryFrom(s.now(), validity),
	}
	return s.repo.Create(ctx, reg)
}

// Issue generates a fresh access/secret pair for an existing registration.
func (s *Service) Issue(ctx context.Context, code string, validity time.Duration) (*Credentials, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.ErrInvalidInput
	}
	if _, err := s.repo.FindByCode(ctx, code); err != nil {
		return nil, err
	}
	access, err := opaqueToken()
	if err != nil {
		return nil, err
	}
	secret, err := opaqueToken()
	if err != nil {
		return nil, err
	}
	expiresAt := expiryFrom(s.now(), validity)
	if err := s.repo.UpdateTokens(ctx, code, access, secret, expiresAt); err != nil {
		return nil, err
	}
	return &Credentials{
		ApplicationCode: code,
		AccessToken:     access,
		SecretToken:     secret,
		ExpiresAt:       expiresAt,
	}, nil
}

// Renew reissues both tokens with a new expiry. Same mechanics as Issue;
// kept separate so the administrative surface reads naturally.
func (s *Service) Renew(ctx context.Context, code string, validity time.Duration) (*Credentials, error) {
	return s.Issue(ctx, code, validity)
}

// Revoke marks the registration inactive.
func (s *Service) Revoke(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return shared.ErrInvalidInput
	}
	return s.repo.SetActive(ctx, code, false)
}

// Validate checks an access token and optional secret against the stored
// registration. It always returns a structured result; lookup faults other
// than not-found bubble up so callers can distinguish store outages.
func (s *Service) Validate(ctx context.Context, accessToken, secretToken string, requireSecret, requireNotExpired bool) (Validation, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return Validation{Reason: ReasonNotFound}, nil
	}
	reg, err := s.repo.FindByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Validation{Reason: ReasonNotFound}, nil
		}
		return Validation{Reason: ReasonNotFound}, err
	}

	result := Validation{
		ApplicationCode: reg.Code,
		ApplicationName: reg.Name,
		CompanyCode:     reg.CompanyCode,
		Active:          reg.IsActive,
		RemainingDays:   remainingDays(s.now(), reg.ExpiresAt),
	}

	if requireSecret {
		if subtle.ConstantTimeCompare([]byte(reg.SecretToken), []byte(secretToken)) != 1 {
			result.Reason = ReasonSecretMismatch
			return result, nil
		}
	}
	if !reg.IsActive {
		result.Reason = ReasonInactive
		return result, nil
	}
	if requireNotExpired && reg.ExpiresAt != nil && s.now().After(*reg.ExpiresAt) {
		result.Reason = ReasonExpired
		return result, nil
	}

	result.Valid = true
	result.Reason = ReasonValid
	return result, nil
}

// List returns registrations for a company.
func (s *Service) List(ctx context.Context, companyCode string) ([]Registration, error) {
	return s.repo.List(ctx, companyCode)
}

func opaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func expiryFrom(now time.Time, validity time.Duration) *time.Time {
	if validity <= 0 {
		return nil
	}
	t := now.Add(validity)
	return &t
}

func remainingDays(now time.Time, expiresAt *time.Time) int {
	if expiresAt == nil {
		return 0
	}
	remaining := expiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Hours() / 24)
}
