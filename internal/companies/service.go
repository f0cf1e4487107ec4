package companies

import (
	"context"
	"regexp"
	"strings"

	"github.com/parley-chat/parley/internal/shared"
)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	FindByCode(ctx context.Context, code string) (*Company, error)
	List(ctx context.Context) ([]Company, error)
	Create(ctx context.Context, c *Company) (*Company, error)
	Update(ctx context.Context, code, name string) error
	SetActive(ctx context.Context, code string, active bool) error
}

// Company codes are lowercase slugs; they appear in tokens and URLs.
var codePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)

// Service manages tenant companies.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all companies.
func (s *Service) List(ctx context.Context) ([]Company, error) {
	return s.repo.List(ctx)
}

// Get fetches a company by code.
func (s *Service) Get(ctx context.Context, code string) (*Company, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.ErrInvalidInput
	}
	return s.repo.FindByCode(ctx, code)
}

// Create registers a tenant.
func (s *Service) Create(ctx context.Context, code, name string) (*Company, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if name == "" || !codePattern.MatchString(code) {
		return nil, shared.ErrInvalidInput
	}
	return s.repo.Create(ctx, &Company{Code: code, Name: name})
}

// Rename changes a company's display name.
func (s *Service) Rename(ctx context.Context, code, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.ErrInvalidInput
	}
	return s.repo.Update(ctx, strings.TrimSpace(code), name)
}

// Deactivate disables a tenant; logins with its company code keep failing
// the tenant check until it is reactivated.
func (s *Service) Deactivate(ctx context.Context, code string) error {
	return s.repo.SetActive(ctx, strings.TrimSpace(code), false)
}

// Activate re-enables a tenant.
func (s *Service) Activate(ctx context.Context, code string) error {
	return s.repo.SetActive(ctx, strings.TrimSpace(code), true)
}
