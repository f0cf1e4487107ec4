package webhooks

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/parley-chat/parley/internal/shared"
)

// Event names webhooks may subscribe to.
var knownEvents = map[string]bool{
	"account.registered":       true,
	"account.deactivated":      true,
	"conversation.created":     true,
	"conversation.deactivated": true,
	"contact.requested":        true,
	"contact.accepted":         true,
}

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Webhook, error)
	ListForCompany(ctx context.Context, companyCode string) ([]Webhook, error)
	Create(ctx context.Context, wh *Webhook) (*Webhook, error)
	Update(ctx context.Context, id int64, url string, events []string) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

// Service manages webhook configuration records. Every operation is scoped
// to the caller's company; cross-tenant ids resolve to not found.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns the tenant's webhooks.
func (s *Service) List(ctx context.Context, companyCode string) ([]Webhook, error) {
	return s.repo.ListForCompany(ctx, companyCode)
}

// Create registers a webhook and generates its signing secret. The secret
// is returned once; reads afterwards omit it.
func (s *Service) Create(ctx context.Context, companyCode, endpoint string, events []string) (*Webhook, string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if err := validateEndpoint(endpoint); err != nil {
		return nil, "", err
	}
	normalized, err := normalizeEvents(events)
	if err != nil {
		return nil, "", err
	}
	secret, err := newSecret()
	if err != nil {
		return nil, "", err
	}
	created, err := s.repo.Create(ctx, &Webhook{
		CompanyCode: companyCode,
		URL:         endpoint,
		Events:      normalized,
		Secret:      secret,
	})
	if err != nil {
		return nil, "", err
	}
	return created, secret, nil
}

// Update replaces a webhook's endpoint and subscriptions.
func (s *Service) Update(ctx context.Context, companyCode string, id int64, endpoint string, events []string) error {
	endpoint = strings.TrimSpace(endpoint)
	if err := validateEndpoint(endpoint); err != nil {
		return err
	}
	normalized, err := normalizeEvents(events)
	if err != nil {
		return err
	}
	if _, err := s.owned(ctx, companyCode, id); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, endpoint, normalized)
}

// SetActive toggles a webhook.
func (s *Service) SetActive(ctx context.Context, companyCode string, id int64, active bool) error {
	if _, err := s.owned(ctx, companyCode, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, active)
}

// Delete removes a webhook.
func (s *Service) Delete(ctx context.Context, companyCode string, id int64) error {
	if _, err := s.owned(ctx, companyCode, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) owned(ctx context.Context, companyCode string, id int64) (*Webhook, error) {
	wh, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if wh.CompanyCode != companyCode {
		return nil, shared.ErrNotFound
	}
	return wh, nil
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return shared.ErrInvalidInput
	}
	return nil
}

func normalizeEvents(events []string) ([]string, error) {
	if len(events) == 0 {
		return nil, shared.ErrInvalidInput
	}
	seen := make(map[string]bool, len(events))
	out := make([]string, 0, len(events))
	for _, e := range events {
		e = strings.ToLower(strings.TrimSpace(e))
		if !knownEvents[e] {
			return nil, shared.ErrInvalidInput
		}
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out, nil
}

func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
