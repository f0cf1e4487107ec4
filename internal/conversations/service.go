package conversations

import (
	"context"
	"log/slog"
	"strings"

	"github.com/parley-chat/parley/internal/rbac"
	"github.com/parley-chat/parley/internal/shared"
)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Conversation, error)
	Create(ctx context.Context, c *Conversation) (*Conversation, error)
	AddParticipant(ctx context.Context, conversationID, accountID int64) error
	RemoveParticipant(ctx context.Context, conversationID, accountID int64) error
	Participants(ctx context.Context, conversationID int64) ([]Participant, error)
	ListForAccount(ctx context.Context, accountID int64) ([]Conversation, error)
	Deactivate(ctx context.Context, id int64) error
}

// Gatekeeper is the slice of the authorization resolver the service needs.
type Gatekeeper interface {
	HasPermission(identity shared.Identity, permission string) bool
	CanAccessConversation(ctx context.Context, identity shared.Identity, conversationID int64) bool
	CanManageConversation(ctx context.Context, identity shared.Identity, conversationID int64) bool
}

// Service drives conversation lifecycle and membership.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	gate   Gatekeeper
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo RepositoryPort, gate Gatekeeper) *Service {
	return &Service{logger: logger, repo: repo, gate: gate}
}

// List returns the caller's active conversations.
func (s *Service) List(ctx context.Context, identity shared.Identity) ([]Conversation, error) {
	return s.repo.ListForAccount(ctx, identity.AccountID)
}

// Get returns a conversation the caller may access.
func (s *Service) Get(ctx context.Context, identity shared.Identity, id int64) (*Conversation, error) {
	if !s.gate.CanAccessConversation(ctx, identity, id) {
		return nil, shared.ErrPermissionDenied
	}
	return s.repo.Get(ctx, id)
}

// Participants lists the members of a conversation the caller may access.
func (s *Service) Participants(ctx context.Context, identity shared.Identity, id int64) ([]Participant, error) {
	if !s.gate.CanAccessConversation(ctx, identity, id) {
		return nil, shared.ErrPermissionDenied
	}
	return s.repo.Participants(ctx, id)
}

// Create opens a conversation with the caller as creator and first member.
func (s *Service) Create(ctx context.Context, identity shared.Identity, title string) (*Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.ErrInvalidInput
	}
	if !s.gate.HasPermission(identity, rbac.PermSendMessages) {
		return nil, shared.ErrPermissionDenied
	}
	return s.repo.Create(ctx, &Conversation{
		Title:           title,
		CreatorID:       identity.AccountID,
		CompanyCode:     identity.CompanyCode,
		ApplicationCode: identity.ApplicationCode,
	})
}

// AddParticipant enrolls an account; only managers may change membership.
func (s *Service) AddParticipant(ctx context.Context, identity shared.Identity, conversationID, accountID int64) error {
	if accountID <= 0 {
		return shared.ErrInvalidInput
	}
	if !s.gate.CanManageConversation(ctx, identity, conversationID) {
		return shared.ErrPermissionDenied
	}
	return s.repo.AddParticipant(ctx, conversationID, accountID)
}

// RemoveParticipant removes an account. Members may remove themselves;
// anyone else needs manage rights.
func (s *Service) RemoveParticipant(ctx context.Context, identity shared.Identity, conversationID, accountID int64) error {
	if accountID <= 0 {
		return shared.ErrInvalidInput
	}
	if accountID != identity.AccountID && !s.gate.CanManageConversation(ctx, identity, conversationID) {
		return shared.ErrPermissionDenied
	}
	return s.repo.RemoveParticipant(ctx, conversationID, accountID)
}

// Deactivate soft-deletes a conversation.
func (s *Service) Deactivate(ctx context.Context, identity shared.Identity, id int64) error {
	if !s.gate.CanManageConversation(ctx, identity, id) {
		return shared.ErrPermissionDenied
	}
	return s.repo.Deactivate(ctx, id)
}
