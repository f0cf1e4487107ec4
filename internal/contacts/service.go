package contacts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/parley-chat/parley/internal/shared"
)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Relationship, error)
	GetPair(ctx context.Context, accountID, otherID int64) (*Relationship, error)
	Create(ctx context.Context, rel *Relationship) (*Relationship, error)
	UpdateStatus(ctx context.Context, id int64, status string, respondedAt time.Time) error
	Reset(ctx context.Context, id, requesterID, targetID int64, status string) error
	Delete(ctx context.Context, id int64) error
	ListForAccount(ctx context.Context, accountID int64) ([]Relationship, error)
}

// Gatekeeper is the slice of the authorization resolver the service needs.
type Gatekeeper interface {
	CanSendContactRequest(ctx context.Context, identity shared.Identity, targetID int64) bool
}

// Service drives the contact relationship state machine.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	gate   Gatekeeper
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo RepositoryPort, gate Gatekeeper) *Service {
	return &Service{logger: logger, repo: repo, gate: gate, now: time.Now}
}

// List returns relationships involving the caller.
func (s *Service) List(ctx context.Context, identity shared.Identity) ([]Relationship, error) {
	return s.repo.ListForAccount(ctx, identity.AccountID)
}

// Request opens a pending relationship toward the target. The resolver
// decides eligibility; a previously rejected pair is reopened in the
// caller's direction.
func (s *Service) Request(ctx context.Context, identity shared.Identity, targetID int64) (*Relationship, error) {
	if !s.gate.CanSendContactRequest(ctx, identity, targetID) {
		return nil, shared.ErrPermissionDenied
	}
	existing, err := s.repo.GetPair(ctx, identity.AccountID, targetID)
	switch {
	case err == nil:
		if existing.Status != StatusRejected {
			return nil, shared.ErrDuplicate
		}
		if err := s.repo.Reset(ctx, existing.ID, identity.AccountID, targetID, StatusPending); err != nil {
			return nil, err
		}
		return s.repo.Get(ctx, existing.ID)
	case errors.Is(err, shared.ErrNotFound):
		return s.repo.Create(ctx, &Relationship{
			RequesterID: identity.AccountID,
			TargetID:    targetID,
			Status:      StatusPending,
			CompanyCode: identity.CompanyCode,
		})
	default:
		return nil, err
	}
}

// Accept transitions a pending request to accepted. Only the target of the
// request may respond.
func (s *Service) Accept(ctx context.Context, identity shared.Identity, relationshipID int64) error {
	return s.respond(ctx, identity, relationshipID, StatusAccepted)
}

// Reject transitions a pending request to rejected.
func (s *Service) Reject(ctx context.Context, identity shared.Identity, relationshipID int64) error {
	return s.respond(ctx, identity, relationshipID, StatusRejected)
}

func (s *Service) respond(ctx context.Context, identity shared.Identity, relationshipID int64, status string) error {
	rel, err := s.repo.Get(ctx, relationshipID)
	if err != nil {
		return err
	}
	if rel.TargetID != identity.AccountID {
		return shared.ErrPermissionDenied
	}
	if rel.Status != StatusPending {
		return shared.ErrInvalidInput
	}
	return s.repo.UpdateStatus(ctx, rel.ID, status, s.now().UTC())
}

// Block marks the pair blocked regardless of its current state, creating
// the row when none exists. Either party may block.
func (s *Service) Block(ctx context.Context, identity shared.Identity, otherID int64) error {
	if otherID == 0 || otherID == identity.AccountID {
		return shared.ErrInvalidInput
	}
	existing, err := s.repo.GetPair(ctx, identity.AccountID, otherID)
	switch {
	case err == nil:
		return s.repo.Reset(ctx, existing.ID, identity.AccountID, otherID, StatusBlocked)
	case errors.Is(err, shared.ErrNotFound):
		_, err := s.repo.Create(ctx, &Relationship{
			RequesterID: identity.AccountID,
			TargetID:    otherID,
			Status:      StatusBlocked,
			CompanyCode: identity.CompanyCode,
		})
		return err
	default:
		return err
	}
}

// Unblock removes a block the caller placed. The pair returns to having no
// relationship at all.
func (s *Service) Unblock(ctx context.Context, identity shared.Identity, otherID int64) error {
	existing, err := s.repo.GetPair(ctx, identity.AccountID, otherID)
	if err != nil {
		return err
	}
	if existing.Status != StatusBlocked {
		return shared.ErrInvalidInput
	}
	if existing.RequesterID != identity.AccountID {
		// Only the account that placed the block may lift it.
		return shared.ErrPermissionDenied
	}
	return s.repo.Delete(ctx, existing.ID)
}
