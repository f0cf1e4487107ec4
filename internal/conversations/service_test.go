package conversations

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/rbac"
	"github.com/parley-chat/parley/internal/shared"
)

type stubRepo struct {
	convs   map[int64]*Conversation
	members map[int64]map[int64]bool
	nextID  int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		convs:   make(map[int64]*Conversation),
		members: make(map[int64]map[int64]bool),
		nextID:  1,
	}
}

func (s *stubRepo) Get(_ context.Context, id int64) (*Conversation, error) {
	c, ok := s.convs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (s *stubRepo) Create(_ context.Context, c *Conversation) (*Conversation, error) {
	c.ID = s.nextID
	s.nextID++
	c.IsActive = true
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	s.convs[c.ID] = c
	s.members[c.ID] = map[int64]bool{c.CreatorID: true}
	return c, nil
}

func (s *stubRepo) AddParticipant(_ context.Context, conversationID, accountID int64) error {
	m, ok := s.members[conversationID]
	if !ok {
		return shared.ErrNotFound
	}
	m[accountID] = true
	return nil
}

func (s *stubRepo) RemoveParticipant(_ context.Context, conversationID, accountID int64) error {
	m, ok := s.members[conversationID]
	if !ok || !m[accountID] {
		return shared.ErrNotFound
	}
	delete(m, accountID)
	return nil
}

func (s *stubRepo) Participants(_ context.Context, conversationID int64) ([]Participant, error) {
	m, ok := s.members[conversationID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	var out []Participant
	for id := range m {
		out = append(out, Participant{ConversationID: conversationID, AccountID: id})
	}
	return out, nil
}

func (s *stubRepo) ListForAccount(_ context.Context, accountID int64) ([]Conversation, error) {
	var out []Conversation
	for id, c := range s.convs {
		if c.IsActive && s.members[id][accountID] {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *stubRepo) Deactivate(_ context.Context, id int64) error {
	c, ok := s.convs[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.IsActive = false
	return nil
}

// stubGate mirrors the resolver's decisions against the stub repo so the
// service tests exercise the real gating paths.
type stubGate struct {
	repo *stubRepo
}

func (g stubGate) HasPermission(identity shared.Identity, permission string) bool {
	return rbac.HasPermission(identity.Role, permission)
}

func (g stubGate) CanAccessConversation(_ context.Context, identity shared.Identity, conversationID int64) bool {
	if identity.Role == "ADMIN" || identity.Role == "SUPER_ADMIN" {
		return true
	}
	return g.repo.members[conversationID][identity.AccountID]
}

func (g stubGate) CanManageConversation(_ context.Context, identity shared.Identity, conversationID int64) bool {
	if identity.Role == "ADMIN" || identity.Role == "SUPER_ADMIN" {
		return true
	}
	c, ok := g.repo.convs[conversationID]
	return ok && c.CreatorID == identity.AccountID
}

func newTestService(repo *stubRepo) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, repo, stubGate{repo: repo})
}

func member(id int64, role string) shared.Identity {
	return shared.Identity{AccountID: id, Role: role, CompanyCode: "acme"}
}

func TestCreateEnrollsCreator(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), member(1, "USER"), "  design review  ")
	require.NoError(t, err)
	assert.Equal(t, "design review", created.Title)
	assert.Equal(t, int64(1), created.CreatorID)
	assert.True(t, repo.members[created.ID][1])
}

func TestCreateRequiresSendPermission(t *testing.T) {
	svc := newTestService(newStubRepo())

	_, err := svc.Create(context.Background(), member(1, "GUEST"), "lurkers")
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	_, err = svc.Create(context.Background(), member(1, "USER"), "   ")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestGetDeniedForNonParticipant(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), member(1, "USER"), "private")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), member(2, "USER"), created.ID)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	got, err := svc.Get(context.Background(), member(1, "USER"), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	// Admins read anything.
	_, err = svc.Get(context.Background(), member(3, "ADMIN"), created.ID)
	assert.NoError(t, err)
}

func TestMembershipManagedByCreator(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, member(1, "USER"), "team")
	require.NoError(t, err)

	// A non-creator participant cannot add members.
	require.NoError(t, svc.AddParticipant(ctx, member(1, "USER"), created.ID, 2))
	err = svc.AddParticipant(ctx, member(2, "USER"), created.ID, 3)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	// Members may leave on their own.
	require.NoError(t, svc.RemoveParticipant(ctx, member(2, "USER"), created.ID, 2))

	// But cannot remove someone else.
	require.NoError(t, svc.AddParticipant(ctx, member(1, "USER"), created.ID, 2))
	err = svc.RemoveParticipant(ctx, member(2, "USER"), created.ID, 1)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestDeactivate(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, member(1, "USER"), "ephemeral")
	require.NoError(t, err)

	err = svc.Deactivate(ctx, member(2, "USER"), created.ID)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	require.NoError(t, svc.Deactivate(ctx, member(1, "USER"), created.ID))
	assert.False(t, repo.convs[created.ID].IsActive)

	items, err := svc.List(ctx, member(1, "USER"))
	require.NoError(t, err)
	assert.Empty(t, items)
}
