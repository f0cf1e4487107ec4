package contacts

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/shared"
)

type stubRepo struct {
	rels   map[int64]*Relationship
	nextID int64
}

func newStubRepo(seed ...*Relationship) *stubRepo {
	s := &stubRepo{rels: make(map[int64]*Relationship), nextID: 1}
	for _, rel := range seed {
		if rel.ID == 0 {
			rel.ID = s.nextID
		}
		if rel.ID >= s.nextID {
			s.nextID = rel.ID + 1
		}
		s.rels[rel.ID] = rel
	}
	return s
}

func (s *stubRepo) Get(_ context.Context, id int64) (*Relationship, error) {
	rel, ok := s.rels[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return rel, nil
}

func (s *stubRepo) GetPair(_ context.Context, a, b int64) (*Relationship, error) {
	for _, rel := range s.rels {
		if (rel.RequesterID == a && rel.TargetID == b) || (rel.RequesterID == b && rel.TargetID == a) {
			return rel, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) Create(_ context.Context, rel *Relationship) (*Relationship, error) {
	rel.ID = s.nextID
	s.nextID++
	rel.RequestedAt = time.Now()
	s.rels[rel.ID] = rel
	return rel, nil
}

func (s *stubRepo) UpdateStatus(_ context.Context, id int64, status string, respondedAt time.Time) error {
	rel, ok := s.rels[id]
	if !ok {
		return shared.ErrNotFound
	}
	rel.Status = status
	rel.RespondedAt = &respondedAt
	return nil
}

func (s *stubRepo) Reset(_ context.Context, id, requesterID, targetID int64, status string) error {
	rel, ok := s.rels[id]
	if !ok {
		return shared.ErrNotFound
	}
	rel.RequesterID = requesterID
	rel.TargetID = targetID
	rel.Status = status
	rel.RequestedAt = time.Now()
	rel.RespondedAt = nil
	return nil
}

func (s *stubRepo) Delete(_ context.Context, id int64) error {
	if _, ok := s.rels[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.rels, id)
	return nil
}

func (s *stubRepo) ListForAccount(_ context.Context, accountID int64) ([]Relationship, error) {
	var out []Relationship
	for _, rel := range s.rels {
		if rel.Involves(accountID) {
			out = append(out, *rel)
		}
	}
	return out, nil
}

type allowAllGate struct{ allow bool }

func (g allowAllGate) CanSendContactRequest(context.Context, shared.Identity, int64) bool {
	return g.allow
}

func newTestService(repo *stubRepo, allow bool) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, repo, allowAllGate{allow: allow})
}

func caller(id int64) shared.Identity {
	return shared.Identity{AccountID: id, Role: "USER", CompanyCode: "acme"}
}

func TestRequestCreatesPendingRelationship(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, true)

	rel, err := svc.Request(context.Background(), caller(1), 2)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rel.Status)
	assert.Equal(t, int64(1), rel.RequesterID)
	assert.Equal(t, int64(2), rel.TargetID)
	assert.Equal(t, "acme", rel.CompanyCode)
}

func TestRequestDeniedByResolver(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, false)

	_, err := svc.Request(context.Background(), caller(1), 2)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	assert.Empty(t, repo.rels)
}

func TestRequestReopensRejectedPair(t *testing.T) {
	repo := newStubRepo(&Relationship{RequesterID: 2, TargetID: 1, Status: StatusRejected})
	svc := newTestService(repo, true)

	rel, err := svc.Request(context.Background(), caller(1), 2)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rel.Status)
	// Direction now reflects the new requester.
	assert.Equal(t, int64(1), rel.RequesterID)
	assert.Equal(t, int64(2), rel.TargetID)
	assert.Len(t, repo.rels, 1)
}

func TestAcceptOnlyByTarget(t *testing.T) {
	rel := &Relationship{RequesterID: 1, TargetID: 2, Status: StatusPending}
	repo := newStubRepo(rel)
	svc := newTestService(repo, true)

	// The requester cannot accept their own request.
	err := svc.Accept(context.Background(), caller(1), rel.ID)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	// A third party cannot either.
	err = svc.Accept(context.Background(), caller(3), rel.ID)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	require.NoError(t, svc.Accept(context.Background(), caller(2), rel.ID))
	assert.Equal(t, StatusAccepted, rel.Status)
	require.NotNil(t, rel.RespondedAt)
}

func TestRespondRequiresPendingState(t *testing.T) {
	rel := &Relationship{RequesterID: 1, TargetID: 2, Status: StatusAccepted}
	repo := newStubRepo(rel)
	svc := newTestService(repo, true)

	err := svc.Reject(context.Background(), caller(2), rel.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestBlockExistingPairRecordsBlocker(t *testing.T) {
	rel := &Relationship{RequesterID: 1, TargetID: 2, Status: StatusAccepted}
	repo := newStubRepo(rel)
	svc := newTestService(repo, true)

	require.NoError(t, svc.Block(context.Background(), caller(2), 1))
	assert.Equal(t, StatusBlocked, rel.Status)
	assert.Equal(t, int64(2), rel.RequesterID)
}

func TestBlockWithoutPriorRelationship(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, true)

	require.NoError(t, svc.Block(context.Background(), caller(1), 2))
	rel, err := repo.GetPair(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, rel.Status)
}

func TestUnblockOnlyByBlocker(t *testing.T) {
	rel := &Relationship{RequesterID: 2, TargetID: 1, Status: StatusBlocked}
	repo := newStubRepo(rel)
	svc := newTestService(repo, true)

	err := svc.Unblock(context.Background(), caller(1), 2)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	require.NoError(t, svc.Unblock(context.Background(), caller(2), 1))
	assert.Empty(t, repo.rels)
}

func TestUnblockRequiresBlockedState(t *testing.T) {
	rel := &Relationship{RequesterID: 1, TargetID: 2, Status: StatusAccepted}
	repo := newStubRepo(rel)
	svc := newTestService(repo, true)

	err := svc.Unblock(context.Background(), caller(1), 2)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
