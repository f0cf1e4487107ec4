package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/shared"
)

type stubRepo struct {
	accounts []Account
}

func (s *stubRepo) FindByID(_ context.Context, id int64) (*Account, error) {
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			return &s.accounts[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) List(_ context.Context, companyCode string) ([]Account, error) {
	var matched []Account
	for _, a := range s.accounts {
		if a.CompanyCode == companyCode {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

func (s *stubRepo) Deactivate(_ context.Context, id int64) error {
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			s.accounts[i].IsActive = false
			return nil
		}
	}
	return shared.ErrNotFound
}

func seedAccounts(n int, companyCode string) []Account {
	out := make([]Account, n)
	for i := range out {
		out[i] = Account{
			ID:          int64(i + 1),
			Code:        "user" + string(rune('a'+i)),
			CompanyCode: companyCode,
			IsActive:    true,
			CreatedAt:   time.Now(),
		}
	}
	return out
}

func TestListScopedToCompany(t *testing.T) {
	repo := &stubRepo{accounts: append(seedAccounts(3, "acme"), Account{ID: 99, CompanyCode: "globex", IsActive: true})}
	svc := NewService(repo)

	out, err := svc.List(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, summary := range out {
		require.NotEqual(t, int64(99), summary.ID)
	}
}

func TestListSummariesOmitSecrets(t *testing.T) {
	resetToken := "reset-token"
	repo := &stubRepo{accounts: []Account{{
		ID:           1,
		Code:         "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$secret",
		ResetToken:   &resetToken,
		CompanyCode:  "acme",
		IsActive:     true,
	}}}
	svc := NewService(repo)

	out, err := svc.List(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "alice", out[0].Code)
}

func TestDeactivate(t *testing.T) {
	repo := &stubRepo{accounts: seedAccounts(1, "acme")}
	svc := NewService(repo)

	require.NoError(t, svc.Deactivate(context.Background(), 1))
	account, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, account.IsActive)

	require.ErrorIs(t, svc.Deactivate(context.Background(), 404), shared.ErrNotFound)
}
