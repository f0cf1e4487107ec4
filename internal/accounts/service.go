package accounts

import "context"

// RepositoryPort defines data access methods the service needs.
type RepositoryPort interface {
	FindByID(ctx context.Context, id int64) (*Account, error)
	List(ctx context.Context, companyCode string) ([]Account, error)
	Deactivate(ctx context.Context, id int64) error
}

// Service handles account management logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns account summaries for a company.
func (s *Service) List(ctx context.Context, companyCode string) ([]Summary, error) {
	rows, err := s.repo.List(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, len(rows))
	for i := range rows {
		out[i] = Summarize(&rows[i])
	}
	return out, nil
}

// Get returns a single account.
func (s *Service) Get(ctx context.Context, id int64) (*Account, error) {
	return s.repo.FindByID(ctx, id)
}

// Deactivate disables an account without deleting it.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}
