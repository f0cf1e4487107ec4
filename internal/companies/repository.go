package companies

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/shared"
)

// Repository persists companies in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const companyColumns = `id, code, name, is_active, created_at, updated_at`

func scanCompany(row pgx.Row) (*Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByCode fetches a company by its tenant code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*Company, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE code = $1`, code)
	return scanCompany(row)
}

// List returns all companies ordered by code.
func (r *Repository) List(ctx context.Context) ([]Company, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// Create inserts a company.
func (r *Repository) Create(ctx context.Context, c *Company) (*Company, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO companies (code, name, is_active)
		VALUES ($1, $2, TRUE)
		RETURNING `+companyColumns,
		c.Code, c.Name,
	)
	created, err := scanCompany(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrDuplicate
		}
		return nil, err
	}
	return created, nil
}

// Update renames a company.
func (r *Repository) Update(ctx context.Context, code, name string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE companies SET name = $2, updated_at = NOW() WHERE code = $1`, code, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetActive toggles a company's active flag.
func (r *Repository) SetActive(ctx context.Context, code string, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE companies SET is_active = $2, updated_at = NOW() WHERE code = $1`, code, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
