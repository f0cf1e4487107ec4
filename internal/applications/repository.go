package applications

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/shared"
)

const registrationColumns = `id, company_code, code, name, access_token, secret_token,
	is_active, expires_at, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for application registrations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) findBy(ctx context.Context, where string, arg any) (*Registration, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+registrationColumns+` FROM applications WHERE `+where, arg)
	var reg Registration
	err := row.Scan(
		&reg.ID, &reg.CompanyCode, &reg.Code, &reg.Name, &reg.AccessToken, &reg.SecretToken,
		&reg.IsActive, &reg.ExpiresAt, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// FindByCode fetches a registration by application code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*Registration, error) {
	return r.findBy(ctx, `code = $1`, code)
}

// FindByAccessToken fetches a registration by its access token.
func (r *Repository) FindByAccessToken(ctx context.Context, token string) (*Registration, error) {
	return r.findBy(ctx, `access_token = $1`, token)
}

// Create inserts a new registration.
func (r *Repository) Create(ctx context.Context, reg *Registration) (*Registration, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO applications (company_code, code, name, access_token, secret_token, is_active, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		reg.CompanyCode, reg.Code, reg.Name, reg.AccessToken, reg.SecretToken, reg.IsActive, reg.ExpiresAt,
	)
	if err := row.Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrDuplicate
		}
		return nil, err
	}
	return reg, nil
}

// List returns registrations for a company ordered by code.
func (r *Repository) List(ctx context.Context, companyCode string) ([]Registration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+registrationColumns+` FROM applications WHERE company_code = $1 ORDER BY code`, companyCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Registration
	for rows.Next() {
		var reg Registration
		if err := rows.Scan(
			&reg.ID, &reg.CompanyCode, &reg.Code, &reg.Name, &reg.AccessToken, &reg.SecretToken,
			&reg.IsActive, &reg.ExpiresAt, &reg.CreatedAt, &reg.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

// UpdateTokens replaces both tokens and the expiration for an application.
func (r *Repository) UpdateTokens(ctx context.Context, code, accessToken, secretToken string, expiresAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE applications
		SET access_token = $2, secret_token = $3, expires_at = $4, is_active = TRUE, updated_at = now()
		WHERE code = $1`, code, accessToken, secretToken, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetActive toggles the registration's active flag.
func (r *Repository) SetActive(ctx context.Context, code string, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE applications SET is_active = $2, updated_at = now() WHERE code = $1`, code, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
