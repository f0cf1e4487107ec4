package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/shared"
)

const accountColumns = `id, code, email, name, password_hash, role, is_active, is_verified,
	is_online, last_connection, reset_token, reset_token_expiry, verification_token,
	company_code, application_code, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) findBy(ctx context.Context, where string, arg any) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg)
	var a Account
	err := row.Scan(
		&a.ID, &a.Code, &a.Email, &a.Name, &a.PasswordHash, &a.Role, &a.IsActive, &a.IsVerified,
		&a.IsOnline, &a.LastConnection, &a.ResetToken, &a.ResetTokenExpiry, &a.VerificationToken,
		&a.CompanyCode, &a.ApplicationCode, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindByID fetches an account by primary key.
func (r *Repository) FindByID(ctx context.Context, id int64) (*Account, error) {
	return r.findBy(ctx, `id = $1`, id)
}

// FindByCode fetches an account by its login code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*Account, error) {
	return r.findBy(ctx, `code = $1`, code)
}

// FindByEmail fetches an account by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return r.findBy(ctx, `email = $1`, email)
}

// FindByResetToken fetches the account holding the given one-time reset token.
func (r *Repository) FindByResetToken(ctx context.Context, token string) (*Account, error) {
	return r.findBy(ctx, `reset_token = $1`, token)
}

// FindByVerificationToken fetches the account holding the given verification token.
func (r *Repository) FindByVerificationToken(ctx context.Context, token string) (*Account, error) {
	return r.findBy(ctx, `verification_token = $1`, token)
}

// Create inserts a new account. Unique violations on code or email surface
// as shared.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, a *Account) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (code, email, name, password_hash, role, is_active, is_verified,
			verification_token, company_code, application_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		a.Code, a.Email, a.Name, a.PasswordHash, a.Role, a.IsActive, a.IsVerified,
		a.VerificationToken, a.CompanyCode, a.ApplicationCode,
	)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrDuplicate
		}
		return nil, err
	}
	return a, nil
}

// List returns accounts for a company ordered by id.
func (r *Repository) List(ctx context.Context, companyCode string) ([]Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE company_code = $1 ORDER BY id`, companyCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(
			&a.ID, &a.Code, &a.Email, &a.Name, &a.PasswordHash, &a.Role, &a.IsActive, &a.IsVerified,
			&a.IsOnline, &a.LastConnection, &a.ResetToken, &a.ResetTokenExpiry, &a.VerificationToken,
			&a.CompanyCode, &a.ApplicationCode, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdatePassword replaces the stored hash and clears any one-time reset token.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET password_hash = $2, reset_token = NULL, reset_token_expiry = NULL, updated_at = now()
		WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdatePresence records the online flag and last connection timestamp.
// Last-write-wins; the store serializes per-row writes.
func (r *Repository) UpdatePresence(ctx context.Context, id int64, online bool, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE accounts SET is_online = $2, last_connection = $3, updated_at = now()
		WHERE id = $1`, id, online, at)
	return err
}

// SetResetToken stores a one-time password reset token with its expiry.
func (r *Repository) SetResetToken(ctx context.Context, id int64, token string, expiry time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET reset_token = $2, reset_token_expiry = $3, updated_at = now()
		WHERE id = $1`, id, token, expiry)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetVerified marks the account verified and clears the verification token.
func (r *Repository) SetVerified(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET is_verified = TRUE, verification_token = NULL, updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Deactivate clears the active flag. Accounts are never deleted.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET is_active = FALSE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
