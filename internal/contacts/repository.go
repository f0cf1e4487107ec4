package contacts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/shared"
)

// Repository persists contact relationships in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const relationshipColumns = `id, requester_id, target_id, status, company_code, requested_at, responded_at`

func scanRelationship(row pgx.Row) (*Relationship, error) {
	var rel Relationship
	err := row.Scan(&rel.ID, &rel.RequesterID, &rel.TargetID, &rel.Status, &rel.CompanyCode, &rel.RequestedAt, &rel.RespondedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rel, nil
}

// Get fetches a relationship by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Relationship, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+relationshipColumns+` FROM contact_relationships WHERE id = $1`, id)
	return scanRelationship(row)
}

// GetPair fetches the relationship between two accounts in either direction.
func (r *Repository) GetPair(ctx context.Context, accountID, otherID int64) (*Relationship, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+relationshipColumns+`
		FROM contact_relationships
		WHERE (requester_id = $1 AND target_id = $2)
		   OR (requester_id = $2 AND target_id = $1)`,
		accountID, otherID,
	)
	return scanRelationship(row)
}

// PairStatus reports the status between two accounts, or "" when no
// relationship exists. The authorization resolver reads through this.
func (r *Repository) PairStatus(ctx context.Context, accountID, otherID int64) (string, error) {
	rel, err := r.GetPair(ctx, accountID, otherID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return rel.Status, nil
}

// Create inserts a relationship row.
func (r *Repository) Create(ctx context.Context, rel *Relationship) (*Relationship, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO contact_relationships (requester_id, target_id, status, company_code)
		VALUES ($1, $2, $3, $4)
		RETURNING `+relationshipColumns,
		rel.RequesterID, rel.TargetID, rel.Status, rel.CompanyCode,
	)
	created, err := scanRelationship(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrDuplicate
		}
		return nil, err
	}
	return created, nil
}

// UpdateStatus transitions a relationship and stamps the response time.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status string, respondedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contact_relationships
		SET status = $2, responded_at = $3
		WHERE id = $1`,
		id, status, respondedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Reset rewrites a relationship's direction and status, restarting it.
// Reopening a rejected pair and blocking an existing pair both go through
// here so the row always records who initiated the current state.
func (r *Repository) Reset(ctx context.Context, id, requesterID, targetID int64, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contact_relationships
		SET requester_id = $2, target_id = $3, status = $4, requested_at = NOW(), responded_at = NULL
		WHERE id = $1`,
		id, requesterID, targetID, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a relationship row entirely.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contact_relationships WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListForAccount lists relationships involving the account.
func (r *Repository) ListForAccount(ctx context.Context, accountID int64) ([]Relationship, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+relationshipColumns+`
		FROM contact_relationships
		WHERE requester_id = $1 OR target_id = $1
		ORDER BY requested_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Relationship
	for rows.Next() {
		var rel Relationship
		if err := rows.Scan(&rel.ID, &rel.RequesterID, &rel.TargetID, &rel.Status, &rel.CompanyCode, &rel.RequestedAt, &rel.RespondedAt); err != nil {
			return nil, err
		}
		items = append(items, rel)
	}
	return items, rows.Err()
}
