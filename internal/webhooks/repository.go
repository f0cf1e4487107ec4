package webhooks

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/shared"
)

// Repository persists webhook configurations in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const webhookColumns = `id, company_code, url, events, secret, is_active, created_at, updated_at`

func scanWebhook(row pgx.Row) (*Webhook, error) {
	var wh Webhook
	err := row.Scan(&wh.ID, &wh.CompanyCode, &wh.URL, &wh.Events, &wh.Secret, &wh.IsActive, &wh.CreatedAt, &wh.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &wh, nil
}

// Get fetches a webhook by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Webhook, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+webhookColumns+` FROM webhooks WHERE id = $1`, id)
	return scanWebhook(row)
}

// ListForCompany lists a tenant's webhooks.
func (r *Repository) ListForCompany(ctx context.Context, companyCode string) ([]Webhook, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+webhookColumns+` FROM webhooks WHERE company_code = $1 ORDER BY id`, companyCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Webhook
	for rows.Next() {
		var wh Webhook
		if err := rows.Scan(&wh.ID, &wh.CompanyCode, &wh.URL, &wh.Events, &wh.Secret, &wh.IsActive, &wh.CreatedAt, &wh.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, wh)
	}
	return items, rows.Err()
}

// Create inserts a webhook.
func (r *Repository) Create(ctx context.Context, wh *Webhook) (*Webhook, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO webhooks (company_code, url, events, secret, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING `+webhookColumns,
		wh.CompanyCode, wh.URL, wh.Events, wh.Secret,
	)
	return scanWebhook(row)
}

// Update replaces a webhook's URL and event list.
func (r *Repository) Update(ctx context.Context, id int64, url string, events []string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhooks SET url = $2, events = $3, updated_at = NOW() WHERE id = $1`,
		id, url, events)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetActive toggles a webhook.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhooks SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a webhook.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
