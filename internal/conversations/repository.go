package conversations

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/platform/db"
	"github.com/parley-chat/parley/internal/shared"
)

// Repository persists conversations and their participants in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const conversationColumns = `id, title, creator_id, company_code, application_code, is_active, created_at, updated_at`

func scanConversation(row pgx.Row) (*Conversation, error) {
	var c Conversation
	err := row.Scan(&c.ID, &c.Title, &c.CreatorID, &c.CompanyCode, &c.ApplicationCode, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Get fetches a conversation by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Conversation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	return scanConversation(row)
}

// CreatorOf returns the creator account id of a conversation.
func (r *Repository) CreatorOf(ctx context.Context, id int64) (int64, error) {
	var creatorID int64
	err := r.pool.QueryRow(ctx, `SELECT creator_id FROM conversations WHERE id = $1`, id).Scan(&creatorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return creatorID, nil
}

// Create inserts a conversation and enrolls the creator as its first
// participant in one transaction.
func (r *Repository) Create(ctx context.Context, c *Conversation) (*Conversation, error) {
	var created *Conversation
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO conversations (title, creator_id, company_code, application_code, is_active)
			VALUES ($1, $2, $3, $4, TRUE)
			RETURNING `+conversationColumns,
			c.Title, c.CreatorID, c.CompanyCode, c.ApplicationCode,
		)
		var err error
		created, err = scanConversation(row)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO conversation_participants (conversation_id, account_id)
			VALUES ($1, $2)`,
			created.ID, c.CreatorID,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AddParticipant enrolls an account. Adding an existing participant is a no-op.
func (r *Repository) AddParticipant(ctx context.Context, conversationID, accountID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversation_participants (conversation_id, account_id)
		VALUES ($1, $2)
		ON CONFLICT (conversation_id, account_id) DO NOTHING`,
		conversationID, accountID,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return shared.ErrNotFound
	}
	return err
}

// RemoveParticipant removes an account from a conversation.
func (r *Repository) RemoveParticipant(ctx context.Context, conversationID, accountID int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM conversation_participants
		WHERE conversation_id = $1 AND account_id = $2`,
		conversationID, accountID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// IsParticipant reports whether the account belongs to the conversation.
func (r *Repository) IsParticipant(ctx context.Context, conversationID, accountID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = $1 AND account_id = $2
		)`,
		conversationID, accountID,
	).Scan(&exists)
	return exists, err
}

// Participants lists the members of a conversation.
func (r *Repository) Participants(ctx context.Context, conversationID int64) ([]Participant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT conversation_id, account_id, joined_at
		FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY joined_at`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ConversationID, &p.AccountID, &p.JoinedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// ListForAccount lists active conversations the account participates in.
func (r *Repository) ListForAccount(ctx context.Context, accountID int64) ([]Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.title, c.creator_id, c.company_code, c.application_code, c.is_active, c.created_at, c.updated_at
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id
		WHERE p.account_id = $1 AND c.is_active
		ORDER BY c.updated_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatorID, &c.CompanyCode, &c.ApplicationCode, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// Deactivate soft-deletes a conversation.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE conversations SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
