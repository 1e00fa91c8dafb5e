package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/picpal/chat-gemma/internal/domain/chat"
)

// ErrChatNotFound is returned when a chat does not exist or belongs to another user
var ErrChatNotFound = errors.New("chat not found")

// ChatRepository implements chat.Repository using PostgreSQL
type ChatRepository struct {
	db *pgxpool.Pool
}

// NewChatRepository creates a new ChatRepository
func NewChatRepository(db *pgxpool.Pool) chat.Repository {
	return &ChatRepository{db: db}
}

// Create implements chat.Repository.Create
func (r *ChatRepository) Create(ctx context.Context, c *chat.Chat) error {
	query := `
		INSERT INTO chats (id, user_id, title, created_at, updated_at, deleted)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		c.ID,
		c.UserID,
		c.Title,
		c.CreatedAt,
		c.UpdatedAt,
		c.Deleted,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat: %w", err)
	}

	return nil
}

// Update implements chat.Repository.Update
func (r *ChatRepository) Update(ctx context.Context, c *chat.Chat) error {
	query := `
		UPDATE chats
		SET title = $2, updated_at = $3, deleted = $4
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, c.ID, c.Title, c.UpdatedAt, c.Deleted)
	if err != nil {
		return fmt.Errorf("failed to update chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrChatNotFound
	}

	return nil
}

// FindByIDAndUserID implements chat.Repository.FindByIDAndUserID
func (r *ChatRepository) FindByIDAndUserID(ctx context.Context, id, userID string) (*chat.Chat, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at, deleted
		FROM chats
		WHERE id = $1 AND user_id = $2 AND deleted = FALSE
	`

	c, err := scanChat(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to query chat: %w", err)
	}

	return c, nil
}

// FindActiveByUserID implements chat.Repository.FindActiveByUserID
func (r *ChatRepository) FindActiveByUserID(ctx context.Context, userID string) ([]*chat.Chat, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at, deleted
		FROM chats
		WHERE user_id = $1 AND deleted = FALSE
		ORDER BY updated_at DESC
	`

	return r.queryChats(ctx, query, userID)
}

// SearchByTitle implements chat.Repository.SearchByTitle
func (r *ChatRepository) SearchByTitle(ctx context.Context, userID, keyword string) ([]*chat.Chat, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at, deleted
		FROM chats
		WHERE user_id = $1 AND deleted = FALSE AND title ILIKE $2
		ORDER BY updated_at DESC
	`

	return r.queryChats(ctx, query, userID, "%"+keyword+"%")
}

func (r *ChatRepository) queryChats(ctx context.Context, query string, args ...any) ([]*chat.Chat, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var chats []*chat.Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chats: %w", err)
	}

	return chats, nil
}

func scanChat(row pgx.Row) (*chat.Chat, error) {
	c := &chat.Chat{}
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Title,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.Deleted,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}
