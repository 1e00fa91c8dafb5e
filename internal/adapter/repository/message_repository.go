package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/picpal/chat-gemma/internal/domain/chat"
)

// ErrMessageNotFound is returned when a message does not exist
var ErrMessageNotFound = errors.New("message not found")

// MessageRepository implements chat.MessageRepository using PostgreSQL
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *pgxpool.Pool) chat.MessageRepository {
	return &MessageRepository{db: db}
}

// Create implements chat.MessageRepository.Create
func (r *MessageRepository) Create(ctx context.Context, m *chat.Message) error {
	query := `
		INSERT INTO messages (id, chat_id, role, content, image_url, created_at, exclude_from_context)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		m.ID,
		m.ChatID,
		string(m.Role),
		m.Content,
		nullableString(m.ImageURL),
		m.CreatedAt,
		m.ExcludeFromContext,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

// FindByChatID implements chat.MessageRepository.FindByChatID
func (r *MessageRepository) FindByChatID(ctx context.Context, chatID string) ([]*chat.Message, error) {
	query := `
		SELECT id, chat_id, role, content, image_url, created_at, exclude_from_context
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*chat.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	return messages, nil
}

// SetExcludeFromContext implements chat.MessageRepository.SetExcludeFromContext
func (r *MessageRepository) SetExcludeFromContext(ctx context.Context, id string, exclude bool) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE messages SET exclude_from_context = $2 WHERE id = $1", id, exclude)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// CountByChatID implements chat.MessageRepository.CountByChatID
func (r *MessageRepository) CountByChatID(ctx context.Context, chatID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM messages WHERE chat_id = $1", chatID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func scanMessage(row pgx.Row) (*chat.Message, error) {
	m := &chat.Message{}
	var role string
	var imageURL pgtype.Text

	err := row.Scan(
		&m.ID,
		&m.ChatID,
		&role,
		&m.Content,
		&imageURL,
		&m.CreatedAt,
		&m.ExcludeFromContext,
	)
	if err != nil {
		return nil, err
	}

	m.Role = chat.Role(role)
	if imageURL.Valid {
		m.ImageURL = imageURL.String
	}

	return m, nil
}
