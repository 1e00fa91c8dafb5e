package chat

import "context"

// Repository defines the persistence operations for chats
type Repository interface {
	Create(ctx context.Context, c *Chat) error
	Update(ctx context.Context, c *Chat) error
	FindByIDAndUserID(ctx context.Context, id, userID string) (*Chat, error)
	FindActiveByUserID(ctx context.Context, userID string) ([]*Chat, error)
	SearchByTitle(ctx context.Context, userID, keyword string) ([]*Chat, error)
}

// MessageRepository defines the persistence operations for messages
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	// FindByChatID returns the chat's messages ordered by creation time ascending.
	FindByChatID(ctx context.Context, chatID string) ([]*Message, error)
	SetExcludeFromContext(ctx context.Context, id string, exclude bool) error
	CountByChatID(ctx context.Context, chatID string) (int, error)
}
