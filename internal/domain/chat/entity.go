package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Limits imposed on user-supplied content
const (
	MaxTitleLength   = 100
	MaxContentLength = 10000
)

// Validation errors
var (
	ErrChatIDRequired  = errors.New("chat id is required")
	ErrUserIDRequired  = errors.New("user id is required")
	ErrTitleRequired   = errors.New("chat title is required")
	ErrTitleTooLong    = errors.New("chat title exceeds 100 characters")
	ErrContentRequired = errors.New("message content is required")
	ErrContentTooLong  = errors.New("message content exceeds 10000 characters")
	ErrImageURLEmpty   = errors.New("image url must not be empty")
	ErrChatDeleted     = errors.New("chat has been deleted")
)

// Chat represents a conversation owned by a user
type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Deleted   bool      `json:"deleted"`
}

// NewChat creates a chat for the given user
func NewChat(userID, title string) (*Chat, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserIDRequired
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Chat{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateTitle renames the chat and bumps UpdatedAt
func (c *Chat) UpdateTitle(title string) error {
	if c.Deleted {
		return ErrChatDeleted
	}
	if err := validateTitle(title); err != nil {
		return err
	}
	c.Title = title
	c.UpdatedAt = time.Now()
	return nil
}

// SoftDelete marks the chat as deleted. The flag is one-way.
func (c *Chat) SoftDelete() error {
	if c.Deleted {
		return ErrChatDeleted
	}
	c.Deleted = true
	c.UpdatedAt = time.Now()
	return nil
}

// Touch bumps UpdatedAt so the chat sorts to the top of recent lists
func (c *Chat) Touch() {
	c.UpdatedAt = time.Now()
}

// IsActive verifies whether the chat is still visible to its owner
func (c *Chat) IsActive() bool {
	return !c.Deleted
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}
	if len([]rune(title)) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}
