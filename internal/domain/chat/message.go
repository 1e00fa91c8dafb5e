package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message
type Role string

// Role constants
const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
)

// Message represents one entry of a chat's history. A message is immutable
// after creation except for the ExcludeFromContext flag.
type Message struct {
	ID                 string    `json:"id"`
	ChatID             string    `json:"chat_id"`
	Role               Role      `json:"role"`
	Content            string    `json:"content"`
	ImageURL           string    `json:"image_url,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	ExcludeFromContext bool      `json:"exclude_from_context"`
}

// NewUserMessage creates a message authored by the chat's owner
func NewUserMessage(chatID, content string) (*Message, error) {
	return newMessage(chatID, RoleUser, content, "")
}

// NewUserMessageWithImage creates a user message carrying an image reference
func NewUserMessageWithImage(chatID, content, imageURL string) (*Message, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, ErrImageURLEmpty
	}
	return newMessage(chatID, RoleUser, content, imageURL)
}

// NewAssistantMessage creates a message holding a model response
func NewAssistantMessage(chatID, content string) (*Message, error) {
	return newMessage(chatID, RoleAssistant, content, "")
}

func newMessage(chatID string, role Role, content, imageURL string) (*Message, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, ErrChatIDRequired
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentRequired
	}
	if len([]rune(content)) > MaxContentLength {
		return nil, ErrContentTooLong
	}

	return &Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		ImageURL:  imageURL,
		CreatedAt: time.Now(),
	}, nil
}

// HasImage verifies whether the message carries an image reference
func (m *Message) HasImage() bool {
	return m.ImageURL != ""
}

// Exclude hides the message from future prompt assembly without deleting it
func (m *Message) Exclude() {
	m.ExcludeFromContext = true
}
