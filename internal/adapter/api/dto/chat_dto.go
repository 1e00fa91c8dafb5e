package dto

import (
	"time"

	"github.com/picpal/chat-gemma/internal/domain/chat"
)

// CreateChatRequest holds the payload for creating a chat room
type CreateChatRequest struct {
	Title string `json:"title" binding:"required,max=100"`
}

// UpdateChatRequest holds the payload for renaming a chat room
type UpdateChatRequest struct {
	Title string `json:"title" binding:"required,max=100"`
}

// SendMessageRequest holds the payload for sending a message
type SendMessageRequest struct {
	Content  string `json:"content" binding:"required,min=1,max=5000"`
	ImageURL string `json:"image_url,omitempty" binding:"omitempty,max=500"`
}

// ChatResponse is the public view of a chat room
type ChatResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageResponse is the public view of a message
type MessageResponse struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatDetailResponse adds the stored message count to the chat room view
type ChatDetailResponse struct {
	ChatResponse
	MessageCount int `json:"message_count"`
}

// SendMessageResponse pairs the persisted user message with the assistant reply
type SendMessageResponse struct {
	UserMessage      MessageResponse `json:"user_message"`
	AssistantMessage MessageResponse `json:"assistant_message"`
}

// ToChatResponse maps a chat entity to its public view
func ToChatResponse(c *chat.Chat) ChatResponse {
	return ChatResponse{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ToChatDetailResponse maps a chat entity and its message count to the detail view
func ToChatDetailResponse(c *chat.Chat, messageCount int) ChatDetailResponse {
	return ChatDetailResponse{
		ChatResponse: ToChatResponse(c),
		MessageCount: messageCount,
	}
}

// ToChatResponseList maps a slice of chat entities to their public views
func ToChatResponseList(chats []*chat.Chat) []ChatResponse {
	responses := make([]ChatResponse, 0, len(chats))
	for _, c := range chats {
		responses = append(responses, ToChatResponse(c))
	}
	return responses
}

// ToMessageResponse maps a message entity to its public view
func ToMessageResponse(m *chat.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Role:      string(m.Role),
		Content:   m.Content,
		ImageURL:  m.ImageURL,
		CreatedAt: m.CreatedAt,
	}
}

// ToMessageResponseList maps a slice of message entities to their public views
func ToMessageResponseList(messages []*chat.Message) []MessageResponse {
	responses := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, ToMessageResponse(m))
	}
	return responses
}
