package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/picpal/chat-gemma/internal/core/prompt"
	"github.com/picpal/chat-gemma/internal/core/relay"
	"github.com/picpal/chat-gemma/internal/domain/audit"
	"github.com/picpal/chat-gemma/internal/domain/chat"
	"github.com/picpal/chat-gemma/pkg/logger"
)

// persistTimeout bounds the write that happens after a stream finishes,
// when the request context may already be gone
const persistTimeout = 10 * time.Second

// ErrMessageNotInChat is returned when a message id does not belong to the chat
var ErrMessageNotInChat = errors.New("message does not belong to the chat")

// Generator produces completions for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string, fn func(chunk string)) error
}

// RequestMeta carries per-request fields recorded in the audit trail
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// ChatService orchestrates chat rooms, message persistence and inference
type ChatService struct {
	chats     chat.Repository
	messages  chat.MessageRepository
	audits    *AuditService
	builder   *prompt.Builder
	generator Generator
	log       logger.Logger
}

// NewChatService creates a new ChatService
func NewChatService(
	chats chat.Repository,
	messages chat.MessageRepository,
	audits *AuditService,
	builder *prompt.Builder,
	generator Generator,
	log logger.Logger,
) *ChatService {
	return &ChatService{
		chats:     chats,
		messages:  messages,
		audits:    audits,
		builder:   builder,
		generator: generator,
		log:       log,
	}
}

// CreateChat creates a chat room for the user
func (s *ChatService) CreateChat(ctx context.Context, userID, title string, meta RequestMeta) (*chat.Chat, error) {
	c, err := chat.NewChat(userID, title)
	if err != nil {
		return nil, err
	}

	if err := s.chats.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	s.recordAudit(ctx, userID, audit.ActionCreateChat, audit.ResourceChat, c.ID, meta, "")
	return c, nil
}

// ListChats returns the user's active chat rooms, most recent first
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]*chat.Chat, error) {
	return s.chats.FindActiveByUserID(ctx, userID)
}

// GetChat returns one chat room, enforcing ownership
func (s *ChatService) GetChat(ctx context.Context, chatID, userID string) (*chat.Chat, error) {
	return s.chats.FindByIDAndUserID(ctx, chatID, userID)
}

// GetChatDetail returns one chat room together with its stored message count
func (s *ChatService) GetChatDetail(ctx context.Context, chatID, userID string) (*chat.Chat, int, error) {
	c, err := s.chats.FindByIDAndUserID(ctx, chatID, userID)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.messages.CountByChatID(ctx, chatID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return c, count, nil
}

// SearchChats returns the user's active chat rooms whose title matches the keyword
func (s *ChatService) SearchChats(ctx context.Context, userID, keyword string) ([]*chat.Chat, error) {
	return s.chats.SearchByTitle(ctx, userID, keyword)
}

// UpdateTitle renames a chat room
func (s *ChatService) UpdateTitle(ctx context.Context, chatID, userID, title string, meta RequestMeta) (*chat.Chat, error) {
	c, err := s.chats.FindByIDAndUserID(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	if err := c.UpdateTitle(title); err != nil {
		return nil, err
	}
	if err := s.chats.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update chat: %w", err)
	}

	s.recordAudit(ctx, userID, audit.ActionUpdateChat, audit.ResourceChat, c.ID, meta, "")
	return c, nil
}

// DeleteChat soft-deletes a chat room. Its messages stay in storage.
func (s *ChatService) DeleteChat(ctx context.Context, chatID, userID string, meta RequestMeta) error {
	c, err := s.chats.FindByIDAndUserID(ctx, chatID, userID)
	if err != nil {
		return err
	}

	if err := c.SoftDelete(); err != nil {
		return err
	}
	if err := s.chats.Update(ctx, c); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	s.recordAudit(ctx, userID, audit.ActionDeleteChat, audit.ResourceChat, c.ID, meta, "")
	return nil
}

// Messages returns the full message history of a chat room, oldest first
func (s *ChatService) Messages(ctx context.Context, chatID, userID string) ([]*chat.Message, error) {
	if _, err := s.chats.FindByIDAndUserID(ctx, chatID, userID); err != nil {
		return nil, err
	}
	return s.messages.FindByChatID(ctx, chatID)
}

// ExcludeMessage hides one message from future prompt assembly. The message
// stays visible in the stored history.
func (s *ChatService) ExcludeMessage(ctx context.Context, chatID, userID, messageID string) error {
	if _, err := s.chats.FindByIDAndUserID(ctx, chatID, userID); err != nil {
		return err
	}

	messages, err := s.messages.FindByChatID(ctx, chatID)
	if err != nil {
		return err
	}

	for _, m := range messages {
		if m.ID == messageID {
			return s.messages.SetExcludeFromContext(ctx, messageID, true)
		}
	}
	return ErrMessageNotInChat
}

// SendMessage persists the user message, runs inference synchronously and
// persists the assistant reply. The user message survives even when
// inference fails.
func (s *ChatService) SendMessage(ctx context.Context, chatID, userID, content, imageURL string, meta RequestMeta) (*chat.Message, *chat.Message, error) {
	c, userMsg, built, err := s.prepareTurn(ctx, chatID, userID, content, imageURL)
	if err != nil {
		return nil, nil, err
	}

	response, err := s.generator.Generate(ctx, built)
	if err != nil {
		s.log.Error("inference failed", "chat_id", chatID, "error", err)
		s.recordAudit(ctx, userID, audit.ActionAIError, audit.ResourceChat, chatID, meta, err.Error())
		return userMsg, nil, err
	}

	assistantMsg, err := s.persistReply(ctx, c, response)
	if err != nil {
		return userMsg, nil, err
	}

	s.recordAudit(ctx, userID, audit.ActionSendMessage, audit.ResourceMessage, userMsg.ID, meta, "")
	return userMsg, assistantMsg, nil
}

// StreamMessage persists the user message, then runs inference in the
// background and relays chunks through the returned session. The assistant
// reply is persisted only after the stream completes.
func (s *ChatService) StreamMessage(ctx context.Context, chatID, userID, content, imageURL string, meta RequestMeta, sub relay.Subscriber) (*relay.Session, error) {
	c, userMsg, built, err := s.prepareTurn(ctx, chatID, userID, content, imageURL)
	if err != nil {
		return nil, err
	}

	session := relay.NewSession(chatID, sub)
	session.OnComplete = func(full string) {
		pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if _, err := s.persistReply(pctx, c, full); err != nil {
			s.log.Error("failed to persist assistant reply", "chat_id", c.ID, "error", err)
			return
		}
		s.recordAudit(pctx, userID, audit.ActionSendMessage, audit.ResourceMessage, userMsg.ID, meta, "")
	}

	go func() {
		if err := s.generator.GenerateStream(ctx, built, session.Send); err != nil {
			s.log.Error("inference stream failed", "chat_id", chatID, "error", err)
			session.Fail(err)

			pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			s.recordAudit(pctx, userID, audit.ActionAIError, audit.ResourceChat, chatID, meta, err.Error())
			return
		}
		session.Complete()
	}()

	return session, nil
}

// prepareTurn validates ownership, builds the prompt from prior history and
// persists the incoming user message
func (s *ChatService) prepareTurn(ctx context.Context, chatID, userID, content, imageURL string) (*chat.Chat, *chat.Message, string, error) {
	c, err := s.chats.FindByIDAndUserID(ctx, chatID, userID)
	if err != nil {
		return nil, nil, "", err
	}

	history, err := s.messages.FindByChatID(ctx, chatID)
	if err != nil {
		return nil, nil, "", err
	}

	built, err := s.builder.Build(content, imageURL, history)
	if err != nil {
		return nil, nil, "", err
	}

	var userMsg *chat.Message
	if imageURL != "" {
		userMsg, err = chat.NewUserMessageWithImage(chatID, content, imageURL)
	} else {
		userMsg, err = chat.NewUserMessage(chatID, content)
	}
	if err != nil {
		return nil, nil, "", err
	}

	if err := s.messages.Create(ctx, userMsg); err != nil {
		return nil, nil, "", fmt.Errorf("failed to persist user message: %w", err)
	}

	return c, userMsg, built, nil
}

// persistReply stores the assistant message and bumps the chat's recency.
// Replies longer than the storage cap are truncated rather than dropped.
func (s *ChatService) persistReply(ctx context.Context, c *chat.Chat, content string) (*chat.Message, error) {
	if runes := []rune(content); len(runes) > chat.MaxContentLength {
		content = string(runes[:chat.MaxContentLength])
	}

	assistantMsg, err := chat.NewAssistantMessage(c.ID, content)
	if err != nil {
		return nil, err
	}
	if err := s.messages.Create(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to persist assistant message: %w", err)
	}

	c.Touch()
	if err := s.chats.Update(ctx, c); err != nil {
		s.log.Warn("failed to bump chat recency", "chat_id", c.ID, "error", err)
	}

	return assistantMsg, nil
}

func (s *ChatService) recordAudit(ctx context.Context, userID, action, resourceType, resourceID string, meta RequestMeta, details string) {
	l, err := audit.NewLogWithDetails(userID, action, resourceType, resourceID, meta.IPAddress, meta.UserAgent, details)
	if err != nil {
		s.log.Warn("failed to build audit log", "action", action, "error", err)
		return
	}
	s.audits.Record(ctx, l)
}
