// Package relay delivers model response chunks to a subscriber in order,
// with exactly one terminal event per session.
package relay

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/picpal/chat-gemma/internal/core/ollama"
)

// State of a streaming session
type State int

// Session states. Completed and Failed are terminal.
const (
	StateOpen State = iota
	StateStreaming
	StateCompleted
	StateFailed
)

// Event roles
const (
	RoleAssistant = "ASSISTANT"
	RoleSystem    = "SYSTEM"
)

// User-facing error messages. Internal causes stay in the logs.
const (
	msgTimeout     = "응답 시간이 초과되었습니다. 잠시 후 다시 시도해주세요."
	msgUnavailable = "AI 서비스에 연결할 수 없습니다. 잠시 후 다시 시도해주세요."
	msgUnknown     = "오류가 발생했습니다. 잠시 후 다시 시도해주세요."
)

// Event is one fragment of a streamed response, or its terminal signal
type Event struct {
	ID          string    `json:"id"`
	ChatID      string    `json:"chat_id"`
	Content     string    `json:"content"`
	Role        string    `json:"role"`
	Timestamp   time.Time `json:"timestamp"`
	IsStreaming bool      `json:"is_streaming"`
	IsError     bool      `json:"is_error,omitempty"`
}

// Subscriber receives session events in delivery order
type Subscriber interface {
	Deliver(Event)
}

// SubscriberFunc adapts a function to the Subscriber interface
type SubscriberFunc func(Event)

// Deliver implements Subscriber
func (f SubscriberFunc) Deliver(e Event) { f(e) }

// Session relays chunks for one in-flight model response. Chunk delivery is
// strictly sequential; once a terminal state is reached, further signals are
// dropped.
type Session struct {
	id     string
	chatID string
	sub    Subscriber

	// OnComplete is invoked with the full accumulated response after the
	// completion event has been delivered. Never invoked on failure.
	OnComplete func(full string)

	mu       sync.Mutex
	state    State
	response strings.Builder
}

// NewSession creates a session for the given chat addressed to sub
func NewSession(chatID string, sub Subscriber) *Session {
	return &Session{
		id:     uuid.New().String(),
		chatID: chatID,
		sub:    sub,
		state:  StateOpen,
	}
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// State returns the current session state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Response returns the accumulated response so far
func (s *Session) Response() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.response.String()
}

// Send forwards one chunk to the subscriber. Chunks arriving after a terminal
// state are dropped.
func (s *Session) Send(chunk string) {
	s.mu.Lock()
	if s.state == StateCompleted || s.state == StateFailed {
		s.mu.Unlock()
		return
	}
	s.state = StateStreaming
	s.response.WriteString(chunk)
	s.mu.Unlock()

	s.sub.Deliver(Event{
		ID:          s.id,
		ChatID:      s.chatID,
		Content:     chunk,
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	})
}

// Complete emits the terminal completion event and invokes OnComplete with
// the full response. Duplicate terminal signals are suppressed.
func (s *Session) Complete() {
	s.mu.Lock()
	if s.state == StateCompleted || s.state == StateFailed {
		s.mu.Unlock()
		return
	}
	s.state = StateCompleted
	full := s.response.String()
	s.mu.Unlock()

	s.sub.Deliver(Event{
		ID:          s.id,
		ChatID:      s.chatID,
		Content:     "",
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: false,
	})

	if s.OnComplete != nil {
		s.OnComplete(full)
	}
}

// Fail emits the terminal error event with a catalog message for err.
// Duplicate terminal signals are suppressed; the partial response is discarded.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	if s.state == StateCompleted || s.state == StateFailed {
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.mu.Unlock()

	s.sub.Deliver(Event{
		ID:        s.id,
		ChatID:    s.chatID,
		Content:   userFacingMessage(err),
		Role:      RoleSystem,
		Timestamp: time.Now(),
		IsError:   true,
	})
}

// userFacingMessage maps an internal error to a fixed catalog message.
// Raw error text is never forwarded to subscribers.
func userFacingMessage(err error) string {
	switch {
	case ollama.IsTimeout(err):
		return msgTimeout
	case ollama.IsUnavailable(err):
		return msgUnavailable
	default:
		return msgUnknown
	}
}
