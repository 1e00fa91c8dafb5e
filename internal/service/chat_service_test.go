package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picpal/chat-gemma/internal/core/prompt"
	"github.com/picpal/chat-gemma/internal/core/relay"
	"github.com/picpal/chat-gemma/internal/domain/audit"
	"github.com/picpal/chat-gemma/internal/domain/chat"
)

var errNotFound = errors.New("chat not found")

type fakeChatRepo struct {
	mu    sync.Mutex
	chats map[string]*chat.Chat
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{chats: make(map[string]*chat.Chat)}
}

func (r *fakeChatRepo) Create(_ context.Context, c *chat.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.chats[c.ID] = &cp
	return nil
}

func (r *fakeChatRepo) Update(_ context.Context, c *chat.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chats[c.ID]; !ok {
		return errNotFound
	}
	cp := *c
	r.chats[c.ID] = &cp
	return nil
}

func (r *fakeChatRepo) FindByIDAndUserID(_ context.Context, id, userID string) (*chat.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[id]
	if !ok || c.UserID != userID || c.Deleted {
		return nil, errNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeChatRepo) FindActiveByUserID(_ context.Context, userID string) ([]*chat.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*chat.Chat
	for _, c := range r.chats {
		if c.UserID == userID && !c.Deleted {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeChatRepo) SearchByTitle(_ context.Context, userID, keyword string) ([]*chat.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*chat.Chat
	for _, c := range r.chats {
		if c.UserID == userID && !c.Deleted && strings.Contains(c.Title, keyword) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*chat.Message
}

func (r *fakeMessageRepo) Create(_ context.Context, m *chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.messages = append(r.messages, &cp)
	return nil
}

func (r *fakeMessageRepo) FindByChatID(_ context.Context, chatID string) ([]*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*chat.Message
	for _, m := range r.messages {
		if m.ChatID == chatID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) SetExcludeFromContext(_ context.Context, id string, exclude bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			m.ExcludeFromContext = exclude
			return nil
		}
	}
	return errNotFound
}

func (r *fakeMessageRepo) CountByChatID(_ context.Context, chatID string) (int, error) {
	list, _ := r.FindByChatID(context.Background(), chatID)
	return len(list), nil
}

func (r *fakeMessageRepo) byRole(role chat.Role) []*chat.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*chat.Message
	for _, m := range r.messages {
		if m.Role == role {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []*audit.Log
}

func (r *fakeAuditRepo) Create(_ context.Context, l *audit.Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.logs = append(r.logs, &cp)
	return nil
}

func (r *fakeAuditRepo) FindAll(_ context.Context, limit, offset int) ([]*audit.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*audit.Log(nil), r.logs...), nil
}

func (r *fakeAuditRepo) FindByUserID(_ context.Context, userID string, limit, offset int) ([]*audit.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*audit.Log
	for _, l := range r.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) FindByAction(_ context.Context, action string, limit, offset int) ([]*audit.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*audit.Log
	for _, l := range r.logs {
		if l.Action == action {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, l := range r.logs {
		out = append(out, l.Action)
	}
	return out
}

type fakeGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (g *fakeGenerator) Generate(_ context.Context, p string) (string, error) {
	g.lastPrompt = p
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func (g *fakeGenerator) GenerateStream(ctx context.Context, p string, fn func(chunk string)) error {
	full, err := g.Generate(ctx, p)
	if err != nil {
		return err
	}
	chunker := ollamaChunks(full)
	for _, c := range chunker {
		fn(c)
	}
	return nil
}

// ollamaChunks mirrors word-plus-separator chunking without pacing
func ollamaChunks(text string) []string {
	words := strings.Fields(text)
	var out []string
	for i, w := range words {
		out = append(out, w)
		if i < len(words)-1 {
			out = append(out, " ")
		}
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

type testEnv struct {
	svc      *ChatService
	chats    *fakeChatRepo
	messages *fakeMessageRepo
	audits   *fakeAuditRepo
	gen      *fakeGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	chats := newFakeChatRepo()
	messages := &fakeMessageRepo{}
	audits := &fakeAuditRepo{}
	gen := &fakeGenerator{response: "네, 도와드리겠습니다"}

	svc := NewChatService(
		chats,
		messages,
		NewAuditService(audits, nopLogger{}),
		prompt.NewBuilder(),
		gen,
		nopLogger{},
	)
	return &testEnv{svc: svc, chats: chats, messages: messages, audits: audits, gen: gen}
}

func (e *testEnv) createChat(t *testing.T, userID, title string) *chat.Chat {
	t.Helper()
	c, err := e.svc.CreateChat(context.Background(), userID, title, RequestMeta{})
	require.NoError(t, err)
	return c
}

func TestCreateChatRecordsAudit(t *testing.T) {
	env := newTestEnv(t)

	c := env.createChat(t, "user-1", "첫 대화")

	assert.Equal(t, "user-1", c.UserID)
	assert.Contains(t, env.audits.actions(), audit.ActionCreateChat)

	list, err := env.svc.ListChats(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGetChatEnforcesOwnership(t *testing.T) {
	env := newTestEnv(t)
	c := env.createChat(t, "user-1", "비밀 대화")

	_, err := env.svc.GetChat(context.Background(), c.ID, "user-2")
	assert.Error(t, err)

	got, err := env.svc.GetChat(context.Background(), c.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
}

func TestDeleteChatHidesFromList(t *testing.T) {
	env := newTestEnv(t)
	c := env.createChat(t, "user-1", "지울 대화")

	require.NoError(t, env.svc.DeleteChat(context.Background(), c.ID, "user-1", RequestMeta{}))

	list, err := env.svc.ListChats(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = env.svc.GetChat(context.Background(), c.ID, "user-1")
	assert.Error(t, err)

	assert.Contains(t, env.audits.actions(), audit.ActionDeleteChat)
}

func TestUpdateTitle(t *testing.T) {
	env := newTestEnv(t)
	c := env.createChat(t, "user-1", "원래 제목")

	updated, err := env.svc.UpdateTitle(context.Background(), c.ID, "user-1", "새 제목", RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "새 제목", updated.Title)
	assert.Contains(t, env.audits.actions(), audit.ActionUpdateChat)
}

func TestSendMessagePersistsBothSides(t *testing.T) {
	env := newTestEnv(t)
	c := env.createChat(t, "user-1", "대화")

	userMsg, assistantMsg, err := env.svc.SendMessage(
		context.Background(), c.ID, "user-1", "안녕하세요", "", RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, chat.RoleUser, userMsg.Role)
	assert.Equal(t, "안녕하세요", userMsg.Content)
	assert.Equal(t, chat.RoleAssistant, assistantMsg.Role)
	assert.Equal(t, "네, 도와드리겠습니다", assistantMsg.Content)

	history, err := env.svc.Messages(context.Background(), c.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, chat.RoleUser, history[0].Role)
	assert.Equal(t, chat.RoleAssistant, history[1].Role)

	assert.Contains(t, env.audits.actions(), audit.ActionSendMessage)

	_, count, err := env.svc.GetChatDetail(context.Background(), c.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSendMessageKeepsUserMessageOnFailure(t *testing.T) {
	env := newTestEnv(t)
	env.gen.err = errors.New("connection refused")
	c := env.createChat(t, "user-1", "대화")

	userMsg, assistantMsg, err := env.svc.SendMessage(
		context.Background(), c.ID, "user-1", "안녕하세요", "", RequestMeta{})
	assert.Error(t, err)
	assert.Nil(t, assistantMsg)
	require.NotNil(t, userMsg)

	history, err := env.svc.Messages(context.Background(), c.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, chat.RoleUser, history[0].Role)

	assert.Contains(t, env.audits.actions(), audit.ActionAIError)
}

func TestSendMessageRejectsUnownedChat(t *testing.T) {
	env := newTestEnv(t)
	c := env.createChat(t, "user-1", "대화")

	_, _, err := env.svc.SendMessage(
		context.Background(), c.ID, "user-2", "안녕하세요", "", RequestMeta{})
	assert.Error(t, err)

	history, _ := env.messages.FindByChatID(context.Background(), c.ID)
	assert.Empty(t, history)
}

type eventCollector struct {
	mu     sync.Mutex
	events []relay.Event
	done   chan struct{}
	once   sync.Once
}

func newEventCollector() *eventCollector {
	return &eventCollector{done: make(chan struct{})}
}

func (c *eventCollector) Deliver(e relay.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
	if !e.IsStreaming {
		c.once.Do(func() { close(c.done) })
	}
}

func (c *eventCollector) wait(t *testing.T) []relay.Event {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for terminal event")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]relay.Event(nil), c.events...)
}

func TestStreamMessageDeliversAndPersists(t *testing.T) {
	env := newTestEnv(t)
	env.gen.response = "안녕하세요! 무엇을 도와드릴까요?"
	c := env.createChat(t, "user-1", "대화")

	collector := newEventCollector()
	session, err := env.svc.StreamMessage(
		context.Background(), c.ID, "user-1", "안녕", "", RequestMeta{}, collector)
	require.NoError(t, err)
	require.NotNil(t, session)

	events := collector.wait(t)
	require.NotEmpty(t, events)

	terminal := events[len(events)-1]
	assert.False(t, terminal.IsStreaming)
	assert.False(t, terminal.IsError)

	var full strings.Builder
	for _, e := range events[:len(events)-1] {
		assert.True(t, e.IsStreaming)
		full.WriteString(e.Content)
	}
	assert.Equal(t, "안녕하세요! 무엇을 도와드릴까요?", full.String())

	assert.Eventually(t, func() bool {
		replies := env.messages.byRole(chat.RoleAssistant)
		return len(replies) == 1 && replies[0].Content == "안녕하세요! 무엇을 도와드릴까요?"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStreamMessageFailureNeverPersistsReply(t *testing.T) {
	env := newTestEnv(t)
	env.gen.err = errors.New("dial tcp: connection refused")
	c := env.createChat(t, "user-1", "대화")

	collector := newEventCollector()
	_, err := env.svc.StreamMessage(
		context.Background(), c.ID, "user-1", "안녕", "", RequestMeta{}, collector)
	require.NoError(t, err)

	events := collector.wait(t)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsError)
	assert.NotContains(t, events[0].Content, "dial tcp")

	assert.Eventually(t, func() bool {
		actions := env.audits.actions()
		for _, a := range actions {
			if a == audit.ActionAIError {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	assert.Empty(t, env.messages.byRole(chat.RoleAssistant))
}

func TestStreamMessageResetSkipsHistory(t *testing.T) {
	env := newTestEnv(t)
	c := env.createChat(t, "user-1", "대화")

	_, _, err := env.svc.SendMessage(
		context.Background(), c.ID, "user-1", "이전 질문입니다", "", RequestMeta{})
	require.NoError(t, err)

	collector := newEventCollector()
	_, err = env.svc.StreamMessage(
		context.Background(), c.ID, "user-1", "새로운 대화 시작하고 싶어", "", RequestMeta{}, collector)
	require.NoError(t, err)
	collector.wait(t)

	// The reset request itself still joins the stored history.
	history, err := env.svc.Messages(context.Background(), c.ID, "user-1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(history), 3)
}

func TestExcludeMessageDropsItFromPrompts(t *testing.T) {
	env := newTestEnv(t)
	c := env.createChat(t, "user-1", "대화")

	userMsg, _, err := env.svc.SendMessage(
		context.Background(), c.ID, "user-1", "비밀번호는 hunter2입니다", "", RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, env.svc.ExcludeMessage(context.Background(), c.ID, "user-1", userMsg.ID))

	history, err := env.svc.Messages(context.Background(), c.ID, "user-1")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(history), 1)
	assert.True(t, history[0].ExcludeFromContext)

	_, _, err = env.svc.SendMessage(
		context.Background(), c.ID, "user-1", "방금 무슨 이야기를 했죠?", "", RequestMeta{})
	require.NoError(t, err)
	assert.NotContains(t, env.gen.lastPrompt, "hunter2")
}

func TestExcludeMessageRejectsForeignMessage(t *testing.T) {
	env := newTestEnv(t)
	mine := env.createChat(t, "user-1", "내 대화")
	other := env.createChat(t, "user-1", "다른 대화")

	userMsg, _, err := env.svc.SendMessage(
		context.Background(), other.ID, "user-1", "안녕하세요", "", RequestMeta{})
	require.NoError(t, err)

	err = env.svc.ExcludeMessage(context.Background(), mine.ID, "user-1", userMsg.ID)
	assert.ErrorIs(t, err, ErrMessageNotInChat)

	err = env.svc.ExcludeMessage(context.Background(), other.ID, "user-2", userMsg.ID)
	assert.ErrorIs(t, err, errNotFound)
}

func TestAuditServiceQueries(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(repo, nopLogger{})

	l, err := audit.NewLog("user-1", audit.ActionLoginSuccess, audit.ResourceUser, "user-1", "127.0.0.1", "test-agent")
	require.NoError(t, err)
	svc.Record(context.Background(), l)

	byUser, err := svc.LogsByUser(context.Background(), "user-1", 50, 0)
	require.NoError(t, err)
	assert.Len(t, byUser, 1)

	byAction, err := svc.LogsByAction(context.Background(), audit.ActionLoginSuccess, 50, 0)
	require.NoError(t, err)
	assert.Len(t, byAction, 1)

	none, err := svc.LogsByAction(context.Background(), audit.ActionLoginFailed, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
