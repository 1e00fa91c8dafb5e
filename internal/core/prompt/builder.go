package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/picpal/chat-gemma/internal/domain/chat"
)

// Defaults for the context window budget. The target model has a 32,000-token
// window; history may consume at most 80% of it.
const (
	DefaultBudgetTokens = 25600
	DefaultMaxMessages  = 70

	historyClipLength = 200
)

// ErrEmptyMessage is returned when the current message is blank
var ErrEmptyMessage = errors.New("message is required")

// DefaultResetKeywords are the phrases that trigger a conversation reset
var DefaultResetKeywords = []string{
	"이전 대화 잊어버려", "이전 대화 잊어", "대화 잊어버려",
	"대화 내용 초기화", "대화 초기화", "컨텍스트 초기화",
	"새로 시작해", "새로 시작하자", "처음부터 시작",
	"리셋", "reset", "clear",
	"기억 지워", "기억 삭제", "잊어버려",
	"대화 지워", "히스토리 삭제", "이전 내용 삭제",
}

const systemPreamble = `=== Gemma 3n AI 어시스턴트 지침 ===
모델: Google Gemma 3n (효율적 온디바이스 멀티모달 모델)
역할: 친근하고 도움이 되는 한국어 전문 AI 어시스턴트

핵심 원칙:
• 정확하고 실용적인 정보를 간결하게 제공
• 친근하고 자연스러운 한국어 대화 스타일 유지
• 이전 대화 맥락을 적극 활용한 일관된 답변
• 불확실한 정보는 명확히 구분하여 표시
• 복잡한 내용은 단계별로 체계적으로 설명
• 텍스트와 이미지를 함께 고려한 멀티모달 이해

`

// Builder assembles a bounded prompt from the current input and the chat's
// recent history.
type Builder struct {
	BudgetTokens  int
	MaxMessages   int
	ResetKeywords []string
}

// NewBuilder creates a Builder with the default budget and reset keywords
func NewBuilder() *Builder {
	return &Builder{
		BudgetTokens:  DefaultBudgetTokens,
		MaxMessages:   DefaultMaxMessages,
		ResetKeywords: DefaultResetKeywords,
	}
}

// Build assembles the prompt for the given message. History must be in
// creation order; messages flagged ExcludeFromContext are never considered.
func (b *Builder) Build(current, imageURL string, history []*chat.Message) (string, error) {
	if strings.TrimSpace(current) == "" {
		return "", ErrEmptyMessage
	}

	if b.isResetRequest(current) {
		return b.resetPrompt(current), nil
	}

	included := b.selectWindow(filterExcluded(history))

	var sb strings.Builder
	sb.WriteString(systemPreamble)

	if len(included) > 0 {
		sb.WriteString("이전 대화 내용:\n")
		for _, m := range included {
			label := "AI"
			if m.Role == chat.RoleUser {
				label = "사용자"
			}
			sb.WriteString(fmt.Sprintf("%s: %s\n", label, clip(m.Content)))
			if m.HasImage() {
				sb.WriteString(fmt.Sprintf("  (이미지: %s)\n", m.ImageURL))
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString("현재 질문:\n")
	if strings.TrimSpace(imageURL) != "" {
		sb.WriteString(fmt.Sprintf("이미지 URL: %s\n", imageURL))
	}
	sb.WriteString(current)
	sb.WriteString("\n\n답변 시 위의 이전 대화를 참고하여 일관성 있게 답변하세요.")

	return sb.String(), nil
}

// selectWindow walks the history from most recent to oldest, accumulating
// estimated tokens, and returns the selected tail in chronological order.
func (b *Builder) selectWindow(history []*chat.Message) []*chat.Message {
	budget := b.BudgetTokens
	if budget <= 0 {
		budget = DefaultBudgetTokens
	}
	maxMessages := b.MaxMessages
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}

	total := 0
	count := 0
	for i := len(history) - 1; i >= 0; i-- {
		cost := EstimateTokens(history[i].Content)
		if total+cost > budget {
			break
		}
		total += cost
		count++
		if count >= maxMessages {
			break
		}
	}
	return history[len(history)-count:]
}

func (b *Builder) isResetRequest(message string) bool {
	normalized := strings.ToLower(strings.TrimSpace(message))
	for _, keyword := range b.ResetKeywords {
		if strings.Contains(normalized, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

func (b *Builder) resetPrompt(current string) string {
	var sb strings.Builder
	sb.WriteString("=== 대화 초기화 요청 ===\n")
	sb.WriteString("이전 대화 내용을 모두 잊고 새로운 대화를 시작합니다.\n\n")
	sb.WriteString("현재 질문: ")
	sb.WriteString(current)
	sb.WriteString("\n\n답변: 네, 이전 대화 내용을 모두 잊었습니다. 새로운 대화를 시작하겠습니다. 무엇을 도와드릴까요?")
	return sb.String()
}

func filterExcluded(history []*chat.Message) []*chat.Message {
	kept := make([]*chat.Message, 0, len(history))
	for _, m := range history {
		if !m.ExcludeFromContext {
			kept = append(kept, m)
		}
	}
	return kept
}

func clip(content string) string {
	runes := []rune(content)
	if len(runes) <= historyClipLength {
		return content
	}
	return string(runes[:historyClipLength-3]) + "..."
}
