package audit

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the audit trail
const (
	ActionRegister       = "REGISTER"
	ActionRegisterFailed = "REGISTER_FAILED"
	ActionLoginSuccess   = "LOGIN_SUCCESS"
	ActionLoginFailed    = "LOGIN_FAILED"
	ActionLogout         = "LOGOUT"
	ActionCreateChat     = "CREATE_CHAT"
	ActionUpdateChat     = "UPDATE_CHAT"
	ActionDeleteChat     = "DELETE_CHAT"
	ActionSendMessage    = "SEND_MESSAGE"
	ActionAIError        = "AI_ERROR"
	ActionApproveUser    = "APPROVE_USER"
	ActionRejectUser     = "REJECT_USER"
	ActionPromoteUser    = "PROMOTE_TO_ADMIN"
)

// Resource types referenced by audit entries
const (
	ResourceUser    = "USER"
	ResourceChat    = "CHAT"
	ResourceMessage = "MESSAGE"
)

// Validation errors
var (
	ErrActionRequired       = errors.New("audit action is required")
	ErrResourceTypeRequired = errors.New("audit resource type is required")
)

// Log is one immutable entry of the audit trail. UserID and ResourceID may be
// empty for failed or system-level actions.
type Log struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id,omitempty"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	Timestamp    time.Time `json:"timestamp"`
	Details      string    `json:"details,omitempty"` // JSON payload with extra context
}

// NewLog creates an audit entry
func NewLog(userID, action, resourceType, resourceID, ipAddress, userAgent string) (*Log, error) {
	return NewLogWithDetails(userID, action, resourceType, resourceID, ipAddress, userAgent, "")
}

// NewLogWithDetails creates an audit entry carrying an extra details payload
func NewLogWithDetails(userID, action, resourceType, resourceID, ipAddress, userAgent, details string) (*Log, error) {
	if strings.TrimSpace(action) == "" {
		return nil, ErrActionRequired
	}
	if strings.TrimSpace(resourceType) == "" {
		return nil, ErrResourceTypeRequired
	}

	return &Log{
		ID:           uuid.New().String(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		Timestamp:    time.Now(),
		Details:      details,
	}, nil
}
