package dto

import (
	"time"

	"github.com/picpal/chat-gemma/internal/domain/audit"
)

// BulkApproveRequest holds the payload for approving several users at once
type BulkApproveRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1"`
}

// BulkApproveResponse reports the outcome per requested user
type BulkApproveResponse struct {
	Approved []string          `json:"approved"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// UserStatisticsResponse reports user counts by approval status
type UserStatisticsResponse struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

// AuditLogResponse is the public view of an audit log entry
type AuditLogResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type,omitempty"`
	ResourceID   string    `json:"resource_id,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Details      string    `json:"details,omitempty"`
}

// ToAuditLogResponse maps an audit log entity to its public view
func ToAuditLogResponse(l *audit.Log) AuditLogResponse {
	return AuditLogResponse{
		ID:           l.ID,
		UserID:       l.UserID,
		Action:       l.Action,
		ResourceType: l.ResourceType,
		ResourceID:   l.ResourceID,
		IPAddress:    l.IPAddress,
		UserAgent:    l.UserAgent,
		Timestamp:    l.Timestamp,
		Details:      l.Details,
	}
}

// ToAuditLogResponseList maps a slice of audit log entities to their public views
func ToAuditLogResponseList(logs []*audit.Log) []AuditLogResponse {
	responses := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		responses = append(responses, ToAuditLogResponse(l))
	}
	return responses
}
