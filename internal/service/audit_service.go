package service

import (
	"context"

	"github.com/picpal/chat-gemma/internal/domain/audit"
	"github.com/picpal/chat-gemma/pkg/logger"
)

// AuditService records and queries audit trail entries
type AuditService struct {
	repo audit.Repository
	log  logger.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo audit.Repository, log logger.Logger) *AuditService {
	return &AuditService{repo: repo, log: log}
}

// Record persists an audit entry. Failures are logged and swallowed so that
// auditing never breaks the operation it describes.
func (s *AuditService) Record(ctx context.Context, l *audit.Log) {
	if err := s.repo.Create(ctx, l); err != nil {
		s.log.Warn("failed to record audit log", "action", l.Action, "error", err)
	}
}

// Logs returns the most recent audit entries
func (s *AuditService) Logs(ctx context.Context, limit, offset int) ([]*audit.Log, error) {
	return s.repo.FindAll(ctx, limit, offset)
}

// LogsByUser returns the most recent audit entries for one user
func (s *AuditService) LogsByUser(ctx context.Context, userID string, limit, offset int) ([]*audit.Log, error) {
	return s.repo.FindByUserID(ctx, userID, limit, offset)
}

// LogsByAction returns the most recent audit entries for one action
func (s *AuditService) LogsByAction(ctx context.Context, action string, limit, offset int) ([]*audit.Log, error) {
	return s.repo.FindByAction(ctx, action, limit, offset)
}
