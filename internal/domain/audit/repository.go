package audit

import "context"

// Repository defines the persistence operations for the audit trail
type Repository interface {
	Create(ctx context.Context, l *Log) error
	FindAll(ctx context.Context, limit, offset int) ([]*Log, error)
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*Log, error)
	FindByAction(ctx context.Context, action string, limit, offset int) ([]*Log, error)
}
