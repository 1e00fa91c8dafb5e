package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/picpal/chat-gemma/internal/domain/audit"
)

// AuditRepository implements audit.Repository using PostgreSQL
type AuditRepository struct {
	db *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *pgxpool.Pool) audit.Repository {
	return &AuditRepository{db: db}
}

// Create implements audit.Repository.Create
func (r *AuditRepository) Create(ctx context.Context, l *audit.Log) error {
	query := `
		INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, ip_address, user_agent, timestamp, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		l.ID,
		nullableString(l.UserID),
		l.Action,
		nullableString(l.ResourceType),
		nullableString(l.ResourceID),
		nullableString(l.IPAddress),
		nullableString(l.UserAgent),
		l.Timestamp,
		nullableString(l.Details),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// FindAll implements audit.Repository.FindAll
func (r *AuditRepository) FindAll(ctx context.Context, limit, offset int) ([]*audit.Log, error) {
	query := `
		SELECT id, user_id, action, resource_type, resource_id, ip_address, user_agent, timestamp, details
		FROM audit_logs
		ORDER BY timestamp DESC
		LIMIT $1 OFFSET $2
	`

	return r.queryLogs(ctx, query, limit, offset)
}

// FindByUserID implements audit.Repository.FindByUserID
func (r *AuditRepository) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*audit.Log, error) {
	query := `
		SELECT id, user_id, action, resource_type, resource_id, ip_address, user_agent, timestamp, details
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryLogs(ctx, query, userID, limit, offset)
}

// FindByAction implements audit.Repository.FindByAction
func (r *AuditRepository) FindByAction(ctx context.Context, action string, limit, offset int) ([]*audit.Log, error) {
	query := `
		SELECT id, user_id, action, resource_type, resource_id, ip_address, user_agent, timestamp, details
		FROM audit_logs
		WHERE action = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryLogs(ctx, query, action, limit, offset)
}

func (r *AuditRepository) queryLogs(ctx context.Context, query string, args ...any) ([]*audit.Log, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*audit.Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit logs: %w", err)
	}

	return logs, nil
}

func scanLog(row pgx.Row) (*audit.Log, error) {
	l := &audit.Log{}
	var userID, resourceType, resourceID, ipAddress, userAgent, details pgtype.Text

	err := row.Scan(
		&l.ID,
		&userID,
		&l.Action,
		&resourceType,
		&resourceID,
		&ipAddress,
		&userAgent,
		&l.Timestamp,
		&details,
	)
	if err != nil {
		return nil, err
	}

	l.UserID = userID.String
	l.ResourceType = resourceType.String
	l.ResourceID = resourceID.String
	l.IPAddress = ipAddress.String
	l.UserAgent = userAgent.String
	l.Details = details.String

	return l, nil
}
