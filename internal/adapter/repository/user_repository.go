package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/picpal/chat-gemma/internal/domain/user"
)

// Repository errors
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserDuplicate = errors.New("username or email already registered")
)

// UserRepository implements user.Repository using PostgreSQL
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) user.Repository {
	return &UserRepository{db: db}
}

// Create implements user.Repository.Create
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, username, password, email, role, status, created_at, approved_at, approved_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		u.ID,
		u.Username,
		u.Password,
		u.Email,
		string(u.Role),
		string(u.Status),
		u.CreatedAt,
		nullableTime(u.ApprovedAt),
		nullableString(u.ApprovedBy),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique violation
			return ErrUserDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Update implements user.Repository.Update
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users
		SET role = $2, status = $3, approved_at = $4, approved_by = $5
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		u.ID,
		string(u.Role),
		string(u.Status),
		nullableTime(u.ApprovedAt),
		nullableString(u.ApprovedBy),
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// FindByID implements user.Repository.FindByID
func (r *UserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	return r.findOne(ctx, "id = $1", id)
}

// FindByUsername implements user.Repository.FindByUsername
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.findOne(ctx, "username = $1", username)
}

// FindByEmail implements user.Repository.FindByEmail
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, "email = $1", email)
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (*user.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, password, email, role, status, created_at, approved_at, approved_by
		FROM users
		WHERE %s
	`, where)

	u, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// ExistsByUsernameOrEmail implements user.Repository.ExistsByUsernameOrEmail
func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 OR email = $2)",
		username, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// ExistsByUsername implements user.Repository.ExistsByUsername
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)", username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// ExistsByEmail implements user.Repository.ExistsByEmail
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// FindPending implements user.Repository.FindPending
func (r *UserRepository) FindPending(ctx context.Context) ([]*user.User, error) {
	query := `
		SELECT id, username, password, email, role, status, created_at, approved_at, approved_by
		FROM users
		WHERE status = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, string(user.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}

	return users, nil
}

// CountByStatus implements user.Repository.CountByStatus
func (r *UserRepository) CountByStatus(ctx context.Context, status user.Status) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM users WHERE status = $1", string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	var role, status string
	var approvedAt pgtype.Timestamptz
	var approvedBy pgtype.Text

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Password,
		&u.Email,
		&role,
		&status,
		&u.CreatedAt,
		&approvedAt,
		&approvedBy,
	)
	if err != nil {
		return nil, err
	}

	u.Role = user.Role(role)
	u.Status = user.Status(status)
	if approvedAt.Valid {
		u.ApprovedAt = approvedAt.Time
	}
	if approvedBy.Valid {
		u.ApprovedBy = approvedBy.String
	}

	return u, nil
}
