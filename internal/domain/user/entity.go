package user

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Role represents the user's role in the system
type Role string

// Status represents the approval status of the user
type Status string

// Role constants
const (
	RoleUser  Role = "USER"  // Regular user
	RoleAdmin Role = "ADMIN" // System administrator
)

// Status constants
const (
	StatusPending  Status = "PENDING"  // Waiting for admin approval
	StatusApproved Status = "APPROVED" // Approved, may log in
	StatusRejected Status = "REJECTED" // Rejected by an admin
)

// Validation errors
var (
	ErrUsernameRequired = errors.New("username is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("email format is invalid")
	ErrAlreadyDecided   = errors.New("user has already been approved or rejected")
	ErrNotApproved      = errors.New("only approved users can be promoted")
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// User represents an account in the system
type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Password   string    `json:"-"` // Password hash is never serialized
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	ApprovedAt time.Time `json:"approved_at,omitempty"`
	ApprovedBy string    `json:"approved_by,omitempty"`
}

// NewUser creates a regular user pending admin approval
func NewUser(username, password, email string) (*User, error) {
	return newUser(username, password, email, RoleUser, StatusPending)
}

// NewAdmin creates an administrator account, approved on creation
func NewAdmin(username, password, email string) (*User, error) {
	return newUser(username, password, email, RoleAdmin, StatusApproved)
}

func newUser(username, password, email string, role Role, status Status) (*User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrUsernameRequired
	}
	if strings.TrimSpace(password) == "" {
		return nil, ErrPasswordRequired
	}
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmailRequired
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrEmailInvalid
	}

	u := &User{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     email,
		Role:      role,
		Status:    status,
		CreatedAt: time.Now(),
	}
	if status == StatusApproved {
		u.ApprovedAt = u.CreatedAt
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// SetPassword hashes and stores the user's password
func (u *User) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

// CheckPassword verifies the given password against the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// Approve marks a pending user as approved by the given admin
func (u *User) Approve(adminID string) error {
	if u.Status != StatusPending {
		return ErrAlreadyDecided
	}
	u.Status = StatusApproved
	u.ApprovedBy = adminID
	u.ApprovedAt = time.Now()
	return nil
}

// Reject marks a pending user as rejected by the given admin
func (u *User) Reject(adminID string) error {
	if u.Status != StatusPending {
		return ErrAlreadyDecided
	}
	u.Status = StatusRejected
	u.ApprovedBy = adminID
	u.ApprovedAt = time.Now()
	return nil
}

// Promote elevates an approved user to administrator
func (u *User) Promote() error {
	if u.Status != StatusApproved {
		return ErrNotApproved
	}
	u.Role = RoleAdmin
	return nil
}

// IsApproved verifies whether the user passed admin approval
func (u *User) IsApproved() bool {
	return u.Status == StatusApproved
}

// IsAdmin verifies whether the user is an administrator
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
