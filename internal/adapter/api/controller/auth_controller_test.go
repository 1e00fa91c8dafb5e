package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picpal/chat-gemma/internal/adapter/api/controller"
	"github.com/picpal/chat-gemma/internal/adapter/api/route"
	"github.com/picpal/chat-gemma/internal/adapter/repository"
	"github.com/picpal/chat-gemma/internal/domain/audit"
	"github.com/picpal/chat-gemma/internal/domain/user"
	"github.com/picpal/chat-gemma/internal/service"
	"github.com/picpal/chat-gemma/pkg/auth"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*user.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return repository.ErrUserDuplicate
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Update(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return repository.ErrUserNotFound
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) FindByUsername(_ context.Context, username string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *memUserRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) FindPending(_ context.Context) ([]*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*user.User
	for _, u := range r.users {
		if u.Status == user.StatusPending {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memUserRepo) CountByStatus(_ context.Context, status user.Status) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, u := range r.users {
		if u.Status == status {
			count++
		}
	}
	return count, nil
}

type memAuditRepo struct {
	mu   sync.Mutex
	logs []*audit.Log
}

func (r *memAuditRepo) Create(_ context.Context, l *audit.Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.logs = append(r.logs, &cp)
	return nil
}

func (r *memAuditRepo) FindAll(_ context.Context, limit, offset int) ([]*audit.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*audit.Log(nil), r.logs...), nil
}

func (r *memAuditRepo) FindByUserID(_ context.Context, userID string, limit, offset int) ([]*audit.Log, error) {
	return nil, nil
}

func (r *memAuditRepo) FindByAction(_ context.Context, action string, limit, offset int) ([]*audit.Log, error) {
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

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

func newAuthRouter(t *testing.T) (*gin.Engine, *memUserRepo, *memAuditRepo) {
	t.Helper()
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	gin.SetMode(gin.TestMode)

	userRepo := newMemUserRepo()
	auditRepo := &memAuditRepo{}

	jwtService, err := auth.NewJWTService()
	require.NoError(t, err)

	auditService := service.NewAuditService(auditRepo, nopLogger{})
	authController := controller.NewAuthController(userRepo, jwtService, auditService, nopLogger{})

	router := gin.New()
	api := router.Group("/api/v1")
	route.SetupAuthRoutes(api, authController)
	return router, userRepo, auditRepo
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterCreatesPendingAccount(t *testing.T) {
	router, userRepo, auditRepo := newAuthRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", gin.H{
		"username": "alice",
		"password": "secret1234",
		"email":    "alice@example.com",
	}, "")
	assert.Equal(t, http.StatusCreated, w.Code)

	pending, err := userRepo.FindPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "alice", pending[0].Username)

	logs, _ := auditRepo.FindByAction(context.Background(), audit.ActionRegister, 50, 0)
	assert.Len(t, logs, 1)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	router, _, _ := newAuthRouter(t)

	payload := gin.H{"username": "alice", "password": "secret1234", "email": "alice@example.com"}
	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", payload, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/register", payload, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	router, _, _ := newAuthRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", gin.H{
		"username": "alice",
		"password": "short",
		"email":    "alice@example.com",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRequiresApproval(t *testing.T) {
	router, userRepo, auditRepo := newAuthRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", gin.H{
		"username": "alice", "password": "secret1234", "email": "alice@example.com",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	// Pending accounts cannot log in.
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", gin.H{
		"username": "alice", "password": "secret1234",
	}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Approve and try again.
	pending, _ := userRepo.FindPending(context.Background())
	require.Len(t, pending, 1)
	u := pending[0]
	require.NoError(t, u.Approve("admin-1"))
	require.NoError(t, userRepo.Update(context.Background(), u))

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", gin.H{
		"username": "alice", "password": "secret1234",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)

	logs, _ := auditRepo.FindByAction(context.Background(), audit.ActionLoginSuccess, 50, 0)
	assert.Len(t, logs, 1)
}

func TestLoginWrongPasswordIsAudited(t *testing.T) {
	router, userRepo, auditRepo := newAuthRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", gin.H{
		"username": "alice", "password": "secret1234", "email": "alice@example.com",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	pending, _ := userRepo.FindPending(context.Background())
	require.Len(t, pending, 1)
	u := pending[0]
	require.NoError(t, u.Approve("admin-1"))
	require.NoError(t, userRepo.Update(context.Background(), u))

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", gin.H{
		"username": "alice", "password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	logs, _ := auditRepo.FindByAction(context.Background(), audit.ActionLoginFailed, 50, 0)
	assert.Len(t, logs, 1)
}

func TestMeReturnsProfile(t *testing.T) {
	router, userRepo, _ := newAuthRouter(t)

	admin, err := user.NewAdmin("admin", "secret1234", "admin@example.com")
	require.NoError(t, err)
	require.NoError(t, userRepo.Create(context.Background(), admin))

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", gin.H{
		"username": "admin", "password": "secret1234",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	var profile struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "admin", profile.Username)
	assert.Equal(t, "ADMIN", profile.Role)
}

func TestMeRequiresToken(t *testing.T) {
	router, _, _ := newAuthRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckUsernameAvailability(t *testing.T) {
	router, _, _ := newAuthRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/auth/check-username?username=alice", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var avail struct {
		Available bool `json:"available"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &avail))
	assert.True(t, avail.Available)

	doJSON(t, router, http.MethodPost, "/api/v1/auth/register", gin.H{
		"username": "alice", "password": "secret1234", "email": "alice@example.com",
	}, "")

	w = doJSON(t, router, http.MethodGet, "/api/v1/auth/check-username?username=alice", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &avail))
	assert.False(t, avail.Available)
}
