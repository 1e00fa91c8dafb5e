package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/picpal/chat-gemma/internal/adapter/api/dto"
	"github.com/picpal/chat-gemma/internal/adapter/repository"
	"github.com/picpal/chat-gemma/internal/domain/audit"
	"github.com/picpal/chat-gemma/internal/domain/user"
	"github.com/picpal/chat-gemma/internal/service"
	"github.com/picpal/chat-gemma/pkg/auth"
	"github.com/picpal/chat-gemma/pkg/logger"
)

// AuthController handles registration, login and session queries
type AuthController struct {
	userRepository user.Repository
	jwtService     *auth.JWTService
	auditService   *service.AuditService
	log            logger.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(userRepository user.Repository, jwtService *auth.JWTService, auditService *service.AuditService, log logger.Logger) *AuthController {
	return &AuthController{
		userRepository: userRepository,
		jwtService:     jwtService,
		auditService:   auditService,
		log:            log,
	}
}

// Register creates a new account in PENDING state, awaiting admin approval
func (c *AuthController) Register(ctx *gin.Context) {
	var request dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "잘못된 요청입니다", err.Error()))
		return
	}

	exists, err := c.userRepository.ExistsByUsernameOrEmail(ctx, request.Username, request.Email)
	if err != nil {
		c.log.Error("failed to check user existence", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "회원가입 처리 중 오류가 발생했습니다", ""))
		return
	}
	if exists {
		c.recordAudit(ctx, "", audit.ActionRegisterFailed, audit.ResourceUser, "", "duplicate username or email")
		ctx.JSON(http.StatusConflict, dto.NewErrorResponse(http.StatusConflict, "이미 사용 중인 아이디 또는 이메일입니다", ""))
		return
	}

	u, err := user.NewUser(request.Username, request.Password, request.Email)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "잘못된 요청입니다", err.Error()))
		return
	}

	if err := c.userRepository.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUserDuplicate) {
			ctx.JSON(http.StatusConflict, dto.NewErrorResponse(http.StatusConflict, "이미 사용 중인 아이디 또는 이메일입니다", ""))
			return
		}
		c.log.Error("failed to create user", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "회원가입 처리 중 오류가 발생했습니다", ""))
		return
	}

	c.recordAudit(ctx, u.ID, audit.ActionRegister, audit.ResourceUser, u.ID, "")

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(
		"회원가입이 완료되었습니다. 관리자 승인 후 이용할 수 있습니다.",
		dto.ToUserResponse(u),
	))
}

// Login authenticates an approved user and issues an access token
func (c *AuthController) Login(ctx *gin.Context) {
	var request dto.LoginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "잘못된 요청입니다", err.Error()))
		return
	}

	u, err := c.userRepository.FindByUsername(ctx, request.Username)
	if err != nil {
		c.recordAudit(ctx, "", audit.ActionLoginFailed, audit.ResourceUser, "", "unknown username: "+request.Username)
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(http.StatusUnauthorized, "아이디 또는 비밀번호가 올바르지 않습니다", ""))
		return
	}

	if !u.CheckPassword(request.Password) {
		c.recordAudit(ctx, u.ID, audit.ActionLoginFailed, audit.ResourceUser, u.ID, "wrong password")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(http.StatusUnauthorized, "아이디 또는 비밀번호가 올바르지 않습니다", ""))
		return
	}

	if !u.IsApproved() {
		c.recordAudit(ctx, u.ID, audit.ActionLoginFailed, audit.ResourceUser, u.ID, "account not approved")
		ctx.JSON(http.StatusForbidden, dto.NewErrorResponse(http.StatusForbidden, "관리자 승인 대기 중인 계정입니다", ""))
		return
	}

	token, err := c.jwtService.GenerateToken(u)
	if err != nil {
		c.log.Error("failed to generate token", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "로그인 처리 중 오류가 발생했습니다", ""))
		return
	}

	c.recordAudit(ctx, u.ID, audit.ActionLoginSuccess, audit.ResourceUser, u.ID, "")

	ctx.JSON(http.StatusOK, dto.LoginResponse{
		User:        dto.ToUserResponse(u),
		AccessToken: token,
	})
}

// Refresh reissues the caller's access token with a fresh expiration
func (c *AuthController) Refresh(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(http.StatusUnauthorized, "인증이 필요합니다", ""))
		return
	}

	newToken, err := c.jwtService.RefreshToken(tokenParts[1])
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(http.StatusUnauthorized, "유효하지 않은 토큰입니다", err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"access_token": newToken})
}

// Logout records the logout in the audit trail. Tokens are stateless, so the
// client discards its copy.
func (c *AuthController) Logout(ctx *gin.Context) {
	userID := auth.CurrentUserID(ctx)
	c.recordAudit(ctx, userID, audit.ActionLogout, audit.ResourceUser, userID, "")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse("로그아웃되었습니다", nil))
}

// Me returns the authenticated user's profile
func (c *AuthController) Me(ctx *gin.Context) {
	userID := auth.CurrentUserID(ctx)

	u, err := c.userRepository.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			ctx.JSON(http.StatusNotFound, dto.NewErrorResponse(http.StatusNotFound, "사용자를 찾을 수 없습니다", ""))
			return
		}
		c.log.Error("failed to fetch user", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "사용자 조회 중 오류가 발생했습니다", ""))
		return
	}

	ctx.JSON(http.StatusOK, dto.ToUserResponse(u))
}

// CheckUsername reports whether a username is still available
func (c *AuthController) CheckUsername(ctx *gin.Context) {
	username := ctx.Query("username")
	if username == "" {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "username 파라미터가 필요합니다", ""))
		return
	}

	exists, err := c.userRepository.ExistsByUsername(ctx, username)
	if err != nil {
		c.log.Error("failed to check username", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "중복 확인 중 오류가 발생했습니다", ""))
		return
	}

	ctx.JSON(http.StatusOK, dto.AvailabilityResponse{Available: !exists})
}

// CheckEmail reports whether an email is still available
func (c *AuthController) CheckEmail(ctx *gin.Context) {
	email := ctx.Query("email")
	if email == "" {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "email 파라미터가 필요합니다", ""))
		return
	}

	exists, err := c.userRepository.ExistsByEmail(ctx, email)
	if err != nil {
		c.log.Error("failed to check email", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "중복 확인 중 오류가 발생했습니다", ""))
		return
	}

	ctx.JSON(http.StatusOK, dto.AvailabilityResponse{Available: !exists})
}

func (c *AuthController) recordAudit(ctx *gin.Context, userID, action, resourceType, resourceID, details string) {
	l, err := audit.NewLogWithDetails(userID, action, resourceType, resourceID, ctx.ClientIP(), ctx.Request.UserAgent(), details)
	if err != nil {
		c.log.Warn("failed to build audit log", "action", action, "error", err)
		return
	}
	c.auditService.Record(ctx, l)
}
