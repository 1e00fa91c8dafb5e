package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/picpal/chat-gemma/internal/adapter/api/dto"
	"github.com/picpal/chat-gemma/internal/adapter/repository"
	"github.com/picpal/chat-gemma/internal/domain/audit"
	"github.com/picpal/chat-gemma/internal/domain/user"
	"github.com/picpal/chat-gemma/internal/service"
	"github.com/picpal/chat-gemma/pkg/auth"
	"github.com/picpal/chat-gemma/pkg/logger"
)

// AdminController handles user approval and audit trail queries
type AdminController struct {
	userRepository user.Repository
	auditService   *service.AuditService
	log            logger.Logger
}

// NewAdminController creates a new AdminController
func NewAdminController(userRepository user.Repository, auditService *service.AuditService, log logger.Logger) *AdminController {
	return &AdminController{
		userRepository: userRepository,
		auditService:   auditService,
		log:            log,
	}
}

// PendingUsers lists accounts waiting for approval
func (c *AdminController) PendingUsers(ctx *gin.Context) {
	users, err := c.userRepository.FindPending(ctx)
	if err != nil {
		c.log.Error("failed to list pending users", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "대기 중인 사용자 조회 중 오류가 발생했습니다", ""))
		return
	}

	ctx.JSON(http.StatusOK, dto.ToUserResponseList(users))
}

// ApproveUser approves one pending account
func (c *AdminController) ApproveUser(ctx *gin.Context) {
	c.decideUser(ctx, func(u *user.User, adminID string) error {
		return u.Approve(adminID)
	}, audit.ActionApproveUser, "사용자가 승인되었습니다")
}

// RejectUser rejects one pending account
func (c *AdminController) RejectUser(ctx *gin.Context) {
	c.decideUser(ctx, func(u *user.User, adminID string) error {
		return u.Reject(adminID)
	}, audit.ActionRejectUser, "사용자가 거부되었습니다")
}

func (c *AdminController) decideUser(ctx *gin.Context, decide func(*user.User, string) error, action, message string) {
	userID := ctx.Param("id")
	adminID := auth.CurrentUserID(ctx)

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

	if err := decide(u, adminID); err != nil {
		ctx.JSON(http.StatusConflict, dto.NewErrorResponse(http.StatusConflict, "이미 처리된 사용자입니다", err.Error()))
		return
	}

	if err := c.userRepository.Update(ctx, u); err != nil {
		c.log.Error("failed to update user", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "사용자 상태 변경 중 오류가 발생했습니다", ""))
		return
	}

	c.recordAudit(ctx, adminID, action, u.ID, "")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(message, dto.ToUserResponse(u)))
}

// BulkApprove approves several pending accounts in one request. Users that
// cannot be approved are reported individually without failing the batch.
func (c *AdminController) BulkApprove(ctx *gin.Context) {
	var request dto.BulkApproveRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "잘못된 요청입니다", err.Error()))
		return
	}

	adminID := auth.CurrentUserID(ctx)
	result := dto.BulkApproveResponse{Failed: make(map[string]string)}

	for _, userID := range request.UserIDs {
		u, err := c.userRepository.FindByID(ctx, userID)
		if err != nil {
			result.Failed[userID] = "not found"
			continue
		}
		if err := u.Approve(adminID); err != nil {
			result.Failed[userID] = err.Error()
			continue
		}
		if err := c.userRepository.Update(ctx, u); err != nil {
			c.log.Error("failed to update user", "user_id", userID, "error", err)
			result.Failed[userID] = "update failed"
			continue
		}
		c.recordAudit(ctx, adminID, audit.ActionApproveUser, u.ID, "bulk")
		result.Approved = append(result.Approved, userID)
	}

	if len(result.Failed) == 0 {
		result.Failed = nil
	}
	ctx.JSON(http.StatusOK, result)
}

// PromoteUser grants the admin role to an approved account
func (c *AdminController) PromoteUser(ctx *gin.Context) {
	userID := ctx.Param("id")
	adminID := auth.CurrentUserID(ctx)

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

	if err := u.Promote(); err != nil {
		ctx.JSON(http.StatusConflict, dto.NewErrorResponse(http.StatusConflict, "승인된 사용자만 관리자로 변경할 수 있습니다", err.Error()))
		return
	}

	if err := c.userRepository.Update(ctx, u); err != nil {
		c.log.Error("failed to update user", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "사용자 상태 변경 중 오류가 발생했습니다", ""))
		return
	}

	c.recordAudit(ctx, adminID, audit.ActionPromoteUser, u.ID, "")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse("관리자 권한이 부여되었습니다", dto.ToUserResponse(u)))
}

// Statistics reports user counts by approval status
func (c *AdminController) Statistics(ctx *gin.Context) {
	var stats dto.UserStatisticsResponse
	counts := []struct {
		status user.Status
		dest   *int
	}{
		{user.StatusPending, &stats.Pending},
		{user.StatusApproved, &stats.Approved},
		{user.StatusRejected, &stats.Rejected},
	}

	for _, c2 := range counts {
		n, err := c.userRepository.CountByStatus(ctx, c2.status)
		if err != nil {
			c.log.Error("failed to count users", "status", string(c2.status), "error", err)
			ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "통계 조회 중 오류가 발생했습니다", ""))
			return
		}
		*c2.dest = n
	}

	stats.Total = stats.Pending + stats.Approved + stats.Rejected
	ctx.JSON(http.StatusOK, stats)
}

// AuditLogs lists audit trail entries, optionally filtered by user or action
func (c *AdminController) AuditLogs(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	page := dto.GetPagination(limit, offset)

	var logs []*audit.Log
	var err error

	switch {
	case ctx.Query("user_id") != "":
		logs, err = c.auditService.LogsByUser(ctx, ctx.Query("user_id"), page.Limit, page.Offset)
	case ctx.Query("action") != "":
		logs, err = c.auditService.LogsByAction(ctx, ctx.Query("action"), page.Limit, page.Offset)
	default:
		logs, err = c.auditService.Logs(ctx, page.Limit, page.Offset)
	}

	if err != nil {
		c.log.Error("failed to list audit logs", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "감사 로그 조회 중 오류가 발생했습니다", ""))
		return
	}

	ctx.JSON(http.StatusOK, dto.ToAuditLogResponseList(logs))
}

func (c *AdminController) recordAudit(ctx *gin.Context, adminID, action, targetUserID, details string) {
	l, err := audit.NewLogWithDetails(adminID, action, audit.ResourceUser, targetUserID, ctx.ClientIP(), ctx.Request.UserAgent(), details)
	if err != nil {
		c.log.Warn("failed to build audit log", "action", action, "error", err)
		return
	}
	c.auditService.Record(ctx, l)
}
