package route

import (
	"github.com/gin-gonic/gin"

	"github.com/picpal/chat-gemma/internal/adapter/api/controller"
	"github.com/picpal/chat-gemma/internal/domain/user"
	"github.com/picpal/chat-gemma/pkg/auth"
)

// SetupAdminRoutes configures the admin-only routes
func SetupAdminRoutes(router *gin.RouterGroup, adminController *controller.AdminController) {
	adminRouter := router.Group("/admin")
	adminRouter.Use(auth.JWTAuthMiddleware(), auth.RoleAuthMiddleware(string(user.RoleAdmin)))
	{
		adminRouter.GET("/users/pending", adminController.PendingUsers)
		adminRouter.POST("/users/:id/approve", adminController.ApproveUser)
		adminRouter.POST("/users/:id/reject", adminController.RejectUser)
		adminRouter.POST("/users/:id/promote", adminController.PromoteUser)
		adminRouter.POST("/users/bulk-approve", adminController.BulkApprove)
		adminRouter.GET("/statistics", adminController.Statistics)
		adminRouter.GET("/audit-logs", adminController.AuditLogs)
	}
}
