package route

import (
	"github.com/gin-gonic/gin"

	"github.com/picpal/chat-gemma/internal/adapter/api/controller"
	"github.com/picpal/chat-gemma/pkg/auth"
)

// SetupAuthRoutes configures the authentication routes
func SetupAuthRoutes(router *gin.RouterGroup, authController *controller.AuthController) {
	authRouter := router.Group("/auth")
	{
		authRouter.POST("/register", authController.Register)
		authRouter.POST("/login", authController.Login)
		authRouter.POST("/refresh-token", authController.Refresh)
		authRouter.GET("/check-username", authController.CheckUsername)
		authRouter.GET("/check-email", authController.CheckEmail)

		authRouter.POST("/logout", auth.JWTAuthMiddleware(), authController.Logout)
		authRouter.GET("/me", auth.JWTAuthMiddleware(), authController.Me)
	}
}
