package route

import (
	"github.com/gin-gonic/gin"

	"github.com/picpal/chat-gemma/internal/adapter/api/controller"
	"github.com/picpal/chat-gemma/pkg/auth"
)

// SetupChatRoutes configures the chat room and messaging routes
func SetupChatRoutes(router *gin.RouterGroup, chatController *controller.ChatController, streamController *controller.StreamController) {
	chatRouter := router.Group("/chats")
	chatRouter.Use(auth.JWTAuthMiddleware())
	{
		chatRouter.POST("", chatController.Create)
		chatRouter.GET("", chatController.List)
		chatRouter.GET("/:id", chatController.Get)
		chatRouter.PUT("/:id", chatController.UpdateTitle)
		chatRouter.DELETE("/:id", chatController.Delete)

		chatRouter.GET("/:id/messages", chatController.Messages)
		chatRouter.POST("/:id/messages", chatController.SendMessage)
		chatRouter.PUT("/:id/messages/:messageId/exclude", chatController.ExcludeMessage)
		chatRouter.POST("/:id/stream", streamController.Stream)
	}
}
