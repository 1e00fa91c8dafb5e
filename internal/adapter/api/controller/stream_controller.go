package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/picpal/chat-gemma/internal/adapter/api/dto"
	"github.com/picpal/chat-gemma/internal/core/relay"
	"github.com/picpal/chat-gemma/internal/service"
	"github.com/picpal/chat-gemma/pkg/auth"
	"github.com/picpal/chat-gemma/pkg/logger"
)

// eventBuffer bounds the queue between the inference goroutine and the SSE
// writer. A full buffer applies backpressure on chunk delivery.
const eventBuffer = 256

// StreamController relays assistant replies over Server-Sent Events
type StreamController struct {
	chatService *service.ChatService
	log         logger.Logger
}

// NewStreamController creates a new StreamController
func NewStreamController(chatService *service.ChatService, log logger.Logger) *StreamController {
	return &StreamController{chatService: chatService, log: log}
}

// Stream persists the user message, starts inference and streams the reply
// chunk by chunk. The last event has is_streaming=false and signals either
// completion or a user-facing error.
func (c *StreamController) Stream(ctx *gin.Context) {
	var request dto.SendMessageRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "잘못된 요청입니다", err.Error()))
		return
	}

	reqCtx := ctx.Request.Context()
	events := make(chan relay.Event, eventBuffer)
	sub := relay.SubscriberFunc(func(e relay.Event) {
		// Discard once the client is gone so delivery never blocks forever.
		select {
		case events <- e:
		case <-reqCtx.Done():
		}
	})

	_, err := c.chatService.StreamMessage(
		reqCtx,
		ctx.Param("id"),
		auth.CurrentUserID(ctx),
		request.Content,
		request.ImageURL,
		requestMeta(ctx),
		sub,
	)
	if err != nil {
		respondChatError(ctx, c.log, err, "메시지 전송 중 오류가 발생했습니다")
		return
	}

	ctx.Writer.Header().Set("Content-Type", "text/event-stream")
	ctx.Writer.Header().Set("Cache-Control", "no-cache")
	ctx.Writer.Header().Set("Connection", "keep-alive")
	ctx.Writer.Header().Set("X-Accel-Buffering", "no")

	for {
		select {
		case <-reqCtx.Done():
			return
		case event := <-events:
			ctx.SSEvent("message", event)
			ctx.Writer.Flush()
			if !event.IsStreaming {
				return
			}
		}
	}
}
