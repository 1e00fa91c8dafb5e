package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/picpal/chat-gemma/internal/adapter/api/dto"
	"github.com/picpal/chat-gemma/internal/adapter/repository"
	"github.com/picpal/chat-gemma/internal/core/ollama"
	"github.com/picpal/chat-gemma/internal/core/prompt"
	"github.com/picpal/chat-gemma/internal/domain/chat"
	"github.com/picpal/chat-gemma/internal/service"
	"github.com/picpal/chat-gemma/pkg/auth"
	"github.com/picpal/chat-gemma/pkg/logger"
)

// ChatController handles chat room CRUD and synchronous message exchange
type ChatController struct {
	chatService *service.ChatService
	log         logger.Logger
}

// NewChatController creates a new ChatController
func NewChatController(chatService *service.ChatService, log logger.Logger) *ChatController {
	return &ChatController{chatService: chatService, log: log}
}

// Create creates a new chat room for the authenticated user
func (c *ChatController) Create(ctx *gin.Context) {
	var request dto.CreateChatRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "잘못된 요청입니다", err.Error()))
		return
	}

	created, err := c.chatService.CreateChat(ctx, auth.CurrentUserID(ctx), request.Title, requestMeta(ctx))
	if err != nil {
		c.respondError(ctx, err, "채팅방 생성 중 오류가 발생했습니다")
		return
	}

	ctx.JSON(http.StatusCreated, dto.ToChatResponse(created))
}

// List returns the user's active chat rooms. A keyword query filters by title.
func (c *ChatController) List(ctx *gin.Context) {
	userID := auth.CurrentUserID(ctx)

	var chats []*chat.Chat
	var err error
	if keyword := ctx.Query("keyword"); keyword != "" {
		chats, err = c.chatService.SearchChats(ctx, userID, keyword)
	} else {
		chats, err = c.chatService.ListChats(ctx, userID)
	}
	if err != nil {
		c.respondError(ctx, err, "채팅방 목록 조회 중 오류가 발생했습니다")
		return
	}

	ctx.JSON(http.StatusOK, dto.ToChatResponseList(chats))
}

// Get returns one chat room with its stored message count
func (c *ChatController) Get(ctx *gin.Context) {
	found, count, err := c.chatService.GetChatDetail(ctx, ctx.Param("id"), auth.CurrentUserID(ctx))
	if err != nil {
		c.respondError(ctx, err, "채팅방 조회 중 오류가 발생했습니다")
		return
	}

	ctx.JSON(http.StatusOK, dto.ToChatDetailResponse(found, count))
}

// UpdateTitle renames a chat room
func (c *ChatController) UpdateTitle(ctx *gin.Context) {
	var request dto.UpdateChatRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "잘못된 요청입니다", err.Error()))
		return
	}

	updated, err := c.chatService.UpdateTitle(ctx, ctx.Param("id"), auth.CurrentUserID(ctx), request.Title, requestMeta(ctx))
	if err != nil {
		c.respondError(ctx, err, "채팅방 수정 중 오류가 발생했습니다")
		return
	}

	ctx.JSON(http.StatusOK, dto.ToChatResponse(updated))
}

// Delete soft-deletes a chat room
func (c *ChatController) Delete(ctx *gin.Context) {
	if err := c.chatService.DeleteChat(ctx, ctx.Param("id"), auth.CurrentUserID(ctx), requestMeta(ctx)); err != nil {
		c.respondError(ctx, err, "채팅방 삭제 중 오류가 발생했습니다")
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse("채팅방이 삭제되었습니다", nil))
}

// Messages returns the full message history of a chat room
func (c *ChatController) Messages(ctx *gin.Context) {
	messages, err := c.chatService.Messages(ctx, ctx.Param("id"), auth.CurrentUserID(ctx))
	if err != nil {
		c.respondError(ctx, err, "메시지 조회 중 오류가 발생했습니다")
		return
	}

	ctx.JSON(http.StatusOK, dto.ToMessageResponseList(messages))
}

// SendMessage exchanges one message synchronously: the user message is
// persisted, inference runs to completion and the assistant reply is returned
func (c *ChatController) SendMessage(ctx *gin.Context) {
	var request dto.SendMessageRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "잘못된 요청입니다", err.Error()))
		return
	}

	userMsg, assistantMsg, err := c.chatService.SendMessage(
		ctx, ctx.Param("id"), auth.CurrentUserID(ctx), request.Content, request.ImageURL, requestMeta(ctx))
	if err != nil {
		c.respondError(ctx, err, "메시지 전송 중 오류가 발생했습니다")
		return
	}

	ctx.JSON(http.StatusOK, dto.SendMessageResponse{
		UserMessage:      dto.ToMessageResponse(userMsg),
		AssistantMessage: dto.ToMessageResponse(assistantMsg),
	})
}

// ExcludeMessage hides one message from future prompt assembly
func (c *ChatController) ExcludeMessage(ctx *gin.Context) {
	err := c.chatService.ExcludeMessage(ctx, ctx.Param("id"), auth.CurrentUserID(ctx), ctx.Param("messageId"))
	if err != nil {
		c.respondError(ctx, err, "메시지 제외 처리 중 오류가 발생했습니다")
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse("메시지가 컨텍스트에서 제외되었습니다", nil))
}

// respondError maps service errors to HTTP responses
func (c *ChatController) respondError(ctx *gin.Context, err error, fallback string) {
	respondChatError(ctx, c.log, err, fallback)
}

func respondChatError(ctx *gin.Context, log logger.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrChatNotFound):
		ctx.JSON(http.StatusNotFound, dto.NewErrorResponse(http.StatusNotFound, "채팅방을 찾을 수 없습니다", ""))
	case errors.Is(err, repository.ErrMessageNotFound), errors.Is(err, service.ErrMessageNotInChat):
		ctx.JSON(http.StatusNotFound, dto.NewErrorResponse(http.StatusNotFound, "메시지를 찾을 수 없습니다", ""))
	case errors.Is(err, chat.ErrChatDeleted):
		ctx.JSON(http.StatusGone, dto.NewErrorResponse(http.StatusGone, "삭제된 채팅방입니다", ""))
	case errors.Is(err, chat.ErrTitleRequired),
		errors.Is(err, chat.ErrTitleTooLong),
		errors.Is(err, chat.ErrContentRequired),
		errors.Is(err, chat.ErrContentTooLong),
		errors.Is(err, prompt.ErrEmptyMessage):
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "잘못된 요청입니다", err.Error()))
	case ollama.IsTimeout(err):
		ctx.JSON(http.StatusGatewayTimeout, dto.NewErrorResponse(http.StatusGatewayTimeout, "AI 응답 시간이 초과되었습니다. 다시 시도해 주세요.", ""))
	case ollama.IsUnavailable(err):
		ctx.JSON(http.StatusBadGateway, dto.NewErrorResponse(http.StatusBadGateway, "AI 서비스에 연결할 수 없습니다. 잠시 후 다시 시도해 주세요.", ""))
	default:
		log.Error("chat request failed", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, fallback, ""))
	}
}

func requestMeta(ctx *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: ctx.ClientIP(),
		UserAgent: ctx.Request.UserAgent(),
	}
}
