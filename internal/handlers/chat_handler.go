package handlers

import (
	"net/http"

	"mchat_backend/internal/models/chat"
	chatsvc "mchat_backend/internal/services/chat"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	*BaseHandler
	messageService chatsvc.MessageService
	stateService   chatsvc.ChatStateService
}

func NewChatHandler(base *BaseHandler, messageService chatsvc.MessageService, stateService chatsvc.ChatStateService) *ChatHandler {
	return &ChatHandler{
		BaseHandler:    base,
		messageService: messageService,
		stateService:   stateService,
	}
}

type historyQuery struct {
	Before string `form:"before" validate:"omitempty,max=64"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

type historyResponse struct {
	ChatID   string         `json:"chat_id"`
	Messages []chat.Message `json:"messages"`
	// NextBefore - курсор следующей (более старой) страницы, пусто если дальше нет
	NextBefore string `json:"next_before,omitempty"`
}

func (h *ChatHandler) RegisterRoutes(r *gin.RouterGroup) {
	chats := r.Group("/chats")
	chats.Use(h.Auth)
	{
		chats.GET("", h.ListChats)
		chats.GET("/:chatID/messages", h.GetHistory)
	}
}

// ListChats - состояния чатов пользователя (непрочитанные, mute)
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	states, err := h.stateService.ListStates(c.Request.Context(), h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": states})
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var q historyQuery
	if !h.BindAndValidate_Query(c, &q) {
		return
	}
	if q.Limit == 0 {
		q.Limit = 50
	}

	chatID := c.Param("chatID")
	messages, err := h.messageService.GetHistory(c.Request.Context(), h.GetDB(c), userID, h.GetUserRole(c), chatID, q.Before, q.Limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	resp := historyResponse{ChatID: chatID, Messages: messages}
	if len(messages) == q.Limit {
		resp.NextBefore = messages[0].ID
	}
	c.JSON(http.StatusOK, resp)
}
