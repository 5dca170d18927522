package handlers

import (
	"net/http"

	"mchat_backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

// OnlineLister - источник онлайн-пользователей (реестр соединений)
type OnlineLister interface {
	OnlineUsers() []string
	Count() int
}

type PresenceHandler struct {
	*BaseHandler
	online OnlineLister
}

func NewPresenceHandler(base *BaseHandler, online OnlineLister) *PresenceHandler {
	return &PresenceHandler{BaseHandler: base, online: online}
}

func (h *PresenceHandler) RegisterRoutes(r *gin.RouterGroup) {
	presence := r.Group("/presence")
	presence.Use(h.Auth, middleware.RequirePermission("presence:read:any"))
	{
		presence.GET("/online", h.ListOnline)
	}
}

func (h *PresenceHandler) ListOnline(c *gin.Context) {
	users := h.online.OnlineUsers()
	c.JSON(http.StatusOK, gin.H{
		"users":       users,
		"connections": h.online.Count(),
	})
}
