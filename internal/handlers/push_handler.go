package handlers

import (
	"net/http"

	"mchat_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type PushHandler struct {
	*BaseHandler
	pushService services.PushSubscriptionService
}

func NewPushHandler(base *BaseHandler, pushService services.PushSubscriptionService) *PushHandler {
	return &PushHandler{
		BaseHandler: base,
		pushService: pushService,
	}
}

func (h *PushHandler) RegisterRoutes(r *gin.RouterGroup) {
	push := r.Group("/push")
	// публичный VAPID-ключ нужен браузеру до подписки
	push.GET("/vapid-key", h.GetPublicKey)

	subs := push.Group("/subscriptions")
	subs.Use(h.Auth)
	{
		subs.POST("", h.Subscribe)
		subs.DELETE("", h.Unsubscribe)
	}
}

func (h *PushHandler) GetPublicKey(c *gin.Context) {
	key := h.pushService.PublicKey()
	if key == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "web push is not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": key})
}

func (h *PushHandler) Subscribe(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req services.SubscribeRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	sub, err := h.pushService.Subscribe(c.Request.Context(), h.GetDB(c), userID, c.Request.UserAgent(), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sub)
}

func (h *PushHandler) Unsubscribe(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req services.UnsubscribeRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.pushService.Unsubscribe(c.Request.Context(), h.GetDB(c), userID, &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
