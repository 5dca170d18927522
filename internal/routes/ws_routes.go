package routes

import (
	"mchat_backend/ws"

	"github.com/gin-gonic/gin"
)

func SetupWebSocketRoutes(r *gin.Engine, wsHandler *ws.WebSocketHandler, authMiddleware gin.HandlerFunc) {
	// 💬 WebSocket endpoint (только авторизованные пользователи)
	wsGroup := r.Group("/ws")
	wsGroup.Use(authMiddleware)
	{
		wsGroup.GET("", wsHandler.ServeWS)
	}
}
