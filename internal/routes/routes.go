package routes

import (
	"mchat_backend/internal/handlers"
	"mchat_backend/internal/logger"
	"mchat_backend/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.WebSocketHandler,
	authMiddleware gin.HandlerFunc,
) {
	SetupPublicRoutes(ginRouter, appHandlers.HealthHandler)

	// Регистрация HTTP API v1
	api := ginRouter.Group("/api/v1")
	{
		appHandlers.ChatHandler.RegisterRoutes(api)
		appHandlers.PushHandler.RegisterRoutes(api)
		appHandlers.PresenceHandler.RegisterRoutes(api)
	}

	SetupWebSocketRoutes(ginRouter, wsHandler, authMiddleware)
	logger.Info("WebSocket route /ws registered")
}
