package routes

import (
	"mchat_backend/internal/handlers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupPublicRoutes(r *gin.Engine, healthHandler *handlers.HealthHandler) {
	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
