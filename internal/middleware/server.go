package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"mchat_backend/internal/logger"
	"mchat_backend/internal/metrics"
	"mchat_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware берет id запроса от прокси или выдает новый
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggingMiddleware пишет access log и HTTP метрики.
// Метка route - шаблон gin (/api/v1/chats/:chatID/messages), а не сырой путь.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(duration.Seconds())

		log := logger.FromContext(c.Request.Context())
		fields := []any{
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("duration", duration),
			slog.String("client_ip", c.ClientIP()),
		}
		switch {
		case status >= 500:
			log.Error("HTTP request failed", fields...)
		case status >= 400:
			log.Warn("HTTP request rejected", fields...)
		case route == "/health" || route == "/metrics":
			// пробы и скрейпы не засоряют info
			log.Debug("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// DBMiddleware кладет *gorm.DB в gin-контекст; транзакция из request ctx имеет приоритет
func DBMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tx, ok := contextkeys.DBFrom(c.Request.Context()); ok {
			c.Set(contextkeys.GinDBKey, tx)
		} else {
			c.Set(contextkeys.GinDBKey, db)
		}
		c.Next()
	}
}
