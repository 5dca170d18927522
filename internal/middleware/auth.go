package middleware

import (
	"net/http"
	"strings"

	"mchat_backend/internal/auth"
	"mchat_backend/internal/logger"
	"mchat_backend/internal/models"
	"mchat_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware - проверка access token'а. Браузер не может выставить
// заголовок при апгрейде в websocket, поэтому токен принимается и из ?token=.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c.GetHeader("Authorization"))
		if tokenStr == "" {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			abort(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			return
		}

		claims, err := auth.ParseToken(tokenStr, secret)
		if err != nil {
			abort(c, apperrors.NewUnauthorizedError("Invalid token"))
			return
		}
		if err := auth.ValidateRole(claims.Role); err != nil {
			abort(c, apperrors.NewUnauthorizedError("Invalid role"))
			return
		}

		// Сохраняем claims в контекст
		c.Set("userID", claims.UserID)
		c.Set("role", models.UserRole(claims.Role))
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// RequirePermission - доступ по разрешению роли
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.HasPermission(string(GetUserRole(c)), permission) {
			abort(c, apperrors.NewForbiddenError("Access denied: insufficient permissions"))
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func abort(c *gin.Context, err *apperrors.AppError) {
	status := err.HTTPCode
	if status == 0 {
		status = http.StatusUnauthorized
	}
	c.AbortWithStatusJSON(status, apperrors.ErrorResponse{Error: err})
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(c *gin.Context) string {
	userID, exists := c.Get("userID")
	if !exists {
		return ""
	}

	id, ok := userID.(string)
	if !ok {
		return ""
	}

	return id
}

// GetUserRole - роль из токена; по умолчанию user
func GetUserRole(c *gin.Context) models.UserRole {
	if role, ok := c.Get("role"); ok {
		if r, ok := role.(models.UserRole); ok {
			return r
		}
	}
	return models.UserRoleUser
}
