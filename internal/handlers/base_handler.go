package handlers

import (
	"errors"

	"mchat_backend/internal/logger"
	"mchat_backend/internal/middleware"
	"mchat_backend/internal/models"
	"mchat_backend/internal/validator"
	"mchat_backend/pkg/apperrors"
	"mchat_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// BaseHandler - общее для всех HTTP хэндлеров: валидация, db, ошибки, auth
type BaseHandler struct {
	validator *validator.Validator
	// Auth - проверка токена; собирается в app из секрета конфига
	Auth gin.HandlerFunc
}

func NewBaseHandler(v *validator.Validator, auth gin.HandlerFunc) *BaseHandler {
	return &BaseHandler{validator: v, Auth: auth}
}

// GetDB - *gorm.DB из DBMiddleware, привязанный к контексту запроса.
// Без middleware роутер собран неверно, поэтому panic (его ловит gin.Recovery).
func (h *BaseHandler) GetDB(c *gin.Context) *gorm.DB {
	val, ok := c.Get(contextkeys.GinDBKey)
	if !ok {
		panic("handlers: DBMiddleware is not installed")
	}
	db, ok := val.(*gorm.DB)
	if !ok {
		panic("handlers: db in context is not *gorm.DB")
	}
	return db.WithContext(c.Request.Context())
}

func (h *BaseHandler) BindAndValidate_JSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body"))
		return false
	}
	return h.validate(c, obj)
}

func (h *BaseHandler) BindAndValidate_Query(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid query parameters"))
		return false
	}
	return h.validate(c, obj)
}

func (h *BaseHandler) validate(c *gin.Context, obj any) bool {
	err := h.validator.Validate(obj)
	if err == nil {
		return true
	}

	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		logger.CtxDebug(c.Request.Context(), "Validation failed", "errors", verr.Errors)
		apperrors.HandleError(c, apperrors.ValidationError(verr.Errors))
		return false
	}
	apperrors.HandleError(c, apperrors.InternalError(err))
	return false
}

// HandleServiceError отдает AppError как есть, остальное - 500
func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		if appErr.HTTPCode < 500 {
			logger.CtxDebug(c.Request.Context(), "Request rejected", "code", appErr.Code)
		}
		apperrors.HandleError(c, appErr)
		return
	}
	apperrors.HandleError(c, apperrors.InternalError(err))
}

// GetAndAuthorizeUserID - id пользователя из токена; без него отвечает 401
func (h *BaseHandler) GetAndAuthorizeUserID(c *gin.Context) (string, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
		return "", false
	}
	return userID, true
}

func (h *BaseHandler) GetUserRole(c *gin.Context) models.UserRole {
	return middleware.GetUserRole(c)
}
