package apperrors

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// ErrorResponse - тело ответа HTTP с ошибкой
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// GinErrorHandler пишет AppError в ответ. В Debug причина 5xx уходит в details.
type GinErrorHandler struct {
	Debug bool
}

func (h *GinErrorHandler) HandleGinError(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = InternalError(err)
	}

	if appErr.HTTPCode >= 500 {
		slog.ErrorContext(c.Request.Context(), "server error",
			"code", appErr.Code, "path", c.FullPath(), "error", err)
		if h.Debug && appErr.Err != nil && appErr.Details == nil {
			appErr = appErr.WithDetails(appErr.Err.Error())
		}
	}

	c.JSON(appErr.HTTPCode, ErrorResponse{Error: appErr})
}

// HandleError - ответ с ошибкой; Debug вне release-режима gin
func HandleError(c *gin.Context, err error) {
	handler := &GinErrorHandler{Debug: gin.Mode() != gin.ReleaseMode}
	handler.HandleGinError(c, err)
}
