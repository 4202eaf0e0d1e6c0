package apperrors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestIDKey - ключ request ID в gin контексте
const RequestIDKey = "request_id"

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// Respond пишет JSON ошибку и логирует её. Неизвестные ошибки превращаются в 500.
func Respond(c *gin.Context, log *zap.Logger, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewInternalError("unhandled error", err)
	}

	reqID := c.GetString(RequestIDKey)

	fields := []zap.Field{
		zap.Int("status", appErr.Code),
		zap.String("message", appErr.Message),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", reqID),
	}
	if appErr.Err != nil {
		fields = append(fields, zap.Error(appErr.Err))
	}

	if appErr.Code >= http.StatusInternalServerError {
		log.Error("HTTP error", fields...)
	} else {
		log.Warn("HTTP error", fields...)
	}

	c.AbortWithStatusJSON(appErr.Code, ErrorResponse{
		Error:     appErr.Message,
		RequestID: reqID,
	})
}
