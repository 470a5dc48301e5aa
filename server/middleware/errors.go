package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPError интерфейс для ошибок с HTTP статусом и сообщением
// Используется для избежания циклических зависимостей
type HTTPError interface {
	error
	StatusCode() int
	UserMessage() string
	GetContext() string
	Unwrap() error
}

// ErrorResponse структура ответа об ошибке
type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id,omitempty"`
}

func newErrorResponse(message, reqID string) ErrorResponse {
	return ErrorResponse{
		Error:     message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: reqID,
	}
}

// GinErrorMiddleware превращает ошибки, добавленные обработчиком через c.Error, в JSON ответ.
// HTTPError задает статус и сообщение, прочие ошибки отдаются как 500.
func GinErrorMiddleware(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		reqID := GetRequestIDFromGin(c)
		status := http.StatusInternalServerError
		message := "Internal server error"

		var httpErr HTTPError
		if errors.As(last.Err, &httpErr) {
			status = httpErr.StatusCode()
			message = httpErr.UserMessage()
		}

		attrs := []any{
			"error", last.Err.Error(),
			"status_code", status,
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		}
		if httpErr != nil && httpErr.GetContext() != "" {
			attrs = append(attrs, "context", httpErr.GetContext())
		}
		if status >= http.StatusInternalServerError {
			logger.Error("HTTP error", attrs...)
		} else {
			logger.Warn("HTTP error", attrs...)
		}

		c.JSON(status, newErrorResponse(message, reqID))
	}
}
