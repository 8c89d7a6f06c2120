package router

import (
	"errors"
	"net/http"

	"github.com/compozy/triggers/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Response is the envelope returned by every /api/v1 endpoint.
type Response struct {
	Status  int        `json:"status"`
	Message string     `json:"message,omitempty"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

func RespondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{Status: http.StatusOK, Message: message, Data: data})
}

func RespondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Response{Status: http.StatusCreated, Message: message, Data: data})
}

func RespondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, Response{Status: http.StatusAccepted, Message: message, Data: data})
}

// RespondWithError writes the error envelope. Non-RequestError values are
// reported as internal errors.
func RespondWithError(c *gin.Context, statusCode int, err error) {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		reqErr = NewRequestError(statusCode, "internal server error", err)
	}
	if statusCode == 0 {
		statusCode = reqErr.StatusCode
	}
	log := logger.FromContext(c.Request.Context())
	fields := []any{"status", statusCode, "path", c.Request.URL.Path, "error", reqErr.Error()}
	if statusCode >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Warn("request failed", fields...)
	}
	c.AbortWithStatusJSON(statusCode, Response{Status: statusCode, Error: reqErr.GetErrorInfo()})
}
