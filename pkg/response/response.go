package response

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the Gin context key carrying the request id.
const RequestIDKey = "request_id"

// APIResponse is the envelope of every JSON response.
type APIResponse[T any] struct {
	Status    int         `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id"`
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      T           `json:"data,omitempty"`
	Meta      interface{} `json:"meta,omitempty"`
	Error     interface{} `json:"error,omitempty"`
}

// Success writes a success envelope and returns it.
func Success[T any](ctx *gin.Context, status int, data T, message string, meta interface{}) APIResponse[T] {
	if status == 0 {
		status = http.StatusOK
	}
	res := APIResponse[T]{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString(RequestIDKey),
		Success:   true,
		Message:   message,
		Data:      data,
		Meta:      meta,
	}
	ctx.JSON(status, res)
	return res
}

// Error aborts the chain with an error envelope and returns it.
func Error[T any](ctx *gin.Context, status int, message string, err interface{}) APIResponse[T] {
	if status == 0 {
		status = http.StatusBadRequest
	}
	res := APIResponse[T]{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString(RequestIDKey),
		Success:   false,
		Message:   message,
		Error:     err,
	}
	ctx.AbortWithStatusJSON(status, res)
	return res
}

// Unavailable aborts with 503 and a Retry-After hint in whole seconds.
func Unavailable(ctx *gin.Context, retryAfter time.Duration, message string) APIResponse[any] {
	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	ctx.Header("Retry-After", strconv.Itoa(secs))
	return Error[any](ctx, http.StatusServiceUnavailable, message, nil)
}
