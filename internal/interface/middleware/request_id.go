package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coursehub/enrollment-api/pkg/response"
)

const HeaderRequestID = "X-Request-ID"

const maxRequestIDLen = 64

// RequestIDMiddleware stores a request id in the Gin context and echoes it in
// the response. An incoming X-Request-ID is reused when it is short and
// printable ASCII; anything else gets a fresh uuid.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		c.Set(response.RequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
