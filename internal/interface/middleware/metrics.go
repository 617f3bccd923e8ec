package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPObserver records finished requests.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
}

// Metrics times every request and reports it under its route pattern.
func Metrics(obs HTTPObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		obs.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
