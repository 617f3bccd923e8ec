package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// CtxRealIPKey holds the client address used for rate limits and logs.
const CtxRealIPKey = "real_ip"

// RealIP resolves the client address once per request. With trustProxy the
// first parseable address from CF-Connecting-IP, X-Real-IP or the left-most
// X-Forwarded-For hop wins; otherwise, and as a fallback, the peer address is
// used.
func RealIP(trustProxy bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.RemoteIP()
		if trustProxy {
			if p := proxiedIP(c); p != "" {
				ip = p
			}
		}
		c.Set(CtxRealIPKey, ip)
		c.Next()
	}
}

func proxiedIP(c *gin.Context) string {
	candidates := []string{c.GetHeader("CF-Connecting-IP"), c.GetHeader("X-Real-IP")}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		candidates = append(candidates, first)
	}
	for _, v := range candidates {
		if ip := net.ParseIP(strings.TrimSpace(v)); ip != nil {
			return ip.String()
		}
	}
	return ""
}
