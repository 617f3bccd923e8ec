package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// Cookie writes the session token pair as HttpOnly cookies.
type Cookie struct {
	Domain string
	Secure bool
}

func NewCookie(domain string, secure bool) *Cookie {
	return &Cookie{Domain: domain, Secure: secure}
}

func (m *Cookie) SetPair(c *gin.Context, access string, aexp time.Time, refresh string, rexp time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, access, maxAgeFrom(aexp), "/", m.Domain, m.Secure, true)
	c.SetCookie(RefreshCookie, refresh, maxAgeFrom(rexp), "/", m.Domain, m.Secure, true)
}

func (m *Cookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, "", -1, "/", m.Domain, m.Secure, true)
	c.SetCookie(RefreshCookie, "", -1, "/", m.Domain, m.Secure, true)
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
