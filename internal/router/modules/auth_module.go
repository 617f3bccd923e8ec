package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coursehub/enrollment-api/internal/container"
	handlers "github.com/coursehub/enrollment-api/internal/interface/http"
	"github.com/coursehub/enrollment-api/internal/interface/middleware"
)

// AuthModule serves signup, login and the session endpoints.
// Public: POST /auth/signup, /auth/login, /auth/refresh
// Protected: POST /auth/logout, GET /auth/me
type AuthModule struct {
	Handler *handlers.AuthHandler
	AuthCfg middleware.AuthConfig
}

func NewAuthModule(h *handlers.AuthHandler, cfg middleware.AuthConfig) *AuthModule {
	return &AuthModule{Handler: h, AuthCfg: cfg}
}

func (m *AuthModule) Name() string { return "auth" }

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	signupLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	refreshLimiter := middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/auth/signup", signupLimiter, m.Handler.Signup)
	rg.POST("/auth/login", loginLimiter, m.Handler.Login)
	rg.POST("/auth/refresh", refreshLimiter, m.Handler.Refresh)

	auth := rg.Group("/auth")
	auth.Use(middleware.Auth(m.AuthCfg))
	{
		auth.POST("/logout", m.Handler.Logout)
		auth.GET("/me", m.Handler.Me)
	}
}
