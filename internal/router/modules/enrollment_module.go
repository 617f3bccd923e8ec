package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coursehub/enrollment-api/internal/container"
	handlers "github.com/coursehub/enrollment-api/internal/interface/http"
	"github.com/coursehub/enrollment-api/internal/interface/middleware"
)

type EnrollmentModule struct {
	Handler *handlers.EnrollmentHandler
	AuthCfg middleware.AuthConfig
}

func NewEnrollmentModule(h *handlers.EnrollmentHandler, cfg middleware.AuthConfig) *EnrollmentModule {
	return &EnrollmentModule{Handler: h, AuthCfg: cfg}
}

func (m *EnrollmentModule) Name() string { return "enrollments" }

func (m *EnrollmentModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	auth := rg.Group("/enrollments")
	auth.Use(middleware.Auth(m.AuthCfg))
	auth.Use(middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("", m.Handler.Enroll)
		auth.GET("", m.Handler.List)
	}
}
