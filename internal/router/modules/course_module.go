package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coursehub/enrollment-api/internal/container"
	"github.com/coursehub/enrollment-api/internal/domain/entity"
	handlers "github.com/coursehub/enrollment-api/internal/interface/http"
	"github.com/coursehub/enrollment-api/internal/interface/middleware"
)

// CourseModule serves the course catalogue. Listing and lookup are public;
// creation requires an instructor.
type CourseModule struct {
	Handler *handlers.CourseHandler
	AuthCfg middleware.AuthConfig
}

func NewCourseModule(h *handlers.CourseHandler, cfg middleware.AuthConfig) *CourseModule {
	return &CourseModule{Handler: h, AuthCfg: cfg}
}

func (m *CourseModule) Name() string { return "courses" }

func (m *CourseModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	readLimiter := middleware.RateLimit(rdb, 300, time.Minute, middleware.KeyByIP(), nil)

	courses := rg.Group("/courses")
	courses.GET("", readLimiter, m.Handler.List)
	courses.GET("/search", readLimiter, m.Handler.Search)
	courses.GET("/:id", readLimiter, m.Handler.Get)
	courses.POST("",
		middleware.Auth(m.AuthCfg),
		middleware.RequireRole(entity.RoleInstructor),
		middleware.RateLimit(rdb, 30, time.Minute, middleware.KeyByUserID(), nil),
		m.Handler.Create,
	)
}
