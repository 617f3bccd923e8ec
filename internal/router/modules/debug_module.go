package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coursehub/enrollment-api/internal/container"
	"github.com/coursehub/enrollment-api/internal/infrastructure/metrics"
	"github.com/coursehub/enrollment-api/internal/interface/middleware"
)

type DebugModule struct {
	Metrics *metrics.Collector
}

func NewDebugModule(m *metrics.Collector) *DebugModule { return &DebugModule{Metrics: m} }

func (m *DebugModule) Name() string { return "debug" }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// expvar, rate-limited per IP; private networks are not limited
	rl := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
	if m.Metrics != nil {
		rg.GET("/debug/metrics", rl, gin.WrapH(m.Metrics.Handler()))
	}
}
