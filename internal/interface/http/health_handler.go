package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coursehub/enrollment-api/pkg/response"
)

// Pinger is a dependency whose reachability is reported by /healthz.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	Checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{Checks: checks}
}

// Health GET /api/healthz
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, ping := range h.Checks {
		if err := ping(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		response.Error[any](c, http.StatusServiceUnavailable, "unhealthy", status)
		return
	}
	response.Success(c, http.StatusOK, status, "ok", nil)
}
