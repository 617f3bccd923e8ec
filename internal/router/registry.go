package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/coursehub/enrollment-api/pkg/response"
)

// Module is a feature that registers its routes on the /api group.
type Module interface {
	Name() string
	Register(rg *gin.RouterGroup)
}

// Registry collects modules and shared /api middleware, then mounts them in
// the order they were added.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	Logger      *logrus.Logger
	middlewares []gin.HandlerFunc
	modules     []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	api := engine.Group("/api")
	return &Registry{Engine: engine, API: api}
}

func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

func (r *Registry) RegisterAll() {
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		m.Register(r.API)
		if r.Logger != nil {
			r.Logger.WithField("module", m.Name()).Debug("module registered")
		}
	}
	r.Engine.NoRoute(func(c *gin.Context) {
		response.Error[any](c, http.StatusNotFound, "route not found", nil)
	})
}

// Modules returns the names of the added modules in registration order.
func (r *Registry) Modules() []string {
	names := make([]string, 0, len(r.modules))
	for _, m := range r.modules {
		names = append(names, m.Name())
	}
	return names
}
