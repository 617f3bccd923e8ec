package router

import (
	"context"

	app "github.com/coursehub/enrollment-api/internal/application"
	"github.com/coursehub/enrollment-api/internal/container"
	handlers "github.com/coursehub/enrollment-api/internal/interface/http"
	"github.com/coursehub/enrollment-api/internal/interface/middleware"
	"github.com/coursehub/enrollment-api/internal/router/modules"
	"github.com/coursehub/enrollment-api/pkg/helpers"
)

// Services groups the application services built from the container.
type Services struct {
	Auth        *app.Service
	Courses     *app.CourseService
	Enrollments *app.EnrollmentService
}

// BuildServices constructs the application services over the container's
// store and optional infrastructure.
func BuildServices() Services {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	store := container.GetStore()
	branding := container.Branding()

	auth := app.NewService(store.Users(), container.GetJWT(), container.GetRedis(), logger)
	auth.Jobs = container.GetJobs()
	auth.Branding = branding

	courses := app.NewCourseService(store.Users(), store.Courses(), logger)
	courses.Index = container.GetCourseIndex()
	courses.Redis = container.GetRedis()

	enrollments := app.NewEnrollmentService(store.Users(), store.Courses(), store.Enrollments(),
		container.GetLocker(), cfg.EnrollLockTimeout, logger)
	enrollments.Jobs = container.GetJobs()
	enrollments.Index = container.GetCourseIndex()
	enrollments.Branding = branding
	if m := container.GetMetrics(); m != nil {
		enrollments.Metrics = m
	}

	return Services{Auth: auth, Courses: courses, Enrollments: enrollments}
}

func healthChecks() map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{}
	if pool := container.GetPGPool(); pool != nil {
		checks["postgres"] = pool.Ping
	}
	if rdb := container.GetRedis(); rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}

// InitModules initializes all application modules and registers them with the router registry.
// Call once during startup after the container is populated.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	if r.Logger == nil {
		r.Logger = logger
	}
	svc := BuildServices()

	authCfg := middleware.AuthConfig{
		JWT:          container.GetJWT(),
		Sessions:     svc.Auth,
		TrustHeaders: cfg.TrustIdentityHeaders,
	}
	cookies := helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure)

	r.Add(modules.NewHealthModule(handlers.NewHealthHandler(healthChecks())))
	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(svc.Auth, logger, cookies), authCfg))
	r.Add(modules.NewCourseModule(handlers.NewCourseHandler(svc.Courses, logger), authCfg))
	r.Add(modules.NewEnrollmentModule(handlers.NewEnrollmentHandler(svc.Enrollments, logger, cfg.EnrollMaxBatch), authCfg))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(container.GetMetrics()))
	}
}
