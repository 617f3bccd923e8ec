package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/coursehub/enrollment-api/config"
	app "github.com/coursehub/enrollment-api/internal/application"
	"github.com/coursehub/enrollment-api/internal/domain/repository"
	"github.com/coursehub/enrollment-api/internal/infrastructure/metrics"
	"github.com/coursehub/enrollment-api/pkg/helpers"
	"github.com/coursehub/enrollment-api/pkg/lock"
	mailtpl "github.com/coursehub/enrollment-api/pkg/mailer/templates"
)

// app-level container to share constructed components across packages.
// Router wires modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	esClient    *elasticsearch.Client

	store       repository.Store
	locker      app.Locker
	jobs        app.JobPublisher
	courseIndex app.CourseIndex

	jwtManager *helpers.JWTManager
	collector  *metrics.Collector
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config {
	if cfg == nil {
		cfg = config.Load()
	}
	return cfg
}

func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return logger
}

func SetPGPool(p *pgxpool.Pool)        { pgPool = p }
func GetPGPool() *pgxpool.Pool         { return pgPool }
func SetRedis(r *redis.Client)         { redisClient = r }
func GetRedis() *redis.Client          { return redisClient }
func SetES(c *elasticsearch.Client)    { esClient = c }
func GetES() *elasticsearch.Client     { return esClient }
func SetStore(s repository.Store)      { store = s }
func GetStore() repository.Store       { return store }
func SetJobs(p app.JobPublisher)       { jobs = p }
func GetJobs() app.JobPublisher        { return jobs }
func SetCourseIndex(i app.CourseIndex) { courseIndex = i }
func GetCourseIndex() app.CourseIndex  { return courseIndex }
func SetJWT(m *helpers.JWTManager)     { jwtManager = m }

func GetJWT() *helpers.JWTManager {
	if jwtManager == nil {
		c := GetConfig()
		jwtManager = helpers.NewJWTManager(c.JWTAccessSecret, c.JWTRefreshSecret, c.AccessTTL, c.RefreshTTL)
	}
	return jwtManager
}

func SetLocker(l app.Locker) { locker = l }

// SetMetrics installs the Prometheus collector. Without one no series are
// recorded and /debug/metrics is not mounted.
func SetMetrics(c *metrics.Collector) { collector = c }
func GetMetrics() *metrics.Collector  { return collector }

// GetLocker falls back to an in-process keyed mutex, which is only correct
// for a single instance.
func GetLocker() app.Locker {
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	return locker
}

// Branding returns the email branding built from config.
func Branding() mailtpl.Branding {
	c := GetConfig()
	return mailtpl.Branding{
		CompanyName: c.CompanyName,
		AppName:     c.AppName,
		SupportURL:  c.SupportURL,
		CoursesURL:  c.CoursesURL,
	}
}

// Reset clears every singleton. Tests use it between cases.
func Reset() {
	cfg, logger, pgPool, redisClient, esClient = nil, nil, nil, nil, nil
	store, locker, jobs, courseIndex = nil, nil, nil, nil
	jwtManager, collector = nil, nil
}
