package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/coursehub/enrollment-api/config"
	"github.com/coursehub/enrollment-api/internal/container"
	"github.com/coursehub/enrollment-api/internal/infrastructure/memory"
	"github.com/coursehub/enrollment-api/internal/infrastructure/metrics"
	pginfra "github.com/coursehub/enrollment-api/internal/infrastructure/postgres"
	"github.com/coursehub/enrollment-api/internal/infrastructure/search"
	"github.com/coursehub/enrollment-api/internal/infrastructure/seed"
	"github.com/coursehub/enrollment-api/internal/interface/middleware"
	"github.com/coursehub/enrollment-api/internal/router"
	"github.com/coursehub/enrollment-api/pkg/helpers"
	"github.com/coursehub/enrollment-api/pkg/lock"
	"github.com/coursehub/enrollment-api/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()
	container.SetConfig(cfg)
	container.SetLogger(logger)

	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		container.SetPGPool(pool)
		container.SetStore(pginfra.NewStore(pool))
	case config.StoreMemory:
		store := memory.NewStore()
		if cfg.SeedDemoData {
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			users, courses, err := seed.Load(ctx, store.Users(), store.Courses(), helpers.HashPassword, cfg.SeedCourseCount, rng)
			if err != nil {
				log.Fatalf("seed demo data: %v", err)
			}
			logger.WithFields(logrus.Fields{"users": users, "courses": courses}).Info("demo data seeded")
		}
		container.SetStore(store)
	default:
		log.Fatalf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	// Redis (optional): sessions, rate limits, search cache and shared enrollment locks
	if cfg.RedisAddr != "" {
		rdb, err := helpers.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer func() { _ = rdb.Close() }()
		container.SetRedis(rdb)
		container.SetLocker(lock.NewRedisLocker(rdb, "lock:", cfg.EnrollLockTTL))
	} else {
		logger.Warn("REDIS_ADDR not set; using in-process enrollment locks, run a single instance")
		container.SetLocker(lock.NewKeyedMutex())
	}

	// RabbitMQ (optional): email jobs for the notify worker
	if cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable; email jobs disabled")
		} else {
			defer pub.Close()
			container.SetJobs(pub)
		}
	}

	// Elasticsearch (optional): course search
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(ctx, addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Warn("elasticsearch unavailable; search falls back to the store")
		} else {
			idx := search.NewCourseIndex(es, cfg.ESCoursesIndex)
			if err := idx.EnsureIndex(ctx); err != nil {
				logger.WithError(err).Warn("course index not ready")
			}
			container.SetES(es)
			container.SetCourseIndex(idx)
		}
	}

	container.SetJWT(helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL))
	if cfg.DebugMetricsEnabled {
		container.SetMetrics(metrics.New())
	}

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP(cfg.TrustProxyHeaders))
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID, middleware.HeaderUserID, middleware.HeaderUserType},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))
	if m := container.GetMetrics(); m != nil {
		r.Use(middleware.Metrics(m))
	}
	if cfg.HTTPLogEnabled {
		r.Use(helpers.GinLogger(logger))
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s (store=%s)", cfg.Port, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
		return
	}
	logger.Info("server exited properly")
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}
