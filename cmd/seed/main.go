package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/coursehub/enrollment-api/config"
	pginfra "github.com/coursehub/enrollment-api/internal/infrastructure/postgres"
	"github.com/coursehub/enrollment-api/internal/infrastructure/search"
	"github.com/coursehub/enrollment-api/internal/infrastructure/seed"
	"github.com/coursehub/enrollment-api/pkg/helpers"
)

// Seeds the Postgres store with the demo accounts and courses, then
// (optionally) pushes every course into the Elasticsearch index.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	count := flag.Int("courses", cfg.SeedCourseCount, "number of demo courses")
	reindex := flag.Bool("reindex", len(cfg.ESAddrs()) > 0, "index every course in Elasticsearch")
	seedValue := flag.Int64("rand-seed", time.Now().UnixNano(), "random seed for demo courses")
	flag.Parse()

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	store := pginfra.NewStore(pool)

	users, courses, err := seed.Load(ctx, store.Users(), store.Courses(), helpers.HashPassword, *count, rand.New(rand.NewSource(*seedValue)))
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	logger.WithFields(logrus.Fields{"users": users, "courses": courses}).Info("demo data seeded")
	logger.Infof("test accounts: %s / %s, %s / %s",
		seed.StudentEmail, seed.StudentPassword, seed.InstructorEmail, seed.InstructorPassword)

	if !*reindex {
		return
	}
	es, err := helpers.NewESClient(ctx, cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		log.Fatalf("elasticsearch: %v", err)
	}
	idx := search.NewCourseIndex(es, cfg.ESCoursesIndex)
	if err := idx.EnsureIndex(ctx); err != nil {
		log.Fatalf("ensure index: %v", err)
	}
	all, err := store.Courses().List(ctx)
	if err != nil {
		log.Fatalf("list courses: %v", err)
	}
	failed := 0
	for i := range all {
		if err := idx.Index(ctx, &all[i]); err != nil {
			failed++
			logger.WithError(err).WithField("course_id", all[i].ID).Warn("index course failed")
		}
	}
	logger.WithFields(logrus.Fields{"indexed": len(all) - failed, "failed": failed}).Info("course index rebuilt")
}
