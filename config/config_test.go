package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("ENROLL_LOCK_TIMEOUT", "")
	t.Setenv("ENROLL_MAX_BATCH", "")
	t.Setenv("SEED_COURSE_COUNT", "")
	t.Setenv("PORT", "")
	t.Setenv("TRUST_IDENTITY_HEADERS", "")

	cfg := Load()

	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.EnrollLockTimeout)
	assert.Equal(t, 100, cfg.EnrollMaxBatch)
	assert.Equal(t, 1000, cfg.SeedCourseCount)
	assert.False(t, cfg.TrustIdentityHeaders)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("ENROLL_LOCK_TIMEOUT", "250ms")
	t.Setenv("TRUST_IDENTITY_HEADERS", "true")
	t.Setenv("SEED_COURSE_COUNT", "25")

	cfg := Load()

	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, 250*time.Millisecond, cfg.EnrollLockTimeout)
	assert.True(t, cfg.TrustIdentityHeaders)
	assert.Equal(t, 25, cfg.SeedCourseCount)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ENROLL_MAX_BATCH", "lots")
	t.Setenv("COOKIE_SECURE", "maybe")
	t.Setenv("JWT_ACCESS_TTL", "soon")

	cfg := Load()

	assert.Equal(t, 100, cfg.EnrollMaxBatch)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, time.Hour, cfg.AccessTTL)
}

func TestSplitLists(t *testing.T) {
	cfg := &Config{
		CORSAllowedOrigins: " http://a.test , ,http://b.test",
		ElasticsearchAddrs: "",
	}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins())
	assert.Empty(t, cfg.ESAddrs())
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "d", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", cfg.PostgresDSN())
}
