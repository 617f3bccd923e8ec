package application

import (
	"context"
	"time"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
	"github.com/coursehub/enrollment-api/pkg/lock"
)

// Locker provides mutual exclusion keyed by string. Lock blocks until the
// key is acquired or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (lock.Unlock, error)
}

// JobPublisher hands background jobs (emails) to a queue.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// EnrollmentRecorder receives enrollment outcomes for metrics.
type EnrollmentRecorder interface {
	Accepted(n int)
	Rejected(reason string)
	Conflict()
	LockWaited(scope string, d time.Duration)
}

// CourseIndex is a full-text index over courses.
type CourseIndex interface {
	Index(ctx context.Context, c *entity.Course) error
	Search(ctx context.Context, q string, size int) ([]string, error)
}

// Caller is the authenticated identity making a request.
type Caller struct {
	UserID string
	Role   entity.Role
}
