package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
	repo "github.com/coursehub/enrollment-api/internal/domain/repository"
	"github.com/coursehub/enrollment-api/pkg/lock"
)

// MockJobPublisher is a mock implementation of JobPublisher
type MockJobPublisher struct {
	mock.Mock
}

func (m *MockJobPublisher) PublishJSON(ctx context.Context, body any) error {
	args := m.Called(ctx, body)
	return args.Error(0)
}

// MockCourseIndex is a mock implementation of CourseIndex
type MockCourseIndex struct {
	mock.Mock
}

func (m *MockCourseIndex) Index(ctx context.Context, c *entity.Course) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCourseIndex) Search(ctx context.Context, q string, size int) ([]string, error) {
	args := m.Called(ctx, q, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// refusingLocker fails keys with the given prefix, with err or a timeout
// when err is nil, and delegates the rest.
type refusingLocker struct {
	prefix string
	inner  Locker
	err    error
}

func (l refusingLocker) Lock(ctx context.Context, key string) (lock.Unlock, error) {
	if strings.HasPrefix(key, l.prefix) {
		if l.err != nil {
			return nil, l.err
		}
		return nil, context.DeadlineExceeded
	}
	return l.inner.Lock(ctx, key)
}

// MockRecorder is a mock implementation of EnrollmentRecorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Accepted(n int)         { m.Called(n) }
func (m *MockRecorder) Rejected(reason string) { m.Called(reason) }
func (m *MockRecorder) Conflict()              { m.Called() }

func (m *MockRecorder) LockWaited(scope string, d time.Duration) {
	m.Called(scope, d)
}

// racyEnrollments checks capacity, yields, then takes the seat. Each step is
// safe on its own but the sequence is not atomic, so only the caller's
// course lock keeps it from overfilling.
type racyEnrollments struct {
	mu       sync.Mutex
	courses  map[string]*entity.Course
	enrolled map[string]bool
	list     []entity.Enrollment
}

func newRacyEnrollments(cs ...*entity.Course) *racyEnrollments {
	r := &racyEnrollments{courses: map[string]*entity.Course{}, enrolled: map[string]bool{}}
	for _, c := range cs {
		cp := *c
		r.courses[c.ID] = &cp
	}
	return r
}

func (r *racyEnrollments) Commit(_ context.Context, e *entity.Enrollment) (*entity.Course, error) {
	r.mu.Lock()
	c, ok := r.courses[e.CourseID]
	if !ok {
		r.mu.Unlock()
		return nil, repo.ErrNotFound
	}
	full := c.SeatsFilled >= c.Capacity
	r.mu.Unlock()
	if full {
		return nil, repo.ErrNoSeats
	}

	time.Sleep(time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	c.SeatsFilled++
	c.EnrollmentRate = entity.EnrollmentRate(c.SeatsFilled, c.Capacity)
	r.enrolled[e.UserID+"/"+e.CourseID] = true
	r.list = append(r.list, *e)
	out := *c
	return &out, nil
}

func (r *racyEnrollments) ListByUser(_ context.Context, userID string) ([]entity.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []entity.Enrollment{}
	for _, e := range r.list {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *racyEnrollments) Exists(_ context.Context, userID, courseID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enrolled[userID+"/"+courseID], nil
}

func (r *racyEnrollments) seats(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.courses[id].SeatsFilled
}

// noopLocker grants every key immediately.
type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (lock.Unlock, error) { return func() {}, nil }
