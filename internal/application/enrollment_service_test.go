package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
	"github.com/coursehub/enrollment-api/internal/infrastructure/memory"
	"github.com/coursehub/enrollment-api/pkg/helpers"
	"github.com/coursehub/enrollment-api/pkg/lock"
	"github.com/coursehub/enrollment-api/pkg/mailer"
	mailtpl "github.com/coursehub/enrollment-api/pkg/mailer/templates"
)

func newEnrollmentFixture(t *testing.T, courses ...*entity.Course) (*EnrollmentService, *memory.Store) {
	t.Helper()
	s := memory.NewStore()
	for _, c := range courses {
		require.NoError(t, s.Courses().Create(context.Background(), c))
	}
	svc := NewEnrollmentService(s.Users(), s.Courses(), s.Enrollments(), lock.NewKeyedMutex(), time.Second, helpers.NewDiscardLogger())
	return svc, s
}

func course(id string, capacity, seats int) *entity.Course {
	now := time.Now().UTC()
	return &entity.Course{
		ID: id, Title: "Title " + id, Capacity: capacity, SeatsFilled: seats,
		EnrollmentRate: entity.EnrollmentRate(seats, capacity), CreatedAt: now, UpdatedAt: now,
	}
}

func seats(t *testing.T, s *memory.Store, id string) int {
	t.Helper()
	c, err := s.Courses().GetByID(context.Background(), id)
	require.NoError(t, err)
	return c.SeatsFilled
}

func TestEnroll_RequiresUser(t *testing.T) {
	svc, _ := newEnrollmentFixture(t, course("c1", 10, 0))
	_, err := svc.Enroll(context.Background(), "", []string{"c1"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestEnroll_FullCourseRejectedWithoutMutation(t *testing.T) {
	svc, s := newEnrollmentFixture(t, course("c1", 10, 10))
	before, _ := s.Courses().GetByID(context.Background(), "c1")

	res, err := svc.Enroll(context.Background(), "u1", []string{"c1"})
	require.NoError(t, err)
	assert.Empty(t, res.Accepted)
	assert.Equal(t, []Rejection{{CourseID: "c1", Reason: ReasonCapacityExceeded}}, res.Rejected)

	after, _ := s.Courses().GetByID(context.Background(), "c1")
	assert.Equal(t, 10, after.SeatsFilled)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	list, _ := s.Enrollments().ListByUser(context.Background(), "u1")
	assert.Empty(t, list)
}

func TestEnroll_PartialSuccessInInputOrder(t *testing.T) {
	svc, s := newEnrollmentFixture(t, course("a", 5, 0), course("full", 1, 1), course("b", 5, 4))

	res, err := svc.Enroll(context.Background(), "u1", []string{"b", "missing", "full", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, res.Accepted)
	assert.Equal(t, []Rejection{
		{CourseID: "missing", Reason: ReasonCourseNotFound},
		{CourseID: "full", Reason: ReasonCapacityExceeded},
	}, res.Rejected)

	assert.Equal(t, 1, seats(t, s, "a"))
	assert.Equal(t, 5, seats(t, s, "b"))
	c, _ := s.Courses().GetByID(context.Background(), "b")
	assert.Equal(t, 1.0, c.EnrollmentRate)
}

func TestEnroll_DuplicateRejectsWholeBatch(t *testing.T) {
	svc, s := newEnrollmentFixture(t, course("c1", 10, 0), course("c2", 10, 0))
	ctx := context.Background()

	_, err := svc.Enroll(ctx, "u1", []string{"c1"})
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, "u1", []string{"c2", "c1"})
	var dup *DuplicateEnrollmentError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, []string{"c1"}, dup.CourseIDs)
	assert.Equal(t, []string{"Title c1"}, dup.Titles)
	assert.Contains(t, dup.Error(), "Title c1")

	assert.Equal(t, 0, seats(t, s, "c2"))
	assert.Equal(t, 1, seats(t, s, "c1"))
	out, err := svc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, out.EnrolledCourseIDs)
}

func TestEnroll_RepeatedIDsCountOnce(t *testing.T) {
	svc, s := newEnrollmentFixture(t, course("c1", 10, 0))

	res, err := svc.Enroll(context.Background(), "u1", []string{"c1", "c1", "c1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, res.Accepted)
	assert.Empty(t, res.Rejected)
	assert.Equal(t, 1, seats(t, s, "c1"))
}

func TestEnroll_ConcurrentUsersNeverOverfill(t *testing.T) {
	const capacity, users = 5, 60
	svc, s := newEnrollmentFixture(t, course("hot", capacity, 0))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Enroll(context.Background(), fmt.Sprintf("u%d", i), []string{"hot"})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			accepted += len(res.Accepted)
			for _, r := range res.Rejected {
				assert.Equal(t, ReasonCapacityExceeded, r.Reason)
				rejected++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, capacity, accepted)
	assert.Equal(t, users-capacity, rejected)
	assert.Equal(t, capacity, seats(t, s, "hot"))
}

func TestEnroll_ConcurrentBatchesOfOneUser(t *testing.T) {
	svc, s := newEnrollmentFixture(t, course("c1", 100, 0))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, dup int
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Enroll(context.Background(), "u1", []string{"c1"})
			mu.Lock()
			defer mu.Unlock()
			var de *DuplicateEnrollmentError
			switch {
			case err == nil && len(res.Accepted) == 1:
				ok++
			case errors.As(err, &de):
				dup++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, dup)
	assert.Equal(t, 1, seats(t, s, "c1"))
}

func TestEnroll_UserLockTimeoutIsBusy(t *testing.T) {
	svc, s := newEnrollmentFixture(t, course("c1", 10, 0))
	svc.Locker = refusingLocker{prefix: "enroll:user:", inner: lock.NewKeyedMutex()}

	_, err := svc.Enroll(context.Background(), "u1", []string{"c1"})
	assert.ErrorIs(t, err, ErrEnrollmentBusy)
	assert.Equal(t, 0, seats(t, s, "c1"))
}

func TestEnroll_UserLockBackendFailureIsNotBusy(t *testing.T) {
	svc, s := newEnrollmentFixture(t, course("c1", 10, 0))
	down := errors.New("redis: connection refused")
	svc.Locker = refusingLocker{prefix: "enroll:user:", inner: lock.NewKeyedMutex(), err: down}

	_, err := svc.Enroll(context.Background(), "u1", []string{"c1"})
	assert.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, ErrEnrollmentBusy)
	assert.Equal(t, 0, seats(t, s, "c1"))
}

func TestEnroll_CallerCancelledIsNotBusy(t *testing.T) {
	svc, _ := newEnrollmentFixture(t, course("c1", 10, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Locker = refusingLocker{prefix: "enroll:user:", inner: lock.NewKeyedMutex(), err: context.Canceled}

	_, err := svc.Enroll(ctx, "u1", []string{"c1"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrEnrollmentBusy)
}

func TestEnroll_CourseLockTimeoutRejectsItem(t *testing.T) {
	svc, s := newEnrollmentFixture(t, course("c1", 10, 0), course("c2", 10, 0))
	svc.Locker = refusingLocker{prefix: "enroll:course:c1", inner: lock.NewKeyedMutex()}

	res, err := svc.Enroll(context.Background(), "u1", []string{"c1", "c2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, res.Accepted)
	assert.Equal(t, []Rejection{{CourseID: "c1", Reason: ReasonUnavailable}}, res.Rejected)
	assert.Equal(t, 0, seats(t, s, "c1"))
}

func TestEnroll_PublishesConfirmationAndReindexes(t *testing.T) {
	svc, s := newEnrollmentFixture(t, course("c1", 10, 0), course("c2", 1, 1))
	ctx := context.Background()
	require.NoError(t, s.Users().Create(ctx, &entity.User{ID: "u1", Name: "Kim", Email: "kim@test.com", Phone: "010-1111-1111"}))

	jobs := new(MockJobPublisher)
	jobs.On("PublishJSON", mock.Anything, mock.MatchedBy(func(j mailer.EmailJob) bool {
		return j.To == "kim@test.com" && j.Template == mailtpl.EnrollmentConfirmed
	})).Return(nil).Once()
	idx := new(MockCourseIndex)
	idx.On("Index", mock.Anything, mock.MatchedBy(func(c *entity.Course) bool {
		return c.ID == "c1" && c.SeatsFilled == 1
	})).Return(errors.New("es down")).Once()
	svc.Jobs = jobs
	svc.Index = idx

	res, err := svc.Enroll(ctx, "u1", []string{"c1", "c2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, res.Accepted)

	jobs.AssertExpectations(t)
	idx.AssertExpectations(t)
}

func TestEnroll_NoJobWhenNothingAccepted(t *testing.T) {
	svc, _ := newEnrollmentFixture(t, course("c1", 1, 1))
	jobs := new(MockJobPublisher)
	svc.Jobs = jobs

	_, err := svc.Enroll(context.Background(), "u1", []string{"c1"})
	require.NoError(t, err)
	jobs.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestListByUser(t *testing.T) {
	svc, _ := newEnrollmentFixture(t, course("c1", 10, 0), course("c2", 10, 0))
	ctx := context.Background()

	_, err := svc.ListByUser(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Enroll(ctx, "u1", []string{"c2", "c1"})
	require.NoError(t, err)

	out, err := svc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c2", "c1"}, out.EnrolledCourseIDs)
	require.Len(t, out.Enrollments, 2)
	assert.NotEmpty(t, out.Enrollments[0].ID)
	assert.Equal(t, "u1", out.Enrollments[0].UserID)

	empty, err := svc.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty.EnrolledCourseIDs)
}

func TestEnroll_RecordsMetrics(t *testing.T) {
	svc, _ := newEnrollmentFixture(t, course("a", 5, 0), course("full", 1, 1))
	rec := &MockRecorder{}
	rec.On("LockWaited", mock.Anything, mock.Anything).Return()
	rec.On("Accepted", 1).Return().Once()
	rec.On("Rejected", string(ReasonCapacityExceeded)).Return().Once()
	rec.On("Conflict").Return().Once()
	svc.Metrics = rec
	ctx := context.Background()

	_, err := svc.Enroll(ctx, "u1", []string{"a", "full"})
	require.NoError(t, err)
	_, err = svc.Enroll(ctx, "u1", []string{"a"})
	require.Error(t, err)

	rec.AssertExpectations(t)
	rec.AssertCalled(t, "LockWaited", "user", mock.Anything)
	rec.AssertCalled(t, "LockWaited", "course", mock.Anything)
}

func racyEnroll(t *testing.T, locker Locker, capacity, users int) (accepted int, seatsTaken int) {
	t.Helper()
	hot := course("hot", capacity, 0)
	store := newRacyEnrollments(hot)
	svc := NewEnrollmentService(nil, nil, store, locker, 5*time.Second, helpers.NewDiscardLogger())

	var wg sync.WaitGroup
	var mu sync.Mutex
	start := make(chan struct{})
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			res, err := svc.Enroll(context.Background(), fmt.Sprintf("u%d", i), []string{"hot"})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			accepted += len(res.Accepted)
			mu.Unlock()
		}(i)
	}
	close(start)
	wg.Wait()
	return accepted, store.seats("hot")
}

func TestEnroll_CourseLockSerializesNonAtomicStore(t *testing.T) {
	accepted, taken := racyEnroll(t, lock.NewKeyedMutex(), 3, 40)
	assert.Equal(t, 3, accepted)
	assert.Equal(t, 3, taken)
}

func TestEnroll_NonAtomicStoreOverfillsWithoutLock(t *testing.T) {
	// The double must overfill without a lock for the test above to hold.
	accepted, taken := racyEnroll(t, noopLocker{}, 3, 40)
	assert.Greater(t, taken, 3)
	assert.Equal(t, taken, accepted)
}
