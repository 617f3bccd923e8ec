package application

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
	repo "github.com/coursehub/enrollment-api/internal/domain/repository"
	"github.com/coursehub/enrollment-api/pkg/lock"
	"github.com/coursehub/enrollment-api/pkg/mailer"
	mailtpl "github.com/coursehub/enrollment-api/pkg/mailer/templates"
)

// RejectReason explains why one course of a batch was not enrolled.
type RejectReason string

const (
	ReasonCourseNotFound   RejectReason = "course not found"
	ReasonCapacityExceeded RejectReason = "capacity exceeded"
	// ReasonAlreadyEnrolled covers a pair committed by another instance
	// between the duplicate check and the commit.
	ReasonAlreadyEnrolled RejectReason = "already enrolled"
	ReasonUnavailable     RejectReason = "temporarily unavailable, try again later"
)

// Counters published on /debug/vars.
var (
	enrollAccepted = expvar.NewInt("enroll_accepted_total")
	enrollRejected = expvar.NewInt("enroll_rejected_total")
	enrollConflict = expvar.NewInt("enroll_conflict_total")
)

// Rejection is a per-course refusal inside an otherwise processed batch.
type Rejection struct {
	CourseID string
	Reason   RejectReason
}

// EnrollResult lists accepted course ids in input order and the rejected ones.
type EnrollResult struct {
	Accepted []string
	Rejected []Rejection
}

// UserEnrollments is what a user currently holds.
type UserEnrollments struct {
	EnrolledCourseIDs []string
	Enrollments       []entity.Enrollment
}

// EnrollmentService is the arbiter deciding, course by course, whether a
// user gets a seat.
type EnrollmentService struct {
	Users       repo.UserRepository
	Courses     repo.CourseRepository
	Enrollments repo.EnrollmentRepository
	Locker      Locker
	LockTimeout time.Duration
	Jobs        JobPublisher
	Index       CourseIndex
	Branding    mailtpl.Branding
	Metrics     EnrollmentRecorder
	Logger      *logrus.Logger

	now   func() time.Time
	newID func() string
}

func NewEnrollmentService(users repo.UserRepository, courses repo.CourseRepository, enrollments repo.EnrollmentRepository, locker Locker, lockTimeout time.Duration, logger *logrus.Logger) *EnrollmentService {
	return &EnrollmentService{
		Users:       users,
		Courses:     courses,
		Enrollments: enrollments,
		Locker:      locker,
		LockTimeout: lockTimeout,
		Logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

func userLockKey(userID string) string     { return "enroll:user:" + userID }
func courseLockKey(courseID string) string { return "enroll:course:" + courseID }

// Enroll tries to take one seat per requested course.
//
// If the user already holds any of the requested courses the whole batch
// fails with *DuplicateEnrollmentError and nothing changes. Otherwise every
// id is decided on its own, in input order; repeated ids count once.
func (s *EnrollmentService) Enroll(ctx context.Context, userID string, courseIDs []string) (*EnrollResult, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	ids := uniqueIDs(courseIDs)

	// Serialize batches of one user so two of them cannot both pass the
	// duplicate check for the same course.
	unlockUser, err := s.lock(ctx, "user", userLockKey(userID))
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case lock.IsTimeout(err):
			s.Logger.WithError(err).WithField("user_id", userID).Warn("enrollment user lock not acquired")
			return nil, ErrEnrollmentBusy
		default:
			return nil, fmt.Errorf("acquire user lock: %w", err)
		}
	}
	defer unlockUser()

	if err := s.checkDuplicates(ctx, userID, ids); err != nil {
		var dup *DuplicateEnrollmentError
		if errors.As(err, &dup) {
			enrollConflict.Add(1)
			if s.Metrics != nil {
				s.Metrics.Conflict()
			}
		}
		return nil, err
	}

	res := &EnrollResult{Accepted: []string{}, Rejected: []Rejection{}}
	var updated []*entity.Course
	for _, id := range ids {
		c, reason := s.enrollOne(ctx, userID, id)
		if reason != "" {
			res.Rejected = append(res.Rejected, Rejection{CourseID: id, Reason: reason})
			continue
		}
		res.Accepted = append(res.Accepted, id)
		updated = append(updated, c)
	}

	enrollAccepted.Add(int64(len(res.Accepted)))
	enrollRejected.Add(int64(len(res.Rejected)))
	if s.Metrics != nil {
		s.Metrics.Accepted(len(res.Accepted))
		for _, r := range res.Rejected {
			s.Metrics.Rejected(string(r.Reason))
		}
	}
	s.Logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"accepted": len(res.Accepted),
		"rejected": len(res.Rejected),
	}).Info("enrollment processed")

	if len(updated) > 0 {
		s.reindex(ctx, updated)
		s.notify(ctx, userID, updated, res.Rejected)
	}
	return res, nil
}

func (s *EnrollmentService) checkDuplicates(ctx context.Context, userID string, ids []string) error {
	var dup []string
	for _, id := range ids {
		ok, err := s.Enrollments.Exists(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("check enrollment %s: %w", id, err)
		}
		if ok {
			dup = append(dup, id)
		}
	}
	if len(dup) == 0 {
		return nil
	}
	titles := make([]string, 0, len(dup))
	for _, id := range dup {
		c, err := s.Courses.GetByID(ctx, id)
		if err != nil {
			titles = append(titles, id)
			continue
		}
		titles = append(titles, c.Title)
	}
	return &DuplicateEnrollmentError{CourseIDs: dup, Titles: titles}
}

// enrollOne runs the capacity check and the commit for one course inside
// that course's critical section. A non-empty reason means rejected.
func (s *EnrollmentService) enrollOne(ctx context.Context, userID, courseID string) (*entity.Course, RejectReason) {
	log := s.Logger.WithFields(logrus.Fields{"user_id": userID, "course_id": courseID})

	unlock, err := s.lock(ctx, "course", courseLockKey(courseID))
	if err != nil {
		log.WithError(err).Warn("enrollment course lock not acquired")
		return nil, ReasonUnavailable
	}
	defer unlock()

	e := &entity.Enrollment{
		ID:        s.newID(),
		UserID:    userID,
		CourseID:  courseID,
		CreatedAt: s.now(),
	}
	c, err := s.Enrollments.Commit(ctx, e)
	switch {
	case err == nil:
		return c, ""
	case errors.Is(err, repo.ErrNotFound):
		return nil, ReasonCourseNotFound
	case errors.Is(err, repo.ErrNoSeats):
		return nil, ReasonCapacityExceeded
	case errors.Is(err, repo.ErrDuplicate):
		return nil, ReasonAlreadyEnrolled
	default:
		log.WithError(err).Error("enrollment commit failed")
		return nil, ReasonUnavailable
	}
}

func (s *EnrollmentService) lock(ctx context.Context, scope, key string) (func(), error) {
	if s.Metrics != nil {
		start := time.Now()
		defer func() { s.Metrics.LockWaited(scope, time.Since(start)) }()
	}
	c := ctx
	if s.LockTimeout > 0 {
		var cancel context.CancelFunc
		c, cancel = context.WithTimeout(ctx, s.LockTimeout)
		defer cancel()
	}
	unlock, err := s.Locker.Lock(c, key)
	if err != nil {
		return nil, err
	}
	return unlock, nil
}

// ListByUser returns the user's enrollments in the order they were made.
func (s *EnrollmentService) ListByUser(ctx context.Context, userID string) (*UserEnrollments, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	list, err := s.Enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	ids := make([]string, 0, len(list))
	for _, e := range list {
		ids = append(ids, e.CourseID)
	}
	return &UserEnrollments{EnrolledCourseIDs: ids, Enrollments: list}, nil
}

func (s *EnrollmentService) reindex(ctx context.Context, courses []*entity.Course) {
	if s.Index == nil {
		return
	}
	for _, c := range courses {
		if err := s.Index.Index(ctx, c); err != nil {
			s.Logger.WithError(err).WithField("course_id", c.ID).Warn("course reindex failed")
		}
	}
}

func (s *EnrollmentService) notify(ctx context.Context, userID string, enrolled []*entity.Course, failed []Rejection) {
	if s.Jobs == nil || s.Users == nil {
		return
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		// Identities from a trusted gateway may have no local account.
		return
	}

	lines := make([]mailtpl.CourseLine, 0, len(enrolled))
	for _, c := range enrolled {
		lines = append(lines, mailtpl.CourseLine{ID: c.ID, Title: c.Title})
	}
	failedLines := make([]mailtpl.CourseLine, 0, len(failed))
	for _, r := range failed {
		failedLines = append(failedLines, mailtpl.CourseLine{ID: r.CourseID, Reason: string(r.Reason)})
	}

	job := mailer.NewTemplateJob(u.Email, mailtpl.EnrollmentConfirmed,
		mailtpl.NewEnrollmentConfirmedData(s.Branding, u.Name, u.Email, lines, failedLines, mailtpl.WithTime(s.now())))
	if err := s.Jobs.PublishJSON(ctx, job); err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn("publish enrollment email failed")
	}
}

// uniqueIDs drops repeated ids, keeping the first occurrence.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
