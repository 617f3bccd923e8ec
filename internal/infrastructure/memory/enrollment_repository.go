package memory

import (
	"context"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
	"github.com/coursehub/enrollment-api/internal/domain/repository"
)

type EnrollmentRepository struct {
	s *Store
}

func (r *EnrollmentRepository) Commit(ctx context.Context, e *entity.Enrollment) (*entity.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.courses[e.CourseID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	key := pairKey{userID: e.UserID, courseID: e.CourseID}
	if _, exists := r.s.enrolledPairs[key]; exists {
		return nil, repository.ErrDuplicate
	}
	if !c.FillSeat(e.CreatedAt) {
		return nil, repository.ErrNoSeats
	}

	r.s.enrollments = append(r.s.enrollments, *e)
	r.s.enrollmentsByUser[e.UserID] = append(r.s.enrollmentsByUser[e.UserID], len(r.s.enrollments)-1)
	r.s.enrolledPairs[key] = struct{}{}

	cp := *c
	return &cp, nil
}

func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]entity.Enrollment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	idx := r.s.enrollmentsByUser[userID]
	out := make([]entity.Enrollment, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.s.enrollments[i])
	}
	return out, nil
}

func (r *EnrollmentRepository) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.enrolledPairs[pairKey{userID: userID, courseID: courseID}]
	return ok, nil
}

var _ repository.EnrollmentRepository = (*EnrollmentRepository)(nil)
