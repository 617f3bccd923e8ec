package repository

import (
	"context"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
)

// EnrollmentRepository stores enrollments and owns the seat increment that
// goes with each of them.
type EnrollmentRepository interface {
	// Commit takes one seat of e.CourseID and records e as a single unit.
	// It returns the updated course, or ErrNotFound, ErrNoSeats or
	// ErrDuplicate without changing anything.
	Commit(ctx context.Context, e *entity.Enrollment) (*entity.Course, error)
	ListByUser(ctx context.Context, userID string) ([]entity.Enrollment, error)
	Exists(ctx context.Context, userID, courseID string) (bool, error)
}
