package repository

import (
	"context"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
)

// CourseRepository stores courses. Reads return copies; callers never hold
// live references into the store.
type CourseRepository interface {
	// Create inserts c at the head of the store order.
	Create(ctx context.Context, c *entity.Course) error
	GetByID(ctx context.Context, id string) (*entity.Course, error)
	// List returns every course in store order (most recently inserted first).
	List(ctx context.Context) ([]entity.Course, error)
	// SearchByTitle returns up to limit courses whose title contains q, case-insensitively.
	SearchByTitle(ctx context.Context, q string, limit int) ([]entity.Course, error)
}
