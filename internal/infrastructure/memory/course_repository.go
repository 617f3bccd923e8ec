package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
	"github.com/coursehub/enrollment-api/internal/domain/repository"
)

type CourseRepository struct {
	s *Store
}

func (r *CourseRepository) Create(ctx context.Context, c *entity.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.courses[c.ID]; exists {
		return fmt.Errorf("course %s: %w", c.ID, repository.ErrDuplicate)
	}
	cp := *c
	r.s.courses[c.ID] = &cp
	r.s.courseOrder = append(r.s.courseOrder, c.ID)
	return nil
}

func (r *CourseRepository) GetByID(ctx context.Context, id string) (*entity.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *CourseRepository) List(ctx context.Context) ([]entity.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]entity.Course, 0, len(r.s.courseOrder))
	for i := len(r.s.courseOrder) - 1; i >= 0; i-- {
		out = append(out, *r.s.courses[r.s.courseOrder[i]])
	}
	return out, nil
}

func (r *CourseRepository) SearchByTitle(ctx context.Context, q string, limit int) ([]entity.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(q))
	var out []entity.Course
	for i := len(r.s.courseOrder) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		c := r.s.courses[r.s.courseOrder[i]]
		if strings.Contains(strings.ToLower(c.Title), needle) {
			out = append(out, *c)
		}
	}
	return out, nil
}

var _ repository.CourseRepository = (*CourseRepository)(nil)
