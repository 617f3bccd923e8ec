package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
	"github.com/coursehub/enrollment-api/internal/domain/repository"
)

const courseColumns = `id, title, capacity, price, instructor_id, instructor_name, seats_filled, enrollment_rate, created_at, updated_at`

// CourseRepository keeps store order in the seq column: a higher seq was
// inserted later and lists first.
type CourseRepository struct {
	db DB
}

func NewCourseRepository(db DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) Create(ctx context.Context, c *entity.Course) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO courses (`+courseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.ID, c.Title, c.Capacity, c.Price, c.InstructorID, c.InstructorName,
		c.SeatsFilled, c.EnrollmentRate, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return fmt.Errorf("course %s: %w", c.ID, repository.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *CourseRepository) GetByID(ctx context.Context, id string) (*entity.Course, error) {
	c, err := scanCourse(r.db.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *CourseRepository) List(ctx context.Context) ([]entity.Course, error) {
	rows, err := r.db.Query(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY seq DESC`)
	if err != nil {
		return nil, err
	}
	return collectCourses(rows)
}

func (r *CourseRepository) SearchByTitle(ctx context.Context, q string, limit int) ([]entity.Course, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+courseColumns+`
		FROM courses
		WHERE title ILIKE $1 ESCAPE '\'
		ORDER BY seq DESC
		LIMIT $2
	`, containsPattern(q), limit)
	if err != nil {
		return nil, err
	}
	return collectCourses(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns q into an ILIKE pattern matching q literally
// anywhere in the value.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

func scanCourse(row pgx.Row) (*entity.Course, error) {
	c := &entity.Course{}
	if err := row.Scan(&c.ID, &c.Title, &c.Capacity, &c.Price, &c.InstructorID, &c.InstructorName,
		&c.SeatsFilled, &c.EnrollmentRate, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func collectCourses(rows pgx.Rows) ([]entity.Course, error) {
	defer rows.Close()
	out := []entity.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

var _ repository.CourseRepository = (*CourseRepository)(nil)
