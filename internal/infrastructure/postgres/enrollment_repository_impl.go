package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
	"github.com/coursehub/enrollment-api/internal/domain/repository"
)

type EnrollmentRepository struct {
	db DB
}

func NewEnrollmentRepository(db DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Commit inserts the enrollment and takes the seat in one transaction. The
// seat update is conditional on a free seat, so capacity holds even when
// several instances commit to the same course.
func (r *EnrollmentRepository) Commit(ctx context.Context, e *entity.Enrollment) (*entity.Course, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO enrollments (id, user_id, course_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, e.ID, e.UserID, e.CourseID, e.CreatedAt)
	if err != nil {
		switch pgCode(err) {
		case codeForeignKeyViolation:
			return nil, repository.ErrNotFound
		case codeUniqueViolation:
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}

	c, err := scanCourse(tx.QueryRow(ctx, `
		UPDATE courses
		SET seats_filled = seats_filled + 1,
		    enrollment_rate = (seats_filled + 1)::double precision / capacity,
		    updated_at = $2
		WHERE id = $1 AND seats_filled < capacity
		RETURNING `+courseColumns, e.CourseID, e.CreatedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNoSeats
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]entity.Enrollment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, course_id, created_at
		FROM enrollments
		WHERE user_id = $1
		ORDER BY seq
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.Enrollment{}
	for rows.Next() {
		var e entity.Enrollment
		if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EnrollmentRepository) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2)
	`, userID, courseID).Scan(&ok)
	return ok, err
}

var _ repository.EnrollmentRepository = (*EnrollmentRepository)(nil)
