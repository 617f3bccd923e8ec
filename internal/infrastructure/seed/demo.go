package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
	"github.com/coursehub/enrollment-api/internal/domain/repository"
)

// Test accounts available in every seeded environment.
const (
	StudentID          = "user-student-test"
	StudentEmail       = "student@test.com"
	StudentPassword    = "Student1234"
	InstructorID       = "user-instructor-test"
	InstructorEmail    = "instructor@test.com"
	InstructorPassword = "Instructor1234"
)

var (
	categories = []string{"Programming", "Design", "Marketing", "Video Editing", "Data Analysis"}
	levels     = []string{"Intro", "Beginner", "Intermediate", "Advanced", "Hands-on"}
)

// HashFunc turns a plaintext password into its stored form.
type HashFunc func(plain string) (string, error)

// DemoUsers returns the two test accounts with hashed passwords.
func DemoUsers(hash HashFunc, now time.Time) ([]entity.User, error) {
	studentHash, err := hash(StudentPassword)
	if err != nil {
		return nil, err
	}
	instructorHash, err := hash(InstructorPassword)
	if err != nil {
		return nil, err
	}
	return []entity.User{
		{
			ID: StudentID, Name: "Student", Email: StudentEmail, Phone: "010-1234-5678",
			Password: studentHash, Role: entity.RoleStudent, CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: InstructorID, Name: "Instructor", Email: InstructorEmail, Phone: "010-9876-5432",
			Password: instructorHash, Role: entity.RoleInstructor, CreatedAt: now, UpdatedAt: now,
		},
	}, nil
}

// DemoCourses generates n courses mock-c-1..mock-c-n with random capacity,
// seats, price and a creation time within the 90 days before now.
func DemoCourses(n int, rng *rand.Rand, now time.Time) []entity.Course {
	out := make([]entity.Course, 0, n)
	for i := 1; i <= n; i++ {
		capacity := rng.Intn(40) + 10
		seats := rng.Intn(capacity)
		inst := i%5 + 1
		out = append(out, entity.Course{
			ID:             fmt.Sprintf("mock-c-%d", i),
			Title:          fmt.Sprintf("%s %s Course %d", categories[rng.Intn(len(categories))], levels[rng.Intn(len(levels))], i),
			Capacity:       capacity,
			Price:          int64(rng.Intn(50)+1) * 10000,
			InstructorID:   fmt.Sprintf("inst-%d", inst),
			InstructorName: fmt.Sprintf("Instructor %d", inst),
			SeatsFilled:    seats,
			EnrollmentRate: entity.RoundRate(entity.EnrollmentRate(seats, capacity)),
			CreatedAt:      now.Add(-time.Duration(rng.Int63n(int64(90 * 24 * time.Hour)))),
			UpdatedAt:      now,
		})
	}
	return out
}

// Load writes the demo users and n demo courses through the given
// repositories. Records that already exist are skipped, so Load can be run
// repeatedly against the same database.
func Load(ctx context.Context, users repository.UserRepository, courses repository.CourseRepository, hash HashFunc, n int, rng *rand.Rand) (int, int, error) {
	now := time.Now().UTC()
	demoUsers, err := DemoUsers(hash, now)
	if err != nil {
		return 0, 0, fmt.Errorf("hash demo passwords: %w", err)
	}

	var nu, nc int
	for i := range demoUsers {
		if err := users.Create(ctx, &demoUsers[i]); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return nu, nc, fmt.Errorf("seed user %s: %w", demoUsers[i].Email, err)
		}
		nu++
	}

	// Create prepends, so insert newest id first to keep mock-c-1 at the head.
	demoCourses := DemoCourses(n, rng, now)
	for i := len(demoCourses) - 1; i >= 0; i-- {
		if err := courses.Create(ctx, &demoCourses[i]); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return nu, nc, fmt.Errorf("seed course %s: %w", demoCourses[i].ID, err)
		}
		nc++
	}
	return nu, nc, nil
}
