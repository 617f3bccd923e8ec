package memory

import (
	"sync"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
	"github.com/coursehub/enrollment-api/internal/domain/repository"
)

// Store is an in-process database holding users, courses and enrollments.
// A single lock guards all three tables so that an enrollment commit can
// update a course and append an enrollment atomically.
type Store struct {
	mu sync.RWMutex

	users        map[string]*entity.User
	usersByEmail map[string]string
	usersByPhone map[string]string

	courses     map[string]*entity.Course
	courseOrder []string // insertion order, oldest first

	enrollments       []entity.Enrollment
	enrollmentsByUser map[string][]int
	enrolledPairs     map[pairKey]struct{}
}

type pairKey struct {
	userID   string
	courseID string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:             make(map[string]*entity.User),
		usersByEmail:      make(map[string]string),
		usersByPhone:      make(map[string]string),
		courses:           make(map[string]*entity.Course),
		enrollmentsByUser: make(map[string][]int),
		enrolledPairs:     make(map[pairKey]struct{}),
	}
}

func (s *Store) Users() repository.UserRepository             { return &UserRepository{s: s} }
func (s *Store) Courses() repository.CourseRepository         { return &CourseRepository{s: s} }
func (s *Store) Enrollments() repository.EnrollmentRepository { return &EnrollmentRepository{s: s} }

var _ repository.Store = (*Store)(nil)
