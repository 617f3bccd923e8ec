package repository

// Store hands out the repositories of one storage backend.
type Store interface {
	Users() UserRepository
	Courses() CourseRepository
	Enrollments() EnrollmentRepository
}
