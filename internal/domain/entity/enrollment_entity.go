package entity

import "time"

// Enrollment records that a user holds a seat in a course.
// Records are append-only; (UserID, CourseID) is unique.
type Enrollment struct {
	ID        string
	UserID    string
	CourseID  string
	CreatedAt time.Time
}
