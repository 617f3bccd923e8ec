package application

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPhoneTaken         = errors.New("phone already registered")
	ErrCourseNotFound     = errors.New("course not found")
	ErrEnrollmentBusy     = errors.New("enrollment is busy, try again later")
)

// DuplicateEnrollmentError rejects a whole enrollment batch because the
// caller already holds a seat in some of the requested courses.
type DuplicateEnrollmentError struct {
	CourseIDs []string
	Titles    []string
}

func (e *DuplicateEnrollmentError) Error() string {
	if len(e.Titles) > 0 {
		return fmt.Sprintf("already enrolled in: %s", strings.Join(e.Titles, ", "))
	}
	return fmt.Sprintf("already enrolled in %d course(s)", len(e.CourseIDs))
}
