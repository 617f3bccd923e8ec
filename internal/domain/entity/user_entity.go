package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// Password holds a bcrypt hash; it never leaves the application layer.
type User struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Password  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsInstructor reports whether the user may create courses.
func (u *User) IsInstructor() bool {
	return u != nil && u.Role == RoleInstructor
}
