package entity

import "strings"

// Role is the single authorization claim carried by a user and its session.
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleInstructor Role = "INSTRUCTOR"
)

// ParseRole normalizes s into a known role. ok is false for anything else.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleStudent:
		return RoleStudent, true
	case RoleInstructor:
		return RoleInstructor, true
	}
	return "", false
}

func (r Role) String() string { return string(r) }
