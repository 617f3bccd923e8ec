package helpers

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes the plain text password using bcrypt
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareHashAndPassword compares a bcrypt hash with a plain password
func CompareHashAndPassword(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// BurnCompare runs a bcrypt comparison against a fixed hash so that a login
// for an unknown email takes as long as one with a wrong password.
func BurnCompare(plain string) {
	dummyOnce.Do(func() {
		dummyHash, _ = HashPassword("not-a-real-password")
	})
	_ = CompareHashAndPassword(dummyHash, plain)
}
