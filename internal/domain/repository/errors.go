package repository

import "errors"

var (
	// ErrNotFound is returned by lookups that match nothing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate key")
	// ErrNoSeats is returned when a seat increment finds the course full.
	ErrNoSeats = errors.New("no seats left")
)
