package entity

import (
	"math"
	"time"
)

// Seat-fill thresholds used for near-capacity signalling.
const (
	NearFullThreshold = 0.8
	FullThreshold     = 1.0
)

// Course availability as shown to clients.
const (
	CourseStatusOpen     = "open"
	CourseStatusNearFull = "near_full"
	CourseStatusFull     = "full"
)

// Course is an offering created by an instructor.
//
// InstructorName is a snapshot taken when the course is created and is not
// updated when the instructor later changes their name.
// SeatsFilled never decreases and never exceeds Capacity; EnrollmentRate is
// recomputed whenever SeatsFilled changes.
type Course struct {
	ID             string
	Title          string
	Capacity       int
	Price          int64
	InstructorID   string
	InstructorName string
	SeatsFilled    int
	EnrollmentRate float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsFull reports whether no seat is left.
func (c *Course) IsFull() bool {
	return c.SeatsFilled >= c.Capacity
}

// FillSeat consumes one seat. It returns false and leaves the course
// untouched when the course is already full.
func (c *Course) FillSeat(now time.Time) bool {
	if c.IsFull() {
		return false
	}
	c.SeatsFilled++
	c.EnrollmentRate = EnrollmentRate(c.SeatsFilled, c.Capacity)
	c.UpdatedAt = now
	return true
}

// Status classifies the course by its enrollment rate.
func (c *Course) Status() string {
	switch {
	case c.EnrollmentRate >= FullThreshold || c.IsFull():
		return CourseStatusFull
	case c.EnrollmentRate >= NearFullThreshold:
		return CourseStatusNearFull
	default:
		return CourseStatusOpen
	}
}

// EnrollmentRate is seats/capacity, 0 for a non-positive capacity.
func EnrollmentRate(seats, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(seats) / float64(capacity)
}

// RoundRate rounds a rate to two decimals.
func RoundRate(r float64) float64 {
	return math.Round(r*100) / 100
}
