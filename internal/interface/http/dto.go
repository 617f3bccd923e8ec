package handlers

import (
	"time"

	app "github.com/coursehub/enrollment-api/internal/application"
	"github.com/coursehub/enrollment-api/internal/domain/entity"
)

type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	UserType  string    `json:"userType"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		UserType:  u.Role.String(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type CourseResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	MaxStudents     int       `json:"maxStudents"`
	Price           int64     `json:"price"`
	InstructorID    string    `json:"instructorId"`
	InstructorName  string    `json:"instructorName"`
	CurrentStudents int       `json:"currentStudents"`
	EnrollmentRate  float64   `json:"enrollmentRate"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toCourseResponse(c *entity.Course) CourseResponse {
	return CourseResponse{
		ID:              c.ID,
		Title:           c.Title,
		MaxStudents:     c.Capacity,
		Price:           c.Price,
		InstructorID:    c.InstructorID,
		InstructorName:  c.InstructorName,
		CurrentStudents: c.SeatsFilled,
		EnrollmentRate:  c.EnrollmentRate,
		Status:          c.Status(),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func toCourseResponses(cs []entity.Course) []CourseResponse {
	out := make([]CourseResponse, 0, len(cs))
	for i := range cs {
		out = append(out, toCourseResponse(&cs[i]))
	}
	return out
}

type PaginationResponse struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

type CourseListResponse struct {
	Items      []CourseResponse   `json:"items"`
	Pagination PaginationResponse `json:"pagination"`
}

type FailedCourse struct {
	CourseID string `json:"courseId"`
	Reason   string `json:"reason"`
}

type EnrollResponse struct {
	EnrolledCourses []string       `json:"enrolledCourses"`
	FailedCourses   []FailedCourse `json:"failedCourses"`
}

func toEnrollResponse(r *app.EnrollResult) EnrollResponse {
	failed := make([]FailedCourse, 0, len(r.Rejected))
	for _, rj := range r.Rejected {
		failed = append(failed, FailedCourse{CourseID: rj.CourseID, Reason: string(rj.Reason)})
	}
	accepted := r.Accepted
	if accepted == nil {
		accepted = []string{}
	}
	return EnrollResponse{EnrolledCourses: accepted, FailedCourses: failed}
}

type EnrollmentResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CourseID  string    `json:"courseId"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserEnrollmentsResponse struct {
	EnrolledCourseIDs []string             `json:"enrolledCourseIds"`
	Enrollments       []EnrollmentResponse `json:"enrollments"`
}

func toUserEnrollmentsResponse(u *app.UserEnrollments) UserEnrollmentsResponse {
	list := make([]EnrollmentResponse, 0, len(u.Enrollments))
	for _, e := range u.Enrollments {
		list = append(list, EnrollmentResponse{ID: e.ID, UserID: e.UserID, CourseID: e.CourseID, CreatedAt: e.CreatedAt})
	}
	ids := u.EnrolledCourseIDs
	if ids == nil {
		ids = []string{}
	}
	return UserEnrollmentsResponse{EnrolledCourseIDs: ids, Enrollments: list}
}
