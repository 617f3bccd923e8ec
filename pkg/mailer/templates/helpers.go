package templates

import (
	"time"
)

// Branding holds the fields every email carries.
type Branding struct {
	CompanyName string
	AppName     string
	SupportURL  string
	CoursesURL  string
}

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

func WithRole(role string) Option { return func(d *EmailData) { d.Role = role } }

func WithCourses(lines []CourseLine) Option {
	return func(d *EmailData) { d.Courses = lines }
}

func WithFailed(lines []CourseLine) Option {
	return func(d *EmailData) { d.Failed = lines }
}

// NewBaseEmailData fills the common fields from b, then applies opts.
func NewBaseEmailData(b Branding, typ string, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: email,
		Type:           typ,

		CompanyName: b.CompanyName,
		AppName:     b.AppName,
		SupportURL:  b.SupportURL,
		CoursesURL:  b.CoursesURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(b Branding, name, email, role string, opts ...Option) map[string]any {
	opts = append([]Option{WithRole(role)}, opts...)
	return ToMap(NewBaseEmailData(b, Welcome, name, email, opts...))
}

func NewEnrollmentConfirmedData(b Branding, name, email string, enrolled, failed []CourseLine, opts ...Option) map[string]any {
	opts = append([]Option{WithCourses(enrolled), WithFailed(failed)}, opts...)
	return ToMap(NewBaseEmailData(b, EnrollmentConfirmed, name, email, opts...))
}
