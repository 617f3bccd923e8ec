package mailer

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Template (+Data) or Text/HTML must be set.
type EmailJob struct {
	ID        string         `json:"id"`
	To        string         `json:"to"`
	Subject   string         `json:"subject,omitempty"`
	Text      string         `json:"text,omitempty"`
	HTML      string         `json:"html,omitempty"`
	Template  string         `json:"template,omitempty"` // "welcome", "enrollment_confirmed"
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

var (
	ErrNoRecipient = errors.New("email job has no recipient")
	ErrNoBody      = errors.New("email job has neither template nor body")
)

// NewTemplateJob builds a job rendered by the worker from a named template.
func NewTemplateJob(to, template string, data map[string]any) EmailJob {
	return EmailJob{
		ID:        uuid.NewString(),
		To:        to,
		Template:  template,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate reports whether the job can be delivered at all.
func (j EmailJob) Validate() error {
	if j.To == "" {
		return ErrNoRecipient
	}
	if j.Template == "" && j.Text == "" && j.HTML == "" {
		return ErrNoBody
	}
	return nil
}
