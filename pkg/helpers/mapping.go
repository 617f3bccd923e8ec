package helpers

import (
	"fmt"
	"strings"

	"github.com/coursehub/enrollment-api/pkg/mailer"
	mailtpl "github.com/coursehub/enrollment-api/pkg/mailer/templates"
)

// SubjectFor returns a fallback subject for a job whose template rendered none.
func SubjectFor(template string) string {
	switch strings.ToLower(template) {
	case mailtpl.Welcome:
		return "Welcome aboard"
	case mailtpl.EnrollmentConfirmed:
		return "Your enrollment is confirmed"
	default:
		return "Notification"
	}
}

func EnsureRecipientAndEmail(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
	if v, ok := job.Data["Type"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Type"] = job.Template
	}
}
