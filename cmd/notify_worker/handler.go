package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coursehub/enrollment-api/pkg/helpers"
	"github.com/coursehub/enrollment-api/pkg/mailer"
	mailtpl "github.com/coursehub/enrollment-api/pkg/mailer/templates"
)

const sendTimeout = 15 * time.Second

// errPermanent marks a message that will never succeed and must not be requeued.
var errPermanent = errors.New("permanent failure")

// logSender stands in for Mailgun when sending is disabled.
type logSender struct {
	logger *logrus.Logger
}

func (s logSender) Send(_ context.Context, to, subject, _, _ string) error {
	s.logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("email not sent (MAIL_SEND_ENABLED=false)")
	return nil
}

// handle decodes, renders and sends one queued email job.
func handle(ctx context.Context, sender mailer.Sender, body []byte) error {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: bad message: %v", errPermanent, err)
	}
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
	helpers.EnsureRecipientAndEmail(&job)

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		if !mailtpl.Known(job.Template) {
			return fmt.Errorf("%w: unknown template %q", errPermanent, job.Template)
		}
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("%w: render %s: %v", errPermanent, job.Template, err)
		}
		subject, text, html = s, t, h
	}
	if subject == "" {
		subject = helpers.SubjectFor(job.Template)
	}

	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := sender.Send(c, job.To, subject, text, html); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}
