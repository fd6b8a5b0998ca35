package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/teccUI/inteliTASK/internal/middleware"
	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/pkg/config"
	"github.com/teccUI/inteliTASK/pkg/utils"
)

// SendGridClient is the slice of the SendGrid client the mailer uses.
type SendGridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Mailer sends transactional and digest emails through SendGrid.
// Every send respects the user's email notification preference and is
// retried with backoff on transient failures.
type Mailer struct {
	client SendGridClient
	from   *mail.Email
}

// NewMailer creates a mailer with the configured sender identity.
func NewMailer(client SendGridClient, cfg *config.EmailConfig) *Mailer {
	return &Mailer{
		client: client,
		from:   mail.NewEmail(cfg.FromName, cfg.FromAddress),
	}
}

type taskEmailData struct {
	Name    string
	Title   string
	DueDate string
}

type digestEmailData struct {
	Name           string
	TasksCompleted int
	TasksPending   int
	TasksOverdue   int
}

var taskCreatedTemplate = template.Must(template.New("taskCreated").Parse(`
<h2>New task created</h2>
<p>Hi {{.Name}},</p>
<p>Your task <strong>{{.Title}}</strong> has been created.{{if .DueDate}} It is due on {{.DueDate}}.{{end}}</p>
`))

var taskCompletedTemplate = template.Must(template.New("taskCompleted").Parse(`
<h2>Task completed 🎉</h2>
<p>Hi {{.Name}},</p>
<p>You completed <strong>{{.Title}}</strong>. Nice work!</p>
`))

var taskOverdueTemplate = template.Must(template.New("taskOverdue").Parse(`
<h2>Task overdue</h2>
<p>Hi {{.Name}},</p>
<p>Your task <strong>{{.Title}}</strong> was due on {{.DueDate}} and is still open.</p>
`))

var taskDueSoonTemplate = template.Must(template.New("taskDueSoon").Parse(`
<h2>Task due soon</h2>
<p>Hi {{.Name}},</p>
<p>Your task <strong>{{.Title}}</strong> is due on {{.DueDate}}.</p>
`))

var weeklyDigestTemplate = template.Must(template.New("weeklyDigest").Parse(`
<h2>Your week in review</h2>
<p>Hi {{.Name}},</p>
<ul>
  <li>Completed this week: {{.TasksCompleted}}</li>
  <li>Still pending: {{.TasksPending}}</li>
  <li>Overdue: {{.TasksOverdue}}</li>
</ul>
`))

// SendTaskCreated emails the user that a new task has been created.
func (m *Mailer) SendTaskCreated(ctx context.Context, user *models.User, task *models.Task) error {
	return m.sendTaskEmail(ctx, user, task, "Task created: "+task.Title, taskCreatedTemplate)
}

// SendTaskCompleted emails the user that a task has been completed.
func (m *Mailer) SendTaskCompleted(ctx context.Context, user *models.User, task *models.Task) error {
	return m.sendTaskEmail(ctx, user, task, "Task completed: "+task.Title, taskCompletedTemplate)
}

// SendTaskOverdue emails the user about a task that has passed its due
// date without being completed.
func (m *Mailer) SendTaskOverdue(ctx context.Context, user *models.User, task *models.Task) error {
	return m.sendTaskEmail(ctx, user, task, "Task overdue: "+task.Title, taskOverdueTemplate)
}

// SendTaskDueSoon emails the user about a task approaching its due date.
func (m *Mailer) SendTaskDueSoon(ctx context.Context, user *models.User, task *models.Task) error {
	return m.sendTaskEmail(ctx, user, task, "Task due soon: "+task.Title, taskDueSoonTemplate)
}

func (m *Mailer) sendTaskEmail(ctx context.Context, user *models.User, task *models.Task, subject string, tmpl *template.Template) error {
	data := taskEmailData{
		Name:    user.Name,
		Title:   task.Title,
		DueDate: task.DueDate,
	}

	body := &bytes.Buffer{}
	if err := tmpl.Execute(body, data); err != nil {
		return fmt.Errorf("while templating email content: %w", err)
	}

	return m.send(ctx, user, subject, body.String())
}

// SendWeeklyDigest emails the user a summary of their week.
func (m *Mailer) SendWeeklyDigest(ctx context.Context, user *models.User, completed, pending, overdue int) error {
	data := digestEmailData{
		Name:           user.Name,
		TasksCompleted: completed,
		TasksPending:   pending,
		TasksOverdue:   overdue,
	}

	body := &bytes.Buffer{}
	if err := weeklyDigestTemplate.Execute(body, data); err != nil {
		return fmt.Errorf("while templating digest content: %w", err)
	}

	return m.send(ctx, user, "Your weekly task digest", body.String())
}

// send delivers a single HTML email, retrying transient SendGrid
// failures with backoff. Users with email notifications disabled are
// silently skipped.
func (m *Mailer) send(ctx context.Context, user *models.User, subject, html string) error {
	if user.Settings != nil && !user.Settings.Notifications.Email {
		middleware.IncrementNotificationSent("email", "skipped")
		return nil
	}
	if user.Email == "" {
		return fmt.Errorf("user %q has no email address", user.UID)
	}

	message := mail.NewV3Mail()
	message.From = m.from
	message.Subject = subject

	personalization := mail.NewPersonalization()
	personalization.To = append(personalization.To, mail.NewEmail(user.Name, user.Email))
	message.Personalizations = append(message.Personalizations, personalization)
	message.Content = append(message.Content, mail.NewContent("text/html", html))

	err := utils.Retry(ctx, utils.ExternalAPIRetryConfig(), func() error {
		start := time.Now()
		resp, err := m.client.SendWithContext(ctx, message)
		if err != nil {
			middleware.RecordExternalCall("sendgrid", "error", time.Since(start))
			return fmt.Errorf("while sending mail through SendGrid: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			middleware.RecordExternalCall("sendgrid", "error", time.Since(start))
			return fmt.Errorf("non-2XX response while sending mail through SendGrid: %d %s", resp.StatusCode, resp.Body)
		}
		middleware.RecordExternalCall("sendgrid", "success", time.Since(start))
		return nil
	})
	if err != nil {
		middleware.IncrementNotificationSent("email", "failure")
		return err
	}

	middleware.IncrementNotificationSent("email", "success")
	log.Debug().Str("user_id", user.UID).Str("subject", subject).Msg("Email sent")
	return nil
}
