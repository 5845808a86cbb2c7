package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Aditya-GrowAI/civicvoice3/config"
	"github.com/Aditya-GrowAI/civicvoice3/models"

	"github.com/apex/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const issueImgCid = "issue_image"

// Notifier tells someone a new issue was stored.
type Notifier interface {
	Send(ctx context.Context, issue *models.Issue, attachmentPath string) error
}

// NewNotifier returns a SendGrid sender, or a Disabled notifier when there is
// no API key or nobody to notify.
func NewNotifier(cfg *config.Config) Notifier {
	if cfg.SendGridAPIKey == "" {
		log.Warn("SENDGRID_API_KEY not set, issue notifications are disabled")
		return Disabled{Reason: "SENDGRID_API_KEY not set"}
	}
	if len(cfg.NotifyEmailTo) == 0 {
		log.Warn("NOTIFY_EMAIL_TO not set, issue notifications are disabled")
		return Disabled{Reason: "NOTIFY_EMAIL_TO not set"}
	}
	return NewEmailSender(cfg)
}

// Disabled drops every notification.
type Disabled struct {
	Reason string
}

func (d Disabled) Send(ctx context.Context, issue *models.Issue, attachmentPath string) error {
	log.Debugf("Skipping notification for issue %s: %s", issue.ID, d.Reason)
	return nil
}

// EmailSender sends issue notifications through SendGrid.
type EmailSender struct {
	client     *sendgrid.Client
	fromName   string
	fromEmail  string
	recipients []string
	timeout    time.Duration
}

// NewEmailSender creates a new email sender
func NewEmailSender(cfg *config.Config) *EmailSender {
	return &EmailSender{
		client:     sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromName:   cfg.SendGridFromName,
		fromEmail:  cfg.SendGridFromEmail,
		recipients: cfg.NotifyEmailTo,
		timeout:    cfg.EmailTimeout,
	}
}

// Send emails every recipient. A failure for one recipient does not stop the
// others; the first failure is returned.
func (e *EmailSender) Send(ctx context.Context, issue *models.Issue, attachmentPath string) error {
	var image []byte
	if attachmentPath != "" {
		data, err := os.ReadFile(attachmentPath)
		if err != nil {
			log.Warnf("Could not read attachment %s, sending without it: %v", attachmentPath, err)
		} else {
			image = data
		}
	}

	log.Infof("Sending issue %s notification to %d recipients", issue.ID, len(e.recipients))

	var firstErr error
	for _, recipient := range e.recipients {
		if err := e.sendOneEmail(ctx, recipient, issue, image, filepath.Base(attachmentPath)); err != nil {
			log.Warnf("Error sending email to %s: %v", recipient, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (e *EmailSender) sendOneEmail(ctx context.Context, recipient string, issue *models.Issue, image []byte, filename string) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	message := BuildMessage(e.fromName, e.fromEmail, recipient, issue, image, filename)
	response, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}

	log.Infof("Email sent to %s! Status: %d", recipient, response.StatusCode)
	return nil
}

// BuildMessage assembles the notification for one recipient. The image, when
// present, is attached inline and referenced from the HTML body.
func BuildMessage(fromName, fromEmail, recipient string, issue *models.Issue, image []byte, filename string) *mail.SGMailV3 {
	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(fromName, fromEmail))
	message.Subject = Subject(issue)

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(recipient, recipient))
	message.AddPersonalizations(p)

	hasImage := len(image) > 0
	message.AddContent(mail.NewContent("text/plain", getEmailText(issue)))
	message.AddContent(mail.NewContent("text/html", getEmailHtml(issue, hasImage)))

	if hasImage {
		if filename == "" || filename == "." {
			filename = "issue.jpg"
		}
		attachment := mail.NewAttachment()
		attachment.SetContent(base64.StdEncoding.EncodeToString(image))
		attachment.SetType(http.DetectContentType(image))
		attachment.SetFilename(filename)
		attachment.SetDisposition("inline")
		attachment.SetContentID(issueImgCid)
		message.AddAttachment(attachment)
	}
	return message
}

// Subject returns the notification subject for an issue.
func Subject(issue *models.Issue) string {
	return fmt.Sprintf("New civic issue: %s", issue.Type)
}

func reporter(issue *models.Issue) string {
	if issue.UserID == nil {
		return "anonymous"
	}
	return *issue.UserID
}

func description(issue *models.Issue) string {
	if issue.Description == nil {
		return "(none)"
	}
	return *issue.Description
}

// getEmailText returns the plain text content for emails
func getEmailText(issue *models.Issue) string {
	return fmt.Sprintf(`Hello,

A new civic issue has been reported.

Type: %s
Location: %.6f, %.6f
Description: %s
Reported by: %s
Status: %s

Best regards,
The CivicVoice Team`, issue.Type, issue.Lat, issue.Lng, description(issue), reporter(issue), issue.Status)
}

// getEmailHtml returns the HTML content for emails
func getEmailHtml(issue *models.Issue, withImage bool) string {
	imageSection := ""
	if withImage {
		imageSection = fmt.Sprintf(`
    <h3>Photo:</h3>
    <img src="cid:%s" alt="Issue Image" style="max-width: 100%%; height: auto;">
`, issueImgCid)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>CivicVoice Issue</title>
</head>
<body>
    <h2>Hello,</h2>
    <p>A new civic issue has been reported.</p>
    <table>
        <tr><td><strong>Type</strong></td><td>%s</td></tr>
        <tr><td><strong>Location</strong></td><td>%.6f, %.6f</td></tr>
        <tr><td><strong>Description</strong></td><td>%s</td></tr>
        <tr><td><strong>Reported by</strong></td><td>%s</td></tr>
        <tr><td><strong>Status</strong></td><td>%s</td></tr>
    </table>
%s
    <p>Best regards,<br>The CivicVoice Team</p>
</body>
</html>`,
		html.EscapeString(issue.Type),
		issue.Lat, issue.Lng,
		html.EscapeString(description(issue)),
		html.EscapeString(reporter(issue)),
		html.EscapeString(issue.Status),
		imageSection)
}
