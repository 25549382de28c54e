// Package email renders and delivers notification mail.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
)

// Sender delivers a rendered notification to a single recipient.
type Sender interface {
	SendNotificationEmail(ctx context.Context, toEmail, title, message string) error
}

// NoopSender drops every message. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendNotificationEmail(context.Context, string, string, string) error { return nil }

var (
	_ Sender = (*SMTPSender)(nil)
	_ Sender = NoopSender{}
)

type notificationEmailData struct {
	Title   string
	Message string
}

var notificationTemplate = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family: Arial, sans-serif; color: #1f2933;">
  <h2>{{.Title}}</h2>
  <p>{{.Message}}</p>
</body>
</html>`))

func renderNotification(data notificationEmailData) (string, error) {
	var buf bytes.Buffer
	if err := notificationTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render notification email: %w", err)
	}
	return buf.String(), nil
}
