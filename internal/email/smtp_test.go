package email

import (
	"strings"
	"testing"
)

func TestRenderNotificationEscapesMessage(t *testing.T) {
	out, err := renderNotification(notificationEmailData{Title: "SLA Violation Alert", Message: "<b>3</b> lead(s)"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "SLA Violation Alert") {
		t.Fatal("title missing from rendered mail")
	}
	if strings.Contains(out, "<b>3</b>") {
		t.Fatal("message must be HTML escaped")
	}
}

func TestBuildMessageRejectsInvalidRecipient(t *testing.T) {
	sender := NewSMTPSender("smtp.example.com", 587, "", "", "noreply@example.com", "Leadflow")
	if _, err := sender.buildMessage("not-an-address", "subject", "<p>x</p>"); err == nil {
		t.Fatal("expected invalid recipient to fail")
	}
}
