package mail

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/menu-accounts/internal/core/port"
	"github.com/arklim/menu-accounts/internal/infra/config"
)

func TestVerificationEmailRendersCodeAndEscapedLink(t *testing.T) {
	email, err := VerificationEmail("a@b.com", VerificationData{
		Code:      "123456",
		VerifyURL: "http://localhost:3000/signup/verify?token=abc.def&x=<y>",
		ValidFor:  "15m0s",
	})
	if err != nil {
		t.Fatalf("VerificationEmail returned error: %v", err)
	}
	if email.To != "a@b.com" || email.Subject != verificationSubject {
		t.Fatalf("unexpected envelope: %+v", email)
	}
	if !strings.Contains(email.Text, "123456") || !strings.Contains(email.HTML, "123456") {
		t.Fatal("expected code in both bodies")
	}
	if strings.Contains(email.HTML, "<y>") {
		t.Fatal("expected html body to escape the link")
	}
}

func TestLoginNoticeEmail(t *testing.T) {
	email, err := LoginNoticeEmail("a@b.com", LoginNoticeData{LoginURL: "http://localhost:3000/login"})
	if err != nil {
		t.Fatalf("LoginNoticeEmail returned error: %v", err)
	}
	if !strings.Contains(email.Text, "http://localhost:3000/login") {
		t.Fatalf("expected login url in text body: %q", email.Text)
	}
}

func TestBuildMessageRejectsInvalidRecipient(t *testing.T) {
	if _, err := buildMessage("no-reply@example.com", port.Email{To: "not an address"}); err == nil {
		t.Fatal("expected invalid recipient to be rejected")
	}
	if _, err := buildMessage("no-reply@example.com", port.Email{To: "a@b.com", Subject: "s", Text: "t", HTML: "<p>t</p>"}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
}

func TestNewSMTPSenderValidatesConfig(t *testing.T) {
	if _, err := NewSMTPSender(config.MailSettings{}, zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected missing host to be rejected")
	}
	sender, err := NewSMTPSender(config.MailSettings{Host: "smtp.example.com", Port: 587, From: "no-reply@example.com"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewSMTPSender returned error: %v", err)
	}
	if sender.cfg.Timeout != defaultTimeout {
		t.Fatalf("expected default timeout, got %v", sender.cfg.Timeout)
	}
}

func TestLogSender(t *testing.T) {
	sender := NewLogSender(zaptest.NewLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sender.Send(ctx, port.Email{To: "a@b.com", Subject: "s", Text: "t"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
}
