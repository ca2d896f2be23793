package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/arklim/menu-accounts/internal/core/port"
	"github.com/arklim/menu-accounts/internal/infra/config"
	"github.com/arklim/menu-accounts/internal/infra/logger"
)

const defaultTimeout = 10 * time.Second

// SMTPSender delivers email through an authenticated SMTP relay.
type SMTPSender struct {
	cfg    config.MailSettings
	logger *zap.Logger
}

// NewSMTPSender constructs an SMTP-backed sender.
func NewSMTPSender(cfg config.MailSettings, logger *zap.Logger) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("mail: smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("mail: from address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &SMTPSender{cfg: cfg, logger: logger}, nil
}

// Send builds a multipart message and delivers it within the configured timeout.
func (s *SMTPSender) Send(ctx context.Context, email port.Email) error {
	msg, err := buildMessage(s.cfg.From, email)
	if err != nil {
		return err
	}

	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTimeout(s.cfg.Timeout),
		gomail.WithTLSPortPolicy(gomail.TLSMandatory),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}

	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mail: create client: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := client.DialAndSendWithContext(sendCtx, msg); err != nil {
		s.logger.Warn("smtp delivery failed",
			zap.String("to", logger.MaskEmail(email.To)),
			zap.Error(err),
		)
		return fmt.Errorf("mail: send: %w", err)
	}
	return nil
}

func buildMessage(from string, email port.Email) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("mail: from: %w", err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("mail: to: %w", err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, email.Text)
	if email.HTML != "" {
		msg.AddAlternativeString(gomail.TypeTextHTML, email.HTML)
	}
	return msg, nil
}

var _ port.EmailSender = (*SMTPSender)(nil)
