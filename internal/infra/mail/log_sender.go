package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/arklim/menu-accounts/internal/core/port"
	"github.com/arklim/menu-accounts/internal/infra/logger"
)

// LogSender writes outgoing email to the log. Used when no SMTP host is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a development sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message. The plain-text body is included so codes are usable locally.
func (s *LogSender) Send(_ context.Context, email port.Email) error {
	s.logger.Info("email not sent (no smtp configured)",
		zap.String("to", logger.MaskEmail(email.To)),
		zap.String("subject", email.Subject),
		zap.String("body", email.Text),
	)
	return nil
}

var _ port.EmailSender = (*LogSender)(nil)
