package port

import "context"

// Email is a single outbound message with plain-text and HTML bodies.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// EmailSender delivers transactional email.
type EmailSender interface {
	Send(ctx context.Context, email Email) error
}
