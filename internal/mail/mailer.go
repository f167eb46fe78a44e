// Package mail delivers reminder emails.
package mail

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/task-tracker/internal/config"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends messages. Implementations must be safe for sequential reuse.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// DeliveryError reports a transport failure for one recipient.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver mail to %s: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// New picks the SMTP transport when a host is configured and the logging
// mailer otherwise.
func New(cfg config.MailConfig, logger *zap.Logger) (Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		logger.Warn("SMTP_HOST not provided; reminders will only be logged")
		return NewLogMailer(cfg.From, logger), nil
	}
	return NewSMTPMailer(cfg)
}
