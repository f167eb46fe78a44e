package mail

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	from   string
	logger *zap.Logger
}

// NewLogMailer constructs the mailer.
func NewLogMailer(from string, logger *zap.Logger) *LogMailer {
	return &LogMailer{from: from, logger: logger}
}

// Send logs msg and reports success.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return &DeliveryError{Recipient: msg.To, Err: errors.New("empty recipient")}
	}
	m.logger.Info("mail (log transport)",
		zap.String("from", m.from),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Body)))
	return nil
}
