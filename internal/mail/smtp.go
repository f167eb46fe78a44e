package mail

import (
	"context"
	"errors"

	gomail "github.com/wneessen/go-mail"
	"golang.org/x/time/rate"

	"github.com/spec-kit/task-tracker/internal/config"
)

// SMTPMailer sends through an SMTP relay, throttled to the configured rate.
type SMTPMailer struct {
	client  *gomail.Client
	from    string
	limiter *rate.Limiter
}

// NewSMTPMailer builds the client; no connection is made until Send.
func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}

	return &SMTPMailer{
		client:  client,
		from:    cfg.From,
		limiter: newLimiter(cfg.RatePerSecond),
	}, nil
}

// Send delivers msg. Failures are returned as *DeliveryError.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return &DeliveryError{Recipient: msg.To, Err: errors.New("empty recipient")}
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return &DeliveryError{Recipient: msg.To, Err: err}
	}

	out := gomail.NewMsg()
	if err := out.From(m.from); err != nil {
		return &DeliveryError{Recipient: msg.To, Err: err}
	}
	if err := out.To(msg.To); err != nil {
		return &DeliveryError{Recipient: msg.To, Err: err}
	}
	out.Subject(msg.Subject)
	out.SetBodyString(gomail.TypeTextPlain, msg.Body)

	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return &DeliveryError{Recipient: msg.To, Err: err}
	}
	return nil
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
