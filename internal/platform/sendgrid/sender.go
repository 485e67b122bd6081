// Package sendgrid sends reminder email through the SendGrid v3 API.
package sendgrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/sprout-api/internal/notify"
	"github.com/sendgrid/rest"
	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// ErrNoAPIKey is returned when the sender is built without a key.
var ErrNoAPIKey = errors.New("sendgrid api key not configured")

// StatusError reports a non-2xx response from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sendgrid responded with status %d", e.StatusCode)
}

// Config holds the API key and sender identity.
type Config struct {
	APIKey    string
	FromEmail string
	FromName  string
}

type mailer interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Sender implements notify.EmailSender.
type Sender struct {
	client mailer
	from   *mail.Email
	logger *slog.Logger
}

var _ notify.EmailSender = (*Sender)(nil)

// NewSender creates a SendGrid-backed sender.
func NewSender(cfg Config, logger *slog.Logger) (*Sender, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	return newSender(sg.NewSendClient(cfg.APIKey), cfg, logger), nil
}

func newSender(client mailer, cfg Config, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		client: client,
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
		logger: logger.With(slog.String("component", "sendgrid_sender")),
	}
}

// SendEmail implements notify.EmailSender. Any status outside 2xx is an
// error, so the caller does not record the delivery.
func (s *Sender) SendEmail(ctx context.Context, msg notify.EmailMessage) error {
	to := mail.NewEmail("", msg.To)
	email := mail.NewV3MailInit(s.from, msg.Subject, to, mail.NewContent("text/plain", msg.Body))

	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.WarnContext(ctx, "sendgrid rejected message",
			slog.Int("status", resp.StatusCode))
		return &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return nil
}
