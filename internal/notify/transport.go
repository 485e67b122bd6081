package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrChannelUnavailable is returned when no transport is configured for a channel.
var ErrChannelUnavailable = errors.New("notification channel not configured")

// EmailMessage is a single-recipient email.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// PushMessage is the payload sent to every token in a batch.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// PushResult is the outcome of a push send for one token.
// Reason carries the provider's error code when one is available.
type PushResult struct {
	Token   string
	Success bool
	Reason  string
	Err     error
}

// EmailSender delivers a single email.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// PushSender delivers one message to a batch of device tokens and reports
// a result for every token in input order. A returned error means the batch
// as a whole failed and no per-token results are available.
type PushSender interface {
	SendPushBatch(ctx context.Context, tokens []string, msg PushMessage) ([]PushResult, error)
}

// TokenRegistry supplies push destinations and accepts deactivation of dead ones.
type TokenRegistry interface {
	ActiveTokens(ctx context.Context, ownerID uuid.UUID) ([]string, error)
	Deactivate(ctx context.Context, tokens []string) (int, error)
}
