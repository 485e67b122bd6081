// Package fcm sends push notifications through Firebase Cloud Messaging.
package fcm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"
	"github.com/phrazzld/sprout-api/internal/notify"
	"google.golang.org/api/option"
)

// MaxBatchSize is the per-request token limit of a multicast send.
const MaxBatchSize = 500

// ErrNoCredentials is returned when neither a credentials file nor inline
// JSON is configured.
var ErrNoCredentials = errors.New("firebase credentials not configured")

// Reason codes attached to failed results.
const (
	ReasonUnregistered    = "unregistered"
	ReasonNotFound        = "not-found"
	ReasonInvalidArgument = "invalid-argument"
	ReasonQuotaExceeded   = "quota-exceeded"
	ReasonUnavailable     = "unavailable"
	ReasonInternal        = "internal"
	ReasonSenderMismatch  = "sender-id-mismatch"
	ReasonAuth            = "third-party-auth-error"
)

// Config selects the service account used to authenticate.
type Config struct {
	CredentialsFile string
	CredentialsJSON string
}

// multicaster is the part of *messaging.Client the sender uses.
type multicaster interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Sender implements notify.PushSender.
type Sender struct {
	client multicaster
	logger *slog.Logger
}

var _ notify.PushSender = (*Sender)(nil)

// NewSender initializes a Firebase app from cfg and returns a push sender.
func NewSender(ctx context.Context, cfg Config, logger *slog.Logger) (*Sender, error) {
	var opt option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opt = option.WithCredentialsFile(cfg.CredentialsFile)
	case cfg.CredentialsJSON != "":
		opt = option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	default:
		return nil, ErrNoCredentials
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}
	return newSender(client, logger), nil
}

func newSender(client multicaster, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		client: client,
		logger: logger.With(slog.String("component", "fcm_sender")),
	}
}

// SendPushBatch implements notify.PushSender. Tokens are sent in chunks of
// MaxBatchSize; results keep the order of tokens. A transport error on any
// chunk fails the whole call.
func (s *Sender) SendPushBatch(
	ctx context.Context,
	tokens []string,
	msg notify.PushMessage,
) ([]notify.PushResult, error) {
	results := make([]notify.PushResult, 0, len(tokens))

	for start := 0; start < len(tokens); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := tokens[start:end]

		resp, err := s.client.SendEachForMulticast(ctx, buildMessage(chunk, msg))
		if err != nil {
			return nil, fmt.Errorf("fcm multicast failed: %w", err)
		}
		if len(resp.Responses) != len(chunk) {
			return nil, fmt.Errorf("fcm returned %d responses for %d tokens", len(resp.Responses), len(chunk))
		}

		for i, r := range resp.Responses {
			res := notify.PushResult{Token: chunk[i], Success: r.Success}
			if !r.Success {
				res.Err = r.Error
				res.Reason = Reason(r.Error)
			}
			results = append(results, res)
		}

		s.logger.DebugContext(ctx, "multicast sent",
			slog.Int("tokens", len(chunk)),
			slog.Int("success", resp.SuccessCount),
			slog.Int("failure", resp.FailureCount))
	}

	return results, nil
}

func buildMessage(tokens []string, msg notify.PushMessage) *messaging.MulticastMessage {
	data := make(map[string]string, len(msg.Data))
	for k, v := range msg.Data {
		data[k] = v
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
}

// Reason maps a per-token error to a stable reason code, or "" when the
// error carries no recognizable FCM code.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case messaging.IsUnregistered(err):
		return ReasonUnregistered
	case errorutils.IsNotFound(err):
		return ReasonNotFound
	case messaging.IsInvalidArgument(err):
		return ReasonInvalidArgument
	case messaging.IsQuotaExceeded(err):
		return ReasonQuotaExceeded
	case messaging.IsSenderIDMismatch(err):
		return ReasonSenderMismatch
	case messaging.IsThirdPartyAuthError(err):
		return ReasonAuth
	case messaging.IsUnavailable(err):
		return ReasonUnavailable
	case messaging.IsInternal(err):
		return ReasonInternal
	}
	return ""
}
