package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/metrics"
	"golang.org/x/time/rate"
)

// ErrNoEmailAddress is returned when a recipient has no address on file.
var ErrNoEmailAddress = errors.New("recipient has no email address")

// DefaultSendTimeout bounds a single transport call when none is configured.
const DefaultSendTimeout = 10 * time.Second

// DispatcherConfig tunes outbound delivery.
type DispatcherConfig struct {
	// SendTimeout bounds each transport call. A timed-out call is a failed send.
	SendTimeout time.Duration

	// EmailRatePerSecond and EmailBurst shape outbound email traffic.
	// A zero rate disables limiting.
	EmailRatePerSecond float64
	EmailBurst         int
}

// Dispatcher sends rendered reminders through the email and push transports.
// Either transport may be nil, in which case that channel reports
// ErrChannelUnavailable.
type Dispatcher struct {
	email   EmailSender
	push    PushSender
	tokens  TokenRegistry
	timeout time.Duration
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher. tokens is required when push is set.
func NewDispatcher(
	cfg DispatcherConfig,
	email EmailSender,
	push PushSender,
	tokens TokenRegistry,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Dispatcher {
	if push != nil && tokens == nil {
		panic("token registry cannot be nil when a push sender is configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}

	var limiter *rate.Limiter
	if cfg.EmailRatePerSecond > 0 {
		burst := cfg.EmailBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.EmailRatePerSecond), burst)
	}

	return &Dispatcher{
		email:   email,
		push:    push,
		tokens:  tokens,
		timeout: timeout,
		limiter: limiter,
		metrics: m,
		logger:  logger.With(slog.String("component", "dispatcher")),
	}
}

// SendEmail delivers one email. Any returned error means the email was not sent.
func (d *Dispatcher) SendEmail(ctx context.Context, msg EmailMessage) error {
	if d.email == nil {
		return fmt.Errorf("email: %w", ErrChannelUnavailable)
	}
	if msg.To == "" {
		return ErrNoEmailAddress
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("email rate limiter: %w", err)
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.email.SendEmail(sendCtx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendPush fans msg out to every active token of the owner and returns the
// number of tokens that accepted it. Tokens the transport reports as
// permanently invalid are deactivated; transient failures leave the token
// active for the next attempt. An owner without tokens gets 0 and no
// transport call.
func (d *Dispatcher) SendPush(ctx context.Context, ownerID uuid.UUID, msg PushMessage) (int, error) {
	if d.push == nil {
		return 0, fmt.Errorf("push: %w", ErrChannelUnavailable)
	}

	all, err := d.tokens.ActiveTokens(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to load push tokens: %w", err)
	}

	tokens := make([]string, 0, len(all))
	for _, t := range all {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	results, err := d.push.SendPushBatch(sendCtx, tokens, msg)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("failed to send push batch: %w", err)
	}

	log := d.logger.With(slog.String("owner_id", ownerID.String()))

	var (
		sent int
		dead []string
	)
	for i, r := range results {
		if r.Success {
			sent++
			continue
		}

		token := r.Token
		if token == "" && i < len(tokens) {
			token = tokens[i]
		}

		if IsPermanentFailure(r) {
			dead = append(dead, token)
			continue
		}
		log.WarnContext(ctx, "transient push failure",
			slog.String("reason", r.Reason),
			slog.Any("error", r.Err))
	}

	if len(dead) > 0 {
		n, err := d.tokens.Deactivate(ctx, dead)
		if err != nil {
			// The batch itself went out; a failed prune is retried on the next send.
			log.ErrorContext(ctx, "failed to deactivate dead push tokens",
				slog.Int("count", len(dead)),
				slog.Any("error", err))
		} else {
			d.metrics.TokensDeactivated(n)
			log.InfoContext(ctx, "deactivated dead push tokens", slog.Int("count", n))
		}
	}

	return sent, nil
}
