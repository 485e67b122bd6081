package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/mocks"
	"github.com/phrazzld/sprout-api/internal/notify"
	"github.com/phrazzld/sprout-api/internal/service/devices"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMessage = notify.PushMessage{
	Title: "Plant tasks",
	Body:  "You have 1 task(s) due today.",
	Data:  map[string]string{"kind": "due_today", "route": "Home"},
}

func newRegistry(t *testing.T, owner uuid.UUID, tokens ...string) (*devices.Registry, *mocks.MockDeviceStore) {
	t.Helper()
	st := mocks.NewMockDeviceStore()
	reg := devices.NewRegistry(st, nil)
	for _, tok := range tokens {
		_, _, err := reg.RegisterOrRefresh(context.Background(), owner, tok, domain.PlatformAndroid)
		require.NoError(t, err)
	}
	return reg, st
}

func TestSendPush_PrunesOnlyPermanentFailures(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	reg, st := newRegistry(t, owner, "good", "dead", "flaky")

	push := &mocks.MockPushSender{
		Failures: map[string]notify.PushResult{
			"dead":  {Reason: "registration-token-not-registered", Err: errors.New("token not registered")},
			"flaky": {Reason: "unavailable", Err: errors.New("service unavailable")},
		},
	}
	d := notify.NewDispatcher(notify.DispatcherConfig{SendTimeout: time.Second}, nil, push, reg, nil, nil)

	sent, err := d.SendPush(ctx, owner, testMessage)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"dead"}, st.Deactivated)

	dead, ok := st.Get("dead")
	require.True(t, ok)
	assert.False(t, dead.Active)

	// The retry still targets the transiently failed token.
	_, err = d.SendPush(ctx, owner, testMessage)
	require.NoError(t, err)
	calls := push.Calls()
	require.Len(t, calls, 2)
	assert.ElementsMatch(t, []string{"dead", "flaky", "good"}, calls[0].Tokens)
	assert.ElementsMatch(t, []string{"flaky", "good"}, calls[1].Tokens)
	assert.Equal(t, testMessage, calls[1].Message)
}

func TestSendPush_NoTokensSkipsTransport(t *testing.T) {
	reg, _ := newRegistry(t, uuid.New())
	push := &mocks.MockPushSender{}
	d := notify.NewDispatcher(notify.DispatcherConfig{}, nil, push, reg, nil, nil)

	sent, err := d.SendPush(context.Background(), uuid.New(), testMessage)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, push.Calls())
}

func TestSendPush_AllFailedReportsZero(t *testing.T) {
	owner := uuid.New()
	reg, st := newRegistry(t, owner, "a", "b")
	push := &mocks.MockPushSender{
		Failures: map[string]notify.PushResult{
			"a": {Reason: "unregistered"},
			"b": {Reason: "not-found"},
		},
	}
	d := notify.NewDispatcher(notify.DispatcherConfig{}, nil, push, reg, nil, nil)

	sent, err := d.SendPush(context.Background(), owner, testMessage)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.ElementsMatch(t, []string{"a", "b"}, st.Deactivated)
}

func TestSendPush_BatchError(t *testing.T) {
	owner := uuid.New()
	reg, st := newRegistry(t, owner, "a")
	boom := errors.New("transport down")
	push := &mocks.MockPushSender{Err: boom}
	d := notify.NewDispatcher(notify.DispatcherConfig{}, nil, push, reg, nil, nil)

	sent, err := d.SendPush(context.Background(), owner, testMessage)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, sent)
	assert.Empty(t, st.Deactivated)
}

func TestSendPush_Timeout(t *testing.T) {
	owner := uuid.New()
	reg, _ := newRegistry(t, owner, "a")
	push := &mocks.MockPushSender{
		SendPushBatchFn: func(ctx context.Context, tokens []string, msg notify.PushMessage) ([]notify.PushResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	d := notify.NewDispatcher(notify.DispatcherConfig{SendTimeout: 20 * time.Millisecond}, nil, push, reg, nil, nil)

	sent, err := d.SendPush(context.Background(), owner, testMessage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, sent)
}

func TestSendPush_Unavailable(t *testing.T) {
	d := notify.NewDispatcher(notify.DispatcherConfig{}, nil, nil, nil, nil, nil)

	_, err := d.SendPush(context.Background(), uuid.New(), testMessage)
	assert.ErrorIs(t, err, notify.ErrChannelUnavailable)
}

func TestSendEmail(t *testing.T) {
	ctx := context.Background()
	msg := notify.EmailMessage{To: "owner@example.com", Subject: "s", Body: "b"}

	t.Run("delivered", func(t *testing.T) {
		email := &mocks.MockEmailSender{}
		d := notify.NewDispatcher(notify.DispatcherConfig{EmailRatePerSecond: 100, EmailBurst: 1}, email, nil, nil, nil, nil)

		require.NoError(t, d.SendEmail(ctx, msg))
		require.NoError(t, d.SendEmail(ctx, msg))
		assert.Len(t, email.Sent(), 2)
	})

	t.Run("transport error", func(t *testing.T) {
		boom := errors.New("smtp 503")
		d := notify.NewDispatcher(notify.DispatcherConfig{}, &mocks.MockEmailSender{Err: boom}, nil, nil, nil, nil)
		assert.ErrorIs(t, d.SendEmail(ctx, msg), boom)
	})

	t.Run("timeout", func(t *testing.T) {
		email := &mocks.MockEmailSender{
			SendEmailFn: func(ctx context.Context, _ notify.EmailMessage) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}
		d := notify.NewDispatcher(notify.DispatcherConfig{SendTimeout: 20 * time.Millisecond}, email, nil, nil, nil, nil)
		assert.ErrorIs(t, d.SendEmail(ctx, msg), context.DeadlineExceeded)
		assert.Empty(t, email.Sent())
	})

	t.Run("no address", func(t *testing.T) {
		d := notify.NewDispatcher(notify.DispatcherConfig{}, &mocks.MockEmailSender{}, nil, nil, nil, nil)
		assert.ErrorIs(t, d.SendEmail(ctx, notify.EmailMessage{}), notify.ErrNoEmailAddress)
	})

	t.Run("unavailable", func(t *testing.T) {
		d := notify.NewDispatcher(notify.DispatcherConfig{}, nil, nil, nil, nil, nil)
		assert.ErrorIs(t, d.SendEmail(ctx, msg), notify.ErrChannelUnavailable)
	})
}
