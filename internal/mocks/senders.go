package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/sprout-api/internal/notify"
)

// MockEmailSender implements notify.EmailSender and records what it sent.
type MockEmailSender struct {
	mu   sync.Mutex
	sent []notify.EmailMessage

	SendEmailFn func(ctx context.Context, msg notify.EmailMessage) error
	Err         error
}

var _ notify.EmailSender = (*MockEmailSender)(nil)

// SendEmail implements notify.EmailSender.
// Only messages accepted without error are recorded.
func (m *MockEmailSender) SendEmail(ctx context.Context, msg notify.EmailMessage) error {
	err := m.Err
	if m.SendEmailFn != nil {
		err = m.SendEmailFn(ctx, msg)
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of the accepted messages.
func (m *MockEmailSender) Sent() []notify.EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.EmailMessage(nil), m.sent...)
}

// PushCall is one recorded SendPushBatch invocation.
type PushCall struct {
	Tokens  []string
	Message notify.PushMessage
}

// MockPushSender implements notify.PushSender.
// By default every token succeeds unless listed in Failures.
type MockPushSender struct {
	mu    sync.Mutex
	calls []PushCall

	SendPushBatchFn func(ctx context.Context, tokens []string, msg notify.PushMessage) ([]notify.PushResult, error)

	// Failures maps a token to the failed result returned for it.
	Failures map[string]notify.PushResult

	// Err fails the whole batch.
	Err error
}

var _ notify.PushSender = (*MockPushSender)(nil)

// SendPushBatch implements notify.PushSender.
func (m *MockPushSender) SendPushBatch(
	ctx context.Context,
	tokens []string,
	msg notify.PushMessage,
) ([]notify.PushResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, PushCall{Tokens: append([]string(nil), tokens...), Message: msg})
	m.mu.Unlock()

	if m.SendPushBatchFn != nil {
		return m.SendPushBatchFn(ctx, tokens, msg)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	results := make([]notify.PushResult, len(tokens))
	for i, tok := range tokens {
		if f, ok := m.Failures[tok]; ok {
			f.Token = tok
			f.Success = false
			results[i] = f
			continue
		}
		results[i] = notify.PushResult{Token: tok, Success: true}
	}
	return results, nil
}

// Calls returns a copy of the recorded invocations.
func (m *MockPushSender) Calls() []PushCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PushCall(nil), m.calls...)
}
