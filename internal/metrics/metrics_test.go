package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveTick(150*time.Millisecond, 3, 1)
	m.Send("email", "due_today", OutcomeSent)
	m.Send("email", "due_today", OutcomeSent)
	m.Send("push", "overdue_1d", OutcomeFailed)
	m.Claim("email", "due_today", true)
	m.Claim("email", "due_today", false)
	m.TokensDeactivated(2)
	m.TokensDeactivated(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticks))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ownersEvaluated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ownerFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sends.WithLabelValues("email", "due_today", OutcomeSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sends.WithLabelValues("push", "overdue_1d", OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.claims.WithLabelValues("email", "due_today", "claimed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.claims.WithLabelValues("email", "due_today", "duplicate")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tokensDeactivated))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveTick(time.Second, 1, 0)
		m.Send("email", "due_today", OutcomeSent)
		m.Claim("push", "due_today", true)
		m.TokensDeactivated(1)
	})
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = New(reg)

	assert.Panics(t, func() { _ = New(reg) }, "duplicate registration must be rejected by the registry")
}
