package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.EventAppended("file", zapcore.InfoLevel)
	c.EventAppended("file", zapcore.InfoLevel)
	c.EventAppended("", zapcore.ErrorLevel)
	c.EventDenied("file")
	c.AppendFailed("smtp")
	c.RolledOver("file")
	c.RolledOver("file")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.events.WithLabelValues("file", "INFO")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues("anonymous", "ERROR")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.denied.WithLabelValues("file")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errors.WithLabelValues("smtp")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.rollovers.WithLabelValues("file")))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestPrometheusCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusCollector(reg)
	assert.Panics(t, func() { NewPrometheusCollector(reg) })
}

func TestNop(t *testing.T) {
	c := Nop()
	assert.NotPanics(t, func() {
		c.EventAppended("x", zapcore.InfoLevel)
		c.EventDenied("x")
		c.AppendFailed("x")
		c.RolledOver("x")
	})
}
