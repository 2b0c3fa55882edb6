// Package metrics counts what appenders do with the events they receive.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap/zapcore"

	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
)

// MetricsCollector receives appender activity. Implementations must be safe
// for concurrent use since every logging goroutine reports through it.
type MetricsCollector interface {
	// EventAppended counts an event delivered to the appender's sink
	EventAppended(appender string, level zapcore.Level)

	// EventDenied counts an event rejected by the appender's filter chain
	EventDenied(appender string)

	// AppendFailed counts an event that the sink failed to take
	AppendFailed(appender string)

	// RolledOver counts a file rollover
	RolledOver(appender string)
}

// Nop returns a collector that discards everything.
func Nop() MetricsCollector {
	return nopCollector{}
}

type nopCollector struct{}

func (nopCollector) EventAppended(string, zapcore.Level) {}
func (nopCollector) EventDenied(string)                  {}
func (nopCollector) AppendFailed(string)                 {}
func (nopCollector) RolledOver(string)                   {}

// PrometheusCollector exports appender activity as Prometheus counters.
type PrometheusCollector struct {
	events    *prometheus.CounterVec
	denied    *prometheus.CounterVec
	errors    *prometheus.CounterVec
	rollovers *prometheus.CounterVec
}

// NewPrometheusCollector registers the appender counters with reg. It panics
// if they are already registered there, so create one per registry.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crystalconf_appender_events_total",
				Help: "Events delivered to an appender's sink",
			},
			[]string{"appender", "level"},
		),
		denied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crystalconf_appender_denied_total",
				Help: "Events rejected by an appender's filters",
			},
			[]string{"appender"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crystalconf_appender_errors_total",
				Help: "Events an appender failed to write",
			},
			[]string{"appender"},
		),
		rollovers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crystalconf_rollovers_total",
				Help: "Log file rollovers",
			},
			[]string{"appender"},
		),
	}
}

func (p *PrometheusCollector) EventAppended(appender string, level zapcore.Level) {
	p.events.WithLabelValues(label(appender), interfaces.LevelName(level)).Inc()
}

func (p *PrometheusCollector) EventDenied(appender string) {
	p.denied.WithLabelValues(label(appender)).Inc()
}

func (p *PrometheusCollector) AppendFailed(appender string) {
	p.errors.WithLabelValues(label(appender)).Inc()
}

func (p *PrometheusCollector) RolledOver(appender string) {
	p.rollovers.WithLabelValues(label(appender)).Inc()
}

// label names anonymous appenders.
func label(appender string) string {
	if appender == "" {
		return "anonymous"
	}
	return appender
}
