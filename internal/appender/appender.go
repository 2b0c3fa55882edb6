// Package appender builds live appenders from appender declarations.
package appender

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/errors"
	"github.com/Lunar-Chipter/crystalconf/internal/filter"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
	"github.com/Lunar-Chipter/crystalconf/internal/layout"
	"github.com/Lunar-Chipter/crystalconf/internal/metrics"
	"github.com/Lunar-Chipter/crystalconf/internal/rotation"
	"github.com/Lunar-Chipter/crystalconf/internal/status"
)

// Context is what appender factories take from the logger context.
type Context struct {
	Status    *status.Manager
	Metrics   metrics.MetricsCollector
	StartTime time.Time

	// QueueSize of the async decorator, outputs.DefaultQueueSize when 0
	QueueSize int

	// Clock drives rolling policies, time.Now when nil
	Clock rotation.Clock

	// Stdout and Stderr replace the standard streams of console appenders.
	Stdout io.Writer
	Stderr io.Writer

	// NewMailSender creates the SMTP transport, NewSMTPSender when nil.
	NewMailSender func(cfg *config.SMTPAppenderConfig) MailSender

	// NewSentryHub initialises the Sentry client, InitSentry when nil.
	NewSentryHub func(opts SentryOptions) (SentryHub, error)
}

func (c Context) metrics() metrics.MetricsCollector {
	if c.Metrics == nil {
		return metrics.Nop()
	}
	return c.Metrics
}

func (c Context) stdout() io.Writer {
	if c.Stdout != nil {
		return c.Stdout
	}
	return os.Stdout
}

func (c Context) stderr() io.Writer {
	if c.Stderr != nil {
		return c.Stderr
	}
	return os.Stderr
}

// Factory creates a started appender.
type Factory interface {
	CreateAppender(ctx Context, defaultLogFormat string) (interfaces.Appender, error)
}

// NewFactory returns the factory for decl.
func NewFactory(decl config.AppenderConfig) (Factory, error) {
	switch d := decl.(type) {
	case *config.ConsoleAppenderConfig:
		return &ConsoleFactory{Config: d}, nil
	case *config.FileAppenderConfig:
		return &FileFactory{Config: d}, nil
	case *config.SMTPAppenderConfig:
		return &SMTPFactory{Config: d}, nil
	case *config.SentryAppenderConfig:
		return &SentryFactory{Config: d}, nil
	default:
		return nil, fmt.Errorf("%w: appender %T", errors.ErrUnknownType, decl)
	}
}

// CreateAppender builds and starts the appender declared by decl.
func CreateAppender(decl config.AppenderConfig, ctx Context, defaultLogFormat string) (interfaces.Appender, error) {
	f, err := NewFactory(decl)
	if err != nil {
		return nil, err
	}
	return f.CreateAppender(ctx, defaultLogFormat)
}

// base carries what every appender shares: name, filters and metrics.
type base struct {
	name    string
	filters filter.Chain
	metrics metrics.MetricsCollector
	status  *status.Manager
	started atomic.Bool
}

func newBase(common *config.AppenderCommon, ctx Context) (*base, error) {
	chain, err := filter.CreateChain(common.Filters, ctx.Status)
	if err != nil {
		return nil, err
	}
	b := &base{filters: chain, metrics: ctx.metrics(), status: ctx.Status}
	if common.Name != nil {
		b.name = *common.Name
	}
	return b, nil
}

func (b *base) Name() string {
	return b.name
}

func (b *base) IsStarted() bool {
	return b.started.Load()
}

func (b *base) label() string {
	if b.name == "" {
		return "anonymous"
	}
	return b.name
}

// accept runs the filter chain and counts denials.
func (b *base) accept(ent zapcore.Entry) bool {
	if b.filters.Accepts(ent) {
		return true
	}
	b.metrics.EventDenied(b.name)
	return false
}

func (b *base) failed(err error) error {
	b.metrics.AppendFailed(b.name)
	return fmt.Errorf("appender %s: %w", b.label(), err)
}

// createLayout builds the appender's encoder from its layout declaration.
func createLayout(common *config.AppenderCommon, ctx Context, defaultLogFormat string) (zapcore.Encoder, error) {
	var decl config.LayoutConfig
	if common.Layout != nil {
		decl = common.Layout.LayoutConfig
	}
	enc, err := layout.CreateLayout(decl, layout.Options{
		AppenderFormat: common.LogFormat,
		ContextFormat:  defaultLogFormat,
		Start:          ctx.StartTime,
	})
	if err != nil {
		return nil, errors.NewConstructionError(common.DisplayName(), "layout", err)
	}
	return enc, nil
}
