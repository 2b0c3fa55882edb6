package wiring

import (
	"io"
	"os"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Lunar-Chipter/crystalconf/internal/appender"
	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/core"
	"github.com/Lunar-Chipter/crystalconf/internal/errors"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
	"github.com/Lunar-Chipter/crystalconf/internal/metrics"
	"github.com/Lunar-Chipter/crystalconf/internal/status"
)

// RootLogger is the handle returned to the application. It embeds the root
// *zap.Logger and owns the logger context behind it.
type RootLogger struct {
	*zap.Logger

	ctx           *core.LoggerContext
	configurator  *Configurator
	defaultLevels map[string]interfaces.Level

	stopOnce      sync.Once
	restoreStdLog func()
}

// GetLogger returns the zap logger for a dotted logger name.
func (r *RootLogger) GetLogger(name string) *zap.Logger {
	return r.ctx.GetLogger(name).Zap()
}

// Context returns the logger context.
func (r *RootLogger) Context() *core.LoggerContext {
	return r.ctx
}

// Configurator returns the configurator that wired the context.
func (r *RootLogger) Configurator() *Configurator {
	return r.configurator
}

// Status returns the wiring diagnostics.
func (r *RootLogger) Status() *status.Manager {
	return r.ctx.Status()
}

// Reconfigure replaces the whole appender graph with the one described by
// cfg. The default levels given at creation still apply. Whether callers are
// captured is fixed when a zap logger is built: the embedded root logger keeps
// the setting of the first configuration, GetLogger follows the latest.
func (r *RootLogger) Reconfigure(cfg *config.LoggingConfig) error {
	return r.configurator.Reconfigure(cfg, r.defaultLevels)
}

// Stop flushes and stops every appender and restores the standard library
// logger. Only the first call has an effect.
func (r *RootLogger) Stop() error {
	var err error
	r.stopOnce.Do(func() {
		if r.restoreStdLog != nil {
			r.restoreStdLog()
		}
		err = multierr.Append(r.ctx.Sync(), r.configurator.Stop())
	})
	return err
}

// Option adjusts how a root logger is built.
type Option func(*options)

type options struct {
	metrics     metrics.MetricsCollector
	statusOut   io.Writer
	appenders   appender.Context
	redirectStd bool
}

// WithMetrics reports appender activity to m.
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(o *options) { o.metrics = m }
}

// WithStatusOutput sets where debug diagnostics go, stderr by default.
func WithStatusOutput(w io.Writer) Option {
	return func(o *options) { o.statusOut = w }
}

// WithAppenderContext supplies appender dependencies such as the clock or
// the standard streams.
func WithAppenderContext(actx appender.Context) Option {
	return func(o *options) { o.appenders = actx }
}

// WithStdLogRedirect routes the standard library logger into the root
// logger at info level.
func WithStdLogRedirect(redirect bool) Option {
	return func(o *options) { o.redirectStd = redirect }
}

// Bootstrap hands out at most one root logger.
type Bootstrap struct {
	mu   sync.Mutex
	done bool
}

var process Bootstrap

// CreateRootLogger wires cfg into a new logger context and registers its
// teardown with shutdown. It succeeds at most once per process; later calls
// return errors.ErrAlreadyConfigured.
func CreateRootLogger(cfg *config.LoggingConfig, shutdown interfaces.ShutdownRegistry, defaultLevels map[string]interfaces.Level, opts ...Option) (*RootLogger, error) {
	return process.CreateRootLogger(cfg, shutdown, defaultLevels, append([]Option{WithStdLogRedirect(true)}, opts...)...)
}

// CreateRootLogger is the per-Bootstrap form of the package function. A
// failed attempt does not use up the Bootstrap.
func (b *Bootstrap) CreateRootLogger(cfg *config.LoggingConfig, shutdown interfaces.ShutdownRegistry, defaultLevels map[string]interfaces.Level, opts ...Option) (*RootLogger, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return nil, errors.ErrAlreadyConfigured
	}

	r, err := Build(cfg, defaultLevels, opts...)
	if err != nil {
		return nil, err
	}
	if shutdown != nil {
		shutdown.AddShutdownHook(r.Stop)
	}
	b.done = true
	return r, nil
}

// Build wires cfg into a fresh context without the once-per-process guard.
// Tools that validate configurations use it directly.
func Build(cfg *config.LoggingConfig, defaultLevels map[string]interfaces.Level, opts ...Option) (*RootLogger, error) {
	if cfg == nil {
		cfg = &config.LoggingConfig{}
	}
	o := options{statusOut: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	st := status.NewManager(cfg.Debug, o.statusOut)
	ctxOpts := []core.Option{core.WithStatus(st)}
	if o.metrics != nil {
		ctxOpts = append(ctxOpts, core.WithMetrics(o.metrics))
	}
	if !o.appenders.StartTime.IsZero() {
		ctxOpts = append(ctxOpts, core.WithStartTime(o.appenders.StartTime))
	}
	ctx := core.NewLoggerContext(ctxOpts...)

	actx := o.appenders
	if actx.QueueSize == 0 {
		actx.QueueSize = cfg.QueueSize
	}
	r := &RootLogger{
		ctx:           ctx,
		configurator:  NewConfigurator(ctx, actx),
		defaultLevels: defaultLevels,
	}

	if cfg.UseExternalConfig {
		st.Infof(origin, "useExternalConfig is set, leaving logging unconfigured")
		level := interfaces.INFO
		if l, ok := defaultLevels[""]; ok {
			level = l
		}
		ctx.Root().SetLevel(level)
	} else if err := r.configurator.Configure(cfg, defaultLevels); err != nil {
		return nil, err
	}

	r.Logger = ctx.Root().Zap()
	if o.redirectStd && !cfg.UseExternalConfig {
		r.restoreStdLog = zap.RedirectStdLog(r.Logger)
	}
	return r, nil
}
