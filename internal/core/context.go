// Package core holds the logger tree that configured appenders attach to and
// routes zap events through it.
// Paket core menyimpan pohon logger tempat appender yang dikonfigurasi dipasang.
package core

import (
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
	"github.com/Lunar-Chipter/crystalconf/internal/metrics"
	"github.com/Lunar-Chipter/crystalconf/internal/status"
)

// LoggerContext owns the logger tree, the start time used by %relative, and
// the status and metrics sinks shared by everything wired into it.
// LoggerContext memiliki pohon logger beserta status dan metrik bersama.
type LoggerContext struct {
	mu      sync.Mutex
	root    *Logger
	loggers map[string]*Logger

	start       time.Time
	status      *status.Manager
	metrics     metrics.MetricsCollector
	errorOutput io.Writer
	callerData  atomic.Bool
}

// Option configures a LoggerContext.
type Option func(*LoggerContext)

// WithStatus sets the status manager.
func WithStatus(st *status.Manager) Option {
	return func(c *LoggerContext) { c.status = st }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(c *LoggerContext) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithErrorOutput sets where zap reports its own internal errors.
func WithErrorOutput(w io.Writer) Option {
	return func(c *LoggerContext) {
		if w != nil {
			c.errorOutput = w
		}
	}
}

// WithStartTime overrides the context start time.
func WithStartTime(t time.Time) Option {
	return func(c *LoggerContext) { c.start = t }
}

// NewLoggerContext creates a context with a root logger at debug level, the
// level an unconfigured logback context starts with.
func NewLoggerContext(opts ...Option) *LoggerContext {
	c := &LoggerContext{
		loggers:     make(map[string]*Logger),
		start:       time.Now(),
		metrics:     metrics.Nop(),
		errorOutput: os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.root = newLogger("", nil, c)
	c.root.SetLevel(interfaces.DEBUG)
	return c
}

// SetCallerData sets whether zap loggers built from now on capture the
// caller of each event.
func (c *LoggerContext) SetCallerData(on bool) {
	c.callerData.Store(on)
}

// CallerData reports whether loggers capture callers. It is off until a
// wired layout needs one.
func (c *LoggerContext) CallerData() bool {
	return c.callerData.Load()
}

// Root returns the root logger.
func (c *LoggerContext) Root() *Logger {
	return c.root
}

// GetLogger returns the logger called name, creating it and any missing
// ancestors. The empty name is the root logger.
func (c *LoggerContext) GetLogger(name string) *Logger {
	if name == "" {
		return c.root
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(name)
}

func (c *LoggerContext) getLocked(name string) *Logger {
	if l, ok := c.loggers[name]; ok {
		return l
	}
	parent := c.root
	if p := parentName(name); p != "" {
		parent = c.getLocked(p)
	}
	l := newLogger(name, parent, c)
	c.loggers[name] = l
	return l
}

// Exists returns the logger called name if it has been created.
func (c *LoggerContext) Exists(name string) (*Logger, bool) {
	if name == "" {
		return c.root, true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.loggers[name]
	return l, ok
}

// Loggers returns every logger, root first, then by name.
func (c *LoggerContext) Loggers() []*Logger {
	c.mu.Lock()
	names := make([]string, 0, len(c.loggers))
	for name := range c.loggers {
		names = append(names, name)
	}
	c.mu.Unlock()
	sort.Strings(names)

	out := []*Logger{c.root}
	for _, name := range names {
		l, _ := c.Exists(name)
		out = append(out, l)
	}
	return out
}

// StartTime is the reference point of relative timestamps.
func (c *LoggerContext) StartTime() time.Time {
	return c.start
}

// Status returns the status manager, possibly nil.
func (c *LoggerContext) Status() *status.Manager {
	return c.status
}

// Metrics returns the metrics collector.
func (c *LoggerContext) Metrics() metrics.MetricsCollector {
	return c.metrics
}

// AttachedAppenders returns each distinct appender attached anywhere in the
// tree.
func (c *LoggerContext) AttachedAppenders() []interfaces.Appender {
	seen := make(map[interfaces.Appender]struct{})
	var out []interfaces.Appender
	for _, l := range c.Loggers() {
		for _, a := range l.Appenders() {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}

// Sync flushes every attached appender.
func (c *LoggerContext) Sync() error {
	var errs error
	for _, a := range c.AttachedAppenders() {
		errs = multierr.Append(errs, a.Sync())
	}
	return errs
}

// Stop detaches every appender and stops them concurrently, waiting for
// async queues to drain. Loggers are reset to their unconfigured state so the
// context can be wired again.
func (c *LoggerContext) Stop() error {
	var appenders []interfaces.Appender
	seen := make(map[interfaces.Appender]struct{})
	for _, l := range c.Loggers() {
		for _, a := range l.detachAll() {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			appenders = append(appenders, a)
		}
		l.reset()
	}
	c.callerData.Store(false)
	return StopAll(appenders)
}

// StopAll stops appenders concurrently and returns every error.
func StopAll(appenders []interfaces.Appender) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	for _, a := range appenders {
		a := a
		g.Go(func() error {
			if err := a.Stop(); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// Enabled reports whether the named logger lets level through.
func (c *LoggerContext) Enabled(name string, level zapcore.Level) bool {
	return c.GetLogger(name).EffectiveLevel().Enables(level)
}
