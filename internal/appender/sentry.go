package appender

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap/zapcore"

	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/errors"
	"github.com/Lunar-Chipter/crystalconf/internal/filter"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
)

const sentryFlushTimeout = 2 * time.Second

// SentryOptions are the client options handed to the Sentry SDK.
type SentryOptions = sentry.ClientOptions

// SentryHub is the part of *sentry.Hub the appender uses.
type SentryHub interface {
	CaptureEvent(event *sentry.Event) *sentry.EventID
	Flush(timeout time.Duration) bool
}

// InitSentry initialises the process-wide Sentry client and returns its hub.
func InitSentry(opts SentryOptions) (SentryHub, error) {
	if err := sentry.Init(opts); err != nil {
		return nil, err
	}
	return sentry.CurrentHub(), nil
}

// SentryFactory creates Sentry appenders.
type SentryFactory struct {
	Config *config.SentryAppenderConfig
}

func (f *SentryFactory) CreateAppender(ctx Context, _ string) (interfaces.Appender, error) {
	cfg := f.Config
	name := cfg.DisplayName()

	minLevel, err := interfaces.ParseLevelOr(cfg.MinLevel, interfaces.ERROR)
	if err != nil {
		return nil, errors.NewConfigError(name, "minLevel", fmt.Errorf("%w: %v", errors.ErrInvalidLevel, err))
	}
	b, err := newBase(&cfg.AppenderCommon, ctx)
	if err != nil {
		return nil, errors.NewConfigError(name, "filters", err)
	}
	b.filters = append(filter.Chain{&filter.ThresholdFilter{Level: minLevel}}, b.filters...)

	dsn := cfg.DSN.Value()
	if dsn == "" && os.Getenv("SENTRY_DSN") == "" {
		ctx.Status.Infof(b.label(), "Sentry DSN is blank, events are not sent")
	}

	newHub := ctx.NewSentryHub
	if newHub == nil {
		newHub = InitSentry
	}
	hub, err := newHub(SentryOptions{
		Dsn:         dsn,
		ServerName:  cfg.ServerName,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		Dist:        cfg.Distribution,
	})
	if err != nil {
		return nil, errors.NewConstructionError(name, "sentry", err)
	}

	a := &SentryAppender{
		base:     b,
		hub:      hub,
		tags:     cfg.Tags,
		extra:    cfg.Extra,
		packages: cfg.ApplicationPackages,
	}
	if err := a.Start(); err != nil {
		return nil, errors.NewConstructionError(name, "sentry", err)
	}
	return a, nil
}

// SentryAppender captures events on a Sentry hub. The SDK transport sends
// them in the background.
type SentryAppender struct {
	*base

	hub      SentryHub
	tags     map[string]string
	extra    map[string]string
	packages []string
}

func (a *SentryAppender) Start() error {
	a.started.Store(true)
	return nil
}

// Stop flushes events the transport still holds.
func (a *SentryAppender) Stop() error {
	if !a.started.Swap(false) {
		return nil
	}
	if !a.hub.Flush(sentryFlushTimeout) {
		a.status.Warnf(a.label(), "timed out flushing Sentry events")
	}
	return nil
}

func (a *SentryAppender) Sync() error {
	return nil
}

func (a *SentryAppender) Append(ent zapcore.Entry, fields []zapcore.Field) error {
	if !a.started.Load() {
		return a.failed(errAppenderStopped)
	}
	if !a.accept(ent) {
		return nil
	}
	a.hub.CaptureEvent(a.event(ent, fields))
	a.metrics.EventAppended(a.name, ent.Level)
	return nil
}

func (a *SentryAppender) event(ent zapcore.Entry, fields []zapcore.Field) *sentry.Event {
	ev := sentry.NewEvent()
	ev.Level = sentryLevel(ent.Level)
	ev.Message = ent.Message
	ev.Logger = ent.LoggerName
	if ev.Logger == "" {
		ev.Logger = "ROOT"
	}
	ev.Timestamp = ent.Time

	for k, v := range a.tags {
		ev.Tags[k] = v
	}
	for k, v := range a.extra {
		ev.Extra[k] = v
	}

	enc := zapcore.NewMapObjectEncoder()
	var cause error
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			if err, ok := f.Interface.(error); ok && cause == nil {
				cause = err
			}
		}
		f.AddTo(enc)
	}
	for k, v := range enc.Fields {
		ev.Extra[k] = v
	}

	if cause != nil || ent.Stack != "" {
		st := sentry.NewStacktrace()
		a.markInApp(st)
		exc := sentry.Exception{Type: ent.Message, Value: ent.Message, Stacktrace: st}
		if cause != nil {
			exc.Type = fmt.Sprintf("%T", cause)
			exc.Value = cause.Error()
		}
		ev.Exception = []sentry.Exception{exc}
	}
	return ev
}

// markInApp flags frames from the configured application packages.
func (a *SentryAppender) markInApp(st *sentry.Stacktrace) {
	if st == nil || len(a.packages) == 0 {
		return
	}
	for i := range st.Frames {
		frame := &st.Frames[i]
		frame.InApp = false
		for _, pkg := range a.packages {
			if frame.Module == pkg || strings.HasPrefix(frame.Module, pkg+"/") || strings.HasPrefix(frame.Module, pkg+".") {
				frame.InApp = true
				break
			}
		}
	}
}

func sentryLevel(l zapcore.Level) sentry.Level {
	switch {
	case l < zapcore.InfoLevel:
		return sentry.LevelDebug
	case l == zapcore.InfoLevel:
		return sentry.LevelInfo
	case l == zapcore.WarnLevel:
		return sentry.LevelWarning
	case l == zapcore.ErrorLevel:
		return sentry.LevelError
	default:
		return sentry.LevelFatal
	}
}
