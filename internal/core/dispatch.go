package core

import (
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
)

// dispatchCore is the zapcore.Core behind every Logger.Zap. It checks the
// logger's effective level and hands each event to the appenders of the
// logger and, while additivity holds, of its ancestors.
type dispatchCore struct {
	logger *Logger
	fields []zapcore.Field
}

var _ zapcore.Core = (*dispatchCore)(nil)

func (c *dispatchCore) Enabled(level zapcore.Level) bool {
	return c.logger.EffectiveLevel().Enables(level)
}

func (c *dispatchCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &dispatchCore{logger: c.logger, fields: merged}
}

func (c *dispatchCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *dispatchCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ent.LoggerName = c.logger.name
	if len(c.fields) > 0 {
		all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
		all = append(all, c.fields...)
		fields = append(all, fields...)
	}

	var errs error
	c.logger.walk(func(a interfaces.Appender) {
		errs = multierr.Append(errs, a.Append(ent, fields))
	})
	return errs
}

func (c *dispatchCore) Sync() error {
	var errs error
	c.logger.walk(func(a interfaces.Appender) {
		errs = multierr.Append(errs, a.Sync())
	})
	return errs
}

// walk visits the appenders an event of l reaches. An appender attached at
// several levels is visited once.
func (l *Logger) walk(fn func(interfaces.Appender)) {
	var seen map[interfaces.Appender]struct{}
	for n := l; n != nil; n = n.parent {
		for _, a := range n.Appenders() {
			if seen == nil {
				seen = make(map[interfaces.Appender]struct{})
			}
			if _, dup := seen[a]; dup {
				continue
			}
			seen[a] = struct{}{}
			fn(a)
		}
		if !n.IsAdditive() {
			return
		}
	}
}
