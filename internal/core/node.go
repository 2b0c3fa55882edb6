package core

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
)

// Logger is one node of the named logger tree. Its level may be unset, in
// which case the nearest ancestor with a level decides.
// Logger adalah satu simpul dari pohon logger bernama.
type Logger struct {
	name   string
	parent *Logger
	ctx    *LoggerContext

	mu        sync.RWMutex
	level     interfaces.Level
	levelSet  bool
	additive  bool
	appenders []interfaces.Appender
}

func newLogger(name string, parent *Logger, ctx *LoggerContext) *Logger {
	return &Logger{name: name, parent: parent, ctx: ctx, additive: true}
}

// Name returns the dotted logger name; the root logger is "".
func (l *Logger) Name() string {
	return l.name
}

// IsRoot reports whether l is the root logger.
func (l *Logger) IsRoot() bool {
	return l.parent == nil
}

// Parent returns the enclosing logger, nil for root.
func (l *Logger) Parent() *Logger {
	return l.parent
}

// SetLevel assigns the logger's own level.
func (l *Logger) SetLevel(level interfaces.Level) {
	l.mu.Lock()
	l.level, l.levelSet = level, true
	l.mu.Unlock()
}

// ClearLevel makes the logger inherit its level again. The root logger
// always keeps a level.
func (l *Logger) ClearLevel() {
	if l.IsRoot() {
		return
	}
	l.mu.Lock()
	l.levelSet = false
	l.mu.Unlock()
}

// Level returns the logger's own level and whether it is set.
func (l *Logger) Level() (interfaces.Level, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level, l.levelSet
}

// EffectiveLevel walks up the tree to the first logger with a level.
func (l *Logger) EffectiveLevel() interfaces.Level {
	for n := l; n != nil; n = n.parent {
		if level, ok := n.Level(); ok {
			return level
		}
	}
	return interfaces.INFO
}

// SetAdditive controls whether events also reach ancestor appenders.
func (l *Logger) SetAdditive(additive bool) {
	l.mu.Lock()
	l.additive = additive
	l.mu.Unlock()
}

// IsAdditive reports the additivity flag.
func (l *Logger) IsAdditive() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.additive
}

// AddAppender attaches a. Attaching the same appender twice is a no-op.
func (l *Logger) AddAppender(a interfaces.Appender) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.appenders {
		if existing == a {
			return
		}
	}
	l.appenders = append(l.appenders, a)
}

// Appenders returns a snapshot of the attached appenders.
func (l *Logger) Appenders() []interfaces.Appender {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]interfaces.Appender, len(l.appenders))
	copy(out, l.appenders)
	return out
}

// HasAppender reports whether a is attached to l itself.
func (l *Logger) HasAppender(a interfaces.Appender) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, existing := range l.appenders {
		if existing == a {
			return true
		}
	}
	return false
}

func (l *Logger) detachAll() []interfaces.Appender {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.appenders
	l.appenders = nil
	return out
}

func (l *Logger) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appenders = nil
	l.additive = true
	if l.parent != nil {
		l.levelSet = false
	} else {
		l.level, l.levelSet = interfaces.DEBUG, true
	}
}

// Zap returns a *zap.Logger whose events are routed through this node. Events
// at error or above carry a stack trace; callers are captured only when the
// context asks for them.
func (l *Logger) Zap(opts ...zap.Option) *zap.Logger {
	base := []zap.Option{
		zap.WithCaller(l.ctx.CallerData()),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(zapcore.AddSync(l.ctx.errorOutput))),
	}
	return zap.New(&dispatchCore{logger: l}, append(base, opts...)...)
}

// parentName returns the name of the closest enclosing logger, "" for top
// level names.
func parentName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return ""
}
