package interfaces

import (
	"go.uber.org/zap/zapcore"
)

// FilterReply is the outcome of a filter decision.
type FilterReply int8

const (
	// DENY drops the event immediately.
	DENY FilterReply = iota - 1

	// NEUTRAL passes the decision on to the next filter in the chain.
	NEUTRAL

	// ACCEPT lets the event through without consulting the rest of the chain.
	ACCEPT
)

func (r FilterReply) String() string {
	switch r {
	case DENY:
		return "DENY"
	case ACCEPT:
		return "ACCEPT"
	default:
		return "NEUTRAL"
	}
}

// Filter decides whether an event reaches an appender.
type Filter interface {
	Decide(ent zapcore.Entry) FilterReply
}

// LifeCycle is implemented by components that must be started before use and
// stopped on shutdown.
type LifeCycle interface {
	Start() error
	Stop() error
	IsStarted() bool
}

// Appender is a live log sink. Append is called on the logging goroutine; an
// appender that performs slow I/O must hand the work off itself.
type Appender interface {
	LifeCycle

	// Name returns the declared appender name, or "" for anonymous appenders.
	Name() string

	// Append renders and delivers one event.
	Append(ent zapcore.Entry, fields []zapcore.Field) error

	// Sync flushes anything buffered by the appender.
	Sync() error
}

// CallerDataUser is implemented by appenders whose layout renders the caller
// of an event. Loggers only capture callers while such an appender is wired.
type CallerDataUser interface {
	CallerData() bool
}

// ShutdownRegistry accepts teardown hooks that run when the process exits.
type ShutdownRegistry interface {
	AddShutdownHook(hook func() error)
}
