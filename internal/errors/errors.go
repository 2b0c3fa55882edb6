// Package errors defines the error taxonomy used while turning configuration
// into live logging sinks. Every error produced during wiring is fatal: it is
// returned synchronously and aborts logging setup.
package errors

import (
	"errors"
	"fmt"
)

// Predefined errors. Callers match them with errors.Is.
var (
	ErrPatternMandatory   = errors.New(`the property "fileNamePattern" is mandatory`)
	ErrMissingToken       = errors.New("missing token in file name pattern")
	ErrUnexpectedToken    = errors.New("unexpected token in file name pattern")
	ErrDuplicateToken     = errors.New("duplicate token in file name pattern")
	ErrDateCollision      = errors.New("date format is not collision-free")
	ErrDanglingRef        = errors.New("appender reference does not resolve")
	ErrDuplicateName      = errors.New("duplicate appender name")
	ErrEmptyName          = errors.New("appender name must not be empty")
	ErrNoRecipients       = errors.New("at least one recipient is required")
	ErrFileMandatory      = errors.New(`the property "file" is mandatory`)
	ErrLayoutNotStarted   = errors.New("layout failed to start")
	ErrUnknownType        = errors.New("unknown type")
	ErrInvalidSize        = errors.New("invalid size")
	ErrInvalidLevel       = errors.New("invalid level")
	ErrAlreadyConfigured  = errors.New("logging has already been configured")
	ErrContextUnavailable = errors.New("unable to acquire the logger context")
)

// ConfigError is a fatal configuration error attributed to one component of
// the logging configuration, e.g. `appenders[2].rollingPolicy`.
type ConfigError struct {
	Component string
	Message   string
	Cause     error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		if e.Message == "" {
			return fmt.Sprintf("config error [%s]: %v", e.Component, e.Cause)
		}
		return fmt.Sprintf("config error [%s]: %s: %v", e.Component, e.Message, e.Cause)
	}
	return fmt.Sprintf("config error [%s]: %s", e.Component, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a configuration error
func NewConfigError(component, message string, cause error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Cause:     cause,
	}
}

// PatternError reports a file name pattern that fails validation. The message
// names the offending token and points at the logback documentation for the
// policy kind.
type PatternError struct {
	Pattern string
	Message string
	DocRef  string
	Cause   error
}

func (e *PatternError) Error() string {
	if e.Pattern == "" {
		return e.Message
	}
	msg := fmt.Sprintf(`%s in property "fileNamePattern" [%s]`, e.Message, e.Pattern)
	if e.DocRef != "" {
		msg += " See " + e.DocRef
	}
	return msg
}

func (e *PatternError) Unwrap() error {
	return e.Cause
}

// ConstructionError reports a sink or layout that could not be brought to a
// started state, e.g. a file that cannot be opened for append.
type ConstructionError struct {
	Appender string
	Message  string
	Cause    error
}

func (e *ConstructionError) Error() string {
	name := e.Appender
	if name == "" {
		name = "<anonymous>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("appender %s: %s: %v", name, e.Message, e.Cause)
	}
	return fmt.Sprintf("appender %s: %s", name, e.Message)
}

func (e *ConstructionError) Unwrap() error {
	return e.Cause
}

// NewConstructionError creates a construction error
func NewConstructionError(appender, message string, cause error) *ConstructionError {
	return &ConstructionError{
		Appender: appender,
		Message:  message,
		Cause:    cause,
	}
}

// IsFatal reports whether err belongs to the configuration or construction
// taxonomy. All such errors abort logging setup.
func IsFatal(err error) bool {
	var ce *ConfigError
	var pe *PatternError
	var ke *ConstructionError
	return errors.As(err, &ce) || errors.As(err, &pe) || errors.As(err, &ke)
}
