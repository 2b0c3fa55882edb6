package interfaces

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Level represents the threshold of a logger or filter. Levels are ordered by
// severity, so ALL < TRACE < DEBUG < INFO < WARN < ERROR < OFF.
type Level uint8

const (
	// ALL enables every event, including trace.
	ALL Level = iota

	// TRACE level for very detailed debugging information
	TRACE

	// DEBUG level for debugging information, useful for diagnosing problems
	DEBUG

	// INFO level for general information about application progress
	INFO

	// WARN level for warning conditions that might indicate problems
	WARN

	// ERROR level for error conditions that prevent normal operation
	ERROR

	// OFF disables every event.
	OFF
)

// TraceLevel is the zap level used for trace events. zap has no trace level of
// its own, so it sits one step below zapcore.DebugLevel.
const TraceLevel = zapcore.DebugLevel - 1

var (
	// levelStrings contains the configuration names of the levels, indexed by Level
	levelStrings = [...]string{
		"all", "trace", "debug", "info", "warn", "error", "off",
	}

	// zapLevels maps each Level onto the lowest zap level it lets through
	zapLevels = [...]zapcore.Level{
		zapcore.Level(math.MinInt8),
		TraceLevel,
		zapcore.DebugLevel,
		zapcore.InfoLevel,
		zapcore.WarnLevel,
		zapcore.ErrorLevel,
		zapcore.Level(math.MaxInt8),
	}
)

// String returns the configuration name of the level.
func (l Level) String() string {
	if l < Level(len(levelStrings)) {
		return levelStrings[l]
	}
	return "unknown"
}

// ParseLevel parses a level name. Matching is case-insensitive and accepts
// "warning" as an alias of "warn".
func ParseLevel(levelStr string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "all":
		return ALL, nil
	case "trace":
		return TRACE, nil
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "off":
		return OFF, nil
	}
	return INFO, fmt.Errorf("invalid log level: %q", levelStr)
}

// ParseLevelOr parses a level name, returning def when the name is empty.
func ParseLevelOr(levelStr string, def Level) (Level, error) {
	if strings.TrimSpace(levelStr) == "" {
		return def, nil
	}
	return ParseLevel(levelStr)
}

// ZapLevel returns the lowest zap level enabled by l.
func (l Level) ZapLevel() zapcore.Level {
	if l < Level(len(zapLevels)) {
		return zapLevels[l]
	}
	return zapcore.InfoLevel
}

// Enables reports whether an event at zap level zl passes threshold l.
func (l Level) Enables(zl zapcore.Level) bool {
	return zl >= l.ZapLevel()
}

// Matches reports whether an event at zap level zl is exactly level l.
// Every zap level at or above error counts as ERROR.
func (l Level) Matches(zl zapcore.Level) bool {
	return FromZapLevel(zl) == l
}

// FromZapLevel converts a zap level into the closest Level.
func FromZapLevel(zl zapcore.Level) Level {
	switch {
	case zl < zapcore.DebugLevel:
		return TRACE
	case zl == zapcore.DebugLevel:
		return DEBUG
	case zl == zapcore.InfoLevel:
		return INFO
	case zl == zapcore.WarnLevel:
		return WARN
	default:
		return ERROR
	}
}

// LevelName returns the upper-case display name of a zap level as rendered by
// layouts, e.g. "TRACE" or "ERROR".
func LevelName(zl zapcore.Level) string {
	if zl < zapcore.DebugLevel {
		return "TRACE"
	}
	return zl.CapitalString()
}
