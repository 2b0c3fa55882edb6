// Package crystalconf configures zap loggers from a declarative document in
// the style of logback: named and anonymous appenders (console, file, smtp,
// sentry), rolling policies, filters and layouts, wired once into a logger
// tree rooted at the returned RootLogger.
//
// Paket crystalconf mengonfigurasi logger zap dari dokumen deklaratif.
package crystalconf

import (
	"github.com/Lunar-Chipter/crystalconf/internal/appender"
	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/errors"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
	"github.com/Lunar-Chipter/crystalconf/internal/metrics"
	"github.com/Lunar-Chipter/crystalconf/internal/shutdown"
	"github.com/Lunar-Chipter/crystalconf/internal/wiring"
)

type (
	// Document is a whole configuration file; logging lives under "log".
	Document = config.Document
	// LoggingConfig is the "log" section.
	LoggingConfig = config.LoggingConfig
	// Format is the syntax of a configuration document.
	Format = config.Format

	Level            = interfaces.Level
	ShutdownRegistry = interfaces.ShutdownRegistry
	MetricsCollector = metrics.MetricsCollector

	RootLogger      = wiring.RootLogger
	Option          = wiring.Option
	Bootstrap       = wiring.Bootstrap
	AppenderContext = appender.Context

	ShutdownManager = shutdown.Manager

	ConfigError       = errors.ConfigError
	PatternError      = errors.PatternError
	ConstructionError = errors.ConstructionError
)

const (
	FormatYAML = config.FormatYAML
	FormatJSON = config.FormatJSON
	FormatTOML = config.FormatTOML

	ALL   = interfaces.ALL
	TRACE = interfaces.TRACE
	DEBUG = interfaces.DEBUG
	INFO  = interfaces.INFO
	WARN  = interfaces.WARN
	ERROR = interfaces.ERROR
	OFF   = interfaces.OFF
)

// Sentinel errors callers may test with errors.Is.
var (
	ErrAlreadyConfigured = errors.ErrAlreadyConfigured
	ErrDanglingRef       = errors.ErrDanglingRef
	ErrDuplicateName     = errors.ErrDuplicateName
)

var (
	WithMetrics         = wiring.WithMetrics
	WithStatusOutput    = wiring.WithStatusOutput
	WithAppenderContext = wiring.WithAppenderContext
	WithStdLogRedirect  = wiring.WithStdLogRedirect
)

// CreateRootLogger wires cfg and returns the root logger. It can succeed
// only once per process. The logger's teardown is registered with
// shutdown when it is not nil; defaultLevels apply to loggers the
// configuration does not mention.
func CreateRootLogger(cfg *LoggingConfig, shutdown ShutdownRegistry, defaultLevels map[string]Level, opts ...Option) (*RootLogger, error) {
	return wiring.CreateRootLogger(cfg, shutdown, defaultLevels, opts...)
}

// Build wires cfg into a fresh logger tree without the once-per-process
// guard.
func Build(cfg *LoggingConfig, defaultLevels map[string]Level, opts ...Option) (*RootLogger, error) {
	return wiring.Build(cfg, defaultLevels, opts...)
}

// Validate checks names and references of cfg without creating anything.
func Validate(cfg *LoggingConfig) error {
	return wiring.Validate(cfg)
}

// Load reads a configuration file. The format follows the extension.
//
// Load membaca file konfigurasi.
func Load(path string) (*Document, error) {
	return config.LoadFromFile(path)
}

// Parse decodes a configuration document held in memory.
func Parse(data []byte, format Format) (*Document, error) {
	return config.Parse(data, format)
}

// NewShutdownManager returns an empty shutdown registry.
func NewShutdownManager() *ShutdownManager {
	return shutdown.NewManager()
}

// IsFatal reports whether err is one of the errors that abort logging setup.
func IsFatal(err error) bool {
	return errors.IsFatal(err)
}
