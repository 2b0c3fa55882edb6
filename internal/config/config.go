// Package config defines the declarative logging configuration tree and
// loads it from YAML, JSON or TOML documents.
package config

// DefaultLogFormat is the context-wide pattern used by appenders that declare
// neither a logFormat nor a pattern layout format.
const DefaultLogFormat = "%-5p [%d{ISO8601,UTC}] %thread %c{20}: %m%n%rEx"

// Document is the top-level configuration file. Logging lives under "log".
type Document struct {
	Log LoggingConfig `yaml:"log"`
}

// LoggingConfig holds the logging subsystem configuration
type LoggingConfig struct {
	// Level of the root logger, info when empty
	Level string `yaml:"level"`

	// LogFormat is the default pattern for appenders without their own
	LogFormat string `yaml:"logFormat"`

	// UseExternalConfig leaves the logging runtime untouched
	UseExternalConfig bool `yaml:"useExternalConfig"`

	// Debug prints setup diagnostics to stderr
	Debug bool `yaml:"debug"`

	// AppenderRefs are named appenders attached to the root logger
	AppenderRefs []string `yaml:"appenderRefs"`

	// QueueSize of the async decorator wrapping console and file appenders
	QueueSize int `yaml:"queueSize"`

	Loggers   map[string]LoggerConfig `yaml:"loggers"`
	Appenders Appenders               `yaml:"appenders"`
}

// LoggerConfig holds the configuration of one named logger
type LoggerConfig struct {
	Level        string   `yaml:"level"`
	AppenderRefs []string `yaml:"appenderRefs"`

	// Additivity forwards events to ancestor appenders, true when unset
	Additivity *bool `yaml:"additivity"`
}

// IsAdditive reports the effective additivity.
func (c LoggerConfig) IsAdditive() bool {
	return c.Additivity == nil || *c.Additivity
}

// GetLogFormat returns the configured default pattern or DefaultLogFormat.
func (c *LoggingConfig) GetLogFormat() string {
	if c.LogFormat != "" {
		return c.LogFormat
	}
	return DefaultLogFormat
}

// AppenderType discriminates appender declarations.
type AppenderType string

const (
	ConsoleAppender AppenderType = "console"
	FileAppender    AppenderType = "file"
	SMTPAppender    AppenderType = "smtp"
	SentryAppender  AppenderType = "sentry"
)

// AppenderConfig is one of *ConsoleAppenderConfig, *FileAppenderConfig,
// *SMTPAppenderConfig or *SentryAppenderConfig.
type AppenderConfig interface {
	Type() AppenderType
	Common() *AppenderCommon
}

// AppenderCommon holds the settings every appender kind shares
type AppenderCommon struct {
	// Name is nil for anonymous appenders
	Name      *string        `yaml:"name"`
	LogFormat string         `yaml:"logFormat"`
	Layout    *LayoutDecl    `yaml:"layout"`
	Filters   []FilterConfig `yaml:"filters"`
}

// Common returns c itself; embedding structs inherit it.
func (c *AppenderCommon) Common() *AppenderCommon { return c }

// DisplayName returns the name, or "<anonymous>".
func (c *AppenderCommon) DisplayName() string {
	if c.Name == nil {
		return "<anonymous>"
	}
	return *c.Name
}

// ConsoleAppenderConfig writes to stdout or stderr
type ConsoleAppenderConfig struct {
	AppenderCommon `yaml:",inline"`
	Target         string `yaml:"target"`
}

func (*ConsoleAppenderConfig) Type() AppenderType { return ConsoleAppender }

// FileAppenderConfig writes to a file, optionally rolling it over
type FileAppenderConfig struct {
	AppenderCommon `yaml:",inline"`
	File           string             `yaml:"file"`
	Append         *bool              `yaml:"append"`
	RollingPolicy  *RollingPolicyDecl `yaml:"rollingPolicy"`
}

func (*FileAppenderConfig) Type() AppenderType { return FileAppender }

// IsAppend reports the effective append mode, true when unset.
func (c *FileAppenderConfig) IsAppend() bool {
	return c.Append == nil || *c.Append
}

// SMTPAppenderConfig mails error events
type SMTPAppenderConfig struct {
	AppenderCommon  `yaml:",inline"`
	SMTPHost        string   `yaml:"smtpHost"`
	SMTPPort        int      `yaml:"smtpPort"`
	To              []string `yaml:"to"`
	From            string   `yaml:"from"`
	Subject         string   `yaml:"subject"`
	Username        string   `yaml:"username"`
	Password        Secret   `yaml:"password"`
	StartTLS        bool     `yaml:"startTls"`
	SSL             bool     `yaml:"ssl"`
	Localhost       string   `yaml:"localhost"`
	CharsetEncoding string   `yaml:"charsetEncoding"`
}

func (*SMTPAppenderConfig) Type() AppenderType { return SMTPAppender }

// SentryAppenderConfig forwards events to Sentry
type SentryAppenderConfig struct {
	AppenderCommon      `yaml:",inline"`
	DSN                 Secret            `yaml:"dsn"`
	ServerName          string            `yaml:"serverName"`
	Environment         string            `yaml:"environment"`
	Release             string            `yaml:"release"`
	Distribution        string            `yaml:"distribution"`
	Tags                Tags              `yaml:"tags"`
	Extra               map[string]string `yaml:"extra"`
	ApplicationPackages []string          `yaml:"applicationPackages"`
	MinLevel            string            `yaml:"minLevel"`
}

func (*SentryAppenderConfig) Type() AppenderType { return SentryAppender }

// LayoutType discriminates layout declarations.
type LayoutType string

const (
	PatternLayout LayoutType = "pattern"
	JSONLayout    LayoutType = "json"
	HTMLLayout    LayoutType = "html"
	XMLLayout     LayoutType = "xml"
)

// LayoutConfig is one of *PatternLayoutConfig, *JSONLayoutConfig,
// *HTMLLayoutConfig or *XMLLayoutConfig.
type LayoutConfig interface {
	Type() LayoutType
}

// PatternLayoutConfig renders events through a conversion pattern
type PatternLayoutConfig struct {
	LogFormat string `yaml:"logFormat"`
}

func (*PatternLayoutConfig) Type() LayoutType { return PatternLayout }

// JSONLayoutConfig renders one JSON object per event
type JSONLayoutConfig struct {
	TimestampFormat string `yaml:"timestampFormat"`
	PrettyPrint     bool   `yaml:"prettyPrint"`
}

func (*JSONLayoutConfig) Type() LayoutType { return JSONLayout }

// HTMLLayoutConfig renders events as table rows
type HTMLLayoutConfig struct {
	Pattern string `yaml:"pattern"`
}

func (*HTMLLayoutConfig) Type() LayoutType { return HTMLLayout }

// XMLLayoutConfig renders log4j-style XML events
type XMLLayoutConfig struct {
	LocationInfo bool `yaml:"locationInfo"`
	Properties   bool `yaml:"properties"`
}

func (*XMLLayoutConfig) Type() LayoutType { return XMLLayout }

// FilterType discriminates filter declarations.
type FilterType string

const (
	LevelFilter     FilterType = "level"
	ThresholdFilter FilterType = "threshold"
)

// FilterConfig declares one filter of an appender's chain. OnMatch and
// OnMismatch only apply to level filters.
type FilterConfig struct {
	Type       FilterType `yaml:"type"`
	Level      string     `yaml:"level"`
	OnMatch    string     `yaml:"onMatch"`
	OnMismatch string     `yaml:"onMismatch"`
}

// RollingPolicyType discriminates rolling policy declarations.
type RollingPolicyType string

const (
	TimeBasedPolicy        RollingPolicyType = "time"
	SizeAndTimeBasedPolicy RollingPolicyType = "sizeAndTime"
	FixedWindowPolicy      RollingPolicyType = "fixedWindow"
)

// RollingPolicyConfig is one of *TimeBasedPolicyConfig,
// *SizeAndTimeBasedPolicyConfig or *FixedWindowPolicyConfig.
type RollingPolicyConfig interface {
	Type() RollingPolicyType
}

// TimeBasedPolicyConfig rolls over when the date in FileNamePattern changes
type TimeBasedPolicyConfig struct {
	FileNamePattern string `yaml:"fileNamePattern"`
	HistorySize     int    `yaml:"historySize"`
	TotalSize       string `yaml:"totalSize"`
}

func (*TimeBasedPolicyConfig) Type() RollingPolicyType { return TimeBasedPolicy }

// SizeAndTimeBasedPolicyConfig also rolls over when the file exceeds FileSize
type SizeAndTimeBasedPolicyConfig struct {
	TimeBasedPolicyConfig `yaml:",inline"`
	FileSize              string `yaml:"fileSize"`
	// MaxFileSize is the logback spelling of FileSize
	MaxFileSize string `yaml:"maxFileSize"`
}

// GetFileSize returns FileSize, falling back to MaxFileSize.
func (c *SizeAndTimeBasedPolicyConfig) GetFileSize() string {
	if c.FileSize != "" {
		return c.FileSize
	}
	return c.MaxFileSize
}

func (*SizeAndTimeBasedPolicyConfig) Type() RollingPolicyType { return SizeAndTimeBasedPolicy }

// FixedWindowPolicyConfig renames archives through a fixed index window
type FixedWindowPolicyConfig struct {
	FileNamePattern string `yaml:"fileNamePattern"`
	HistorySize     int    `yaml:"historySize"`
	FileSize        string `yaml:"fileSize"`
}

func (*FixedWindowPolicyConfig) Type() RollingPolicyType { return FixedWindowPolicy }
