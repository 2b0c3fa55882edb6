package rotation

import (
	"fmt"
	"strings"
	"time"

	"github.com/docker/go-units"

	"github.com/Lunar-Chipter/crystalconf/internal/errors"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
	"github.com/Lunar-Chipter/crystalconf/internal/status"
)

// DefaultMaxFileSize applies when a size-triggered policy has no fileSize.
const DefaultMaxFileSize = 10 * units.MiB

// Clock returns the current time.
type Clock func() time.Time

// RollingPolicy decides where the active file lives and how it is archived.
type RollingPolicy interface {
	interfaces.LifeCycle
	// ActiveFileName returns the file log output goes to right now.
	ActiveFileName() string
	// Rollover archives the active file. The caller has closed it.
	Rollover() error
}

// TriggeringPolicy decides when a rollover happens.
type TriggeringPolicy interface {
	interfaces.LifeCycle
	IsTriggeringEvent(activeFile string, size int64) bool
}

// Options carries the appender-level settings a policy needs.
type Options struct {
	// File is the appender's file property, empty when unset.
	File   string
	Clock  Clock
	Status *status.Manager
	// OnRollover is called after every successful rollover.
	OnRollover func()
}

func (o Options) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// PolicyFactory creates a rolling policy and its triggering policy from
// declarative settings. CreateRollingPolicy validates the file name pattern
// first. CreateTriggeringPolicy returns nil when the rolling policy triggers
// itself.
type PolicyFactory interface {
	Kind() PolicyKind
	CreateRollingPolicy(opts Options) (RollingPolicy, error)
	CreateTriggeringPolicy(opts Options) (TriggeringPolicy, error)
}

// TimeBasedFactory produces time-based rollover.
type TimeBasedFactory struct {
	FileNamePattern string
	// HistorySize is the number of archived periods kept; 0 keeps all.
	HistorySize int
	// TotalSize caps the combined size of archives, e.g. "1GB".
	TotalSize string
}

func (f *TimeBasedFactory) Kind() PolicyKind { return TimeBased }

func (f *TimeBasedFactory) CreateRollingPolicy(opts Options) (RollingPolicy, error) {
	return f.create(opts, TimeBased, 0)
}

// CreateTriggeringPolicy returns nil: time-based policies are their own
// trigger.
func (f *TimeBasedFactory) CreateTriggeringPolicy(Options) (TriggeringPolicy, error) {
	return nil, nil
}

func (f *TimeBasedFactory) create(opts Options, kind PolicyKind, maxFileSize int64) (*TimeBasedRollingPolicy, error) {
	if err := Validate(f.FileNamePattern, kind); err != nil {
		return nil, err
	}
	totalSize, err := ParseFileSize(f.TotalSize)
	if err != nil {
		return nil, err
	}
	if f.HistorySize < 0 {
		return nil, errors.NewConfigError(kind.String(), fmt.Sprintf("historySize must not be negative, got %d", f.HistorySize), nil)
	}
	return newTimeBasedRollingPolicy(f.FileNamePattern, opts, kind, f.HistorySize, totalSize, maxFileSize)
}

// SizeAndTimeBasedFactory rolls over on period change and when the active
// file grows beyond FileSize.
type SizeAndTimeBasedFactory struct {
	TimeBasedFactory
	FileSize string
}

func (f *SizeAndTimeBasedFactory) Kind() PolicyKind { return SizeAndTimeBased }

func (f *SizeAndTimeBasedFactory) CreateRollingPolicy(opts Options) (RollingPolicy, error) {
	return f.create(opts)
}

func (f *SizeAndTimeBasedFactory) CreateTriggeringPolicy(Options) (TriggeringPolicy, error) {
	return nil, nil
}

func (f *SizeAndTimeBasedFactory) create(opts Options) (*TimeBasedRollingPolicy, error) {
	if err := Validate(f.FileNamePattern, SizeAndTimeBased); err != nil {
		return nil, err
	}
	size, err := ParseFileSize(f.FileSize)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultMaxFileSize
	}
	return f.TimeBasedFactory.create(opts, SizeAndTimeBased, size)
}

// FixedWindowFactory renames archives through a fixed window of indexes.
type FixedWindowFactory struct {
	FileNamePattern string
	// HistorySize is the window's upper index; 0 selects the default.
	HistorySize int
	FileSize    string
}

func (f *FixedWindowFactory) Kind() PolicyKind { return FixedWindow }

func (f *FixedWindowFactory) CreateRollingPolicy(opts Options) (RollingPolicy, error) {
	if err := Validate(f.FileNamePattern, FixedWindow); err != nil {
		return nil, err
	}
	return newFixedWindowRollingPolicy(f.FileNamePattern, opts, f.HistorySize)
}

func (f *FixedWindowFactory) CreateTriggeringPolicy(opts Options) (TriggeringPolicy, error) {
	if err := Validate(f.FileNamePattern, FixedWindow); err != nil {
		return nil, err
	}
	size, err := ParseFileSize(f.FileSize)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultMaxFileSize
	}
	return NewSizeBasedTriggeringPolicy(size), nil
}

// ParseFileSize parses sizes such as "10MB", "512 kb" or "1048576". An empty
// string yields 0.
func ParseFileSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", errors.ErrInvalidSize, s, err)
	}
	return n, nil
}
