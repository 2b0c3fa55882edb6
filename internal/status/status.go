// Package status records diagnostics produced while the logging subsystem
// configures itself. The logging pipeline cannot report on its own
// construction, so messages are kept in memory and, when debug output is
// enabled, echoed to stderr through a charmbracelet/log logger.
package status

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Level is the severity of a status message.
type Level uint8

const (
	Info Level = iota
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Status is a single diagnostic.
type Status struct {
	Level   Level
	Origin  string
	Message string
	Time    time.Time
}

func (s Status) String() string {
	return fmt.Sprintf("%s [%s] %s", s.Level, s.Origin, s.Message)
}

// Manager collects statuses. A nil *Manager discards everything.
type Manager struct {
	mu       sync.Mutex
	statuses []Status
	echo     *log.Logger
}

// NewManager creates a manager. When debug is true every status is also
// written to w (stderr when w is nil).
func NewManager(debug bool, w io.Writer) *Manager {
	m := &Manager{}
	if debug {
		if w == nil {
			w = os.Stderr
		}
		m.echo = log.NewWithOptions(w, log.Options{
			Prefix:          "logging",
			Level:           log.DebugLevel,
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
		})
	}
	return m
}

// Infof records an informational status.
func (m *Manager) Infof(origin, format string, args ...any) {
	m.add(Info, origin, fmt.Sprintf(format, args...))
}

// Warnf records a warning.
func (m *Manager) Warnf(origin, format string, args ...any) {
	m.add(Warn, origin, fmt.Sprintf(format, args...))
}

// Errorf records an error status.
func (m *Manager) Errorf(origin, format string, args ...any) {
	m.add(Error, origin, fmt.Sprintf(format, args...))
}

func (m *Manager) add(level Level, origin, msg string) {
	if m == nil {
		return
	}
	s := Status{Level: level, Origin: origin, Message: msg, Time: time.Now()}

	m.mu.Lock()
	m.statuses = append(m.statuses, s)
	m.mu.Unlock()

	if m.echo == nil {
		return
	}
	switch level {
	case Warn:
		m.echo.Warn(msg, "origin", origin)
	case Error:
		m.echo.Error(msg, "origin", origin)
	default:
		m.echo.Info(msg, "origin", origin)
	}
}

// Statuses returns a copy of everything recorded so far.
func (m *Manager) Statuses() []Status {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Status, len(m.statuses))
	copy(out, m.statuses)
	return out
}

// HighestLevel returns the most severe level recorded, or Info when empty.
func (m *Manager) HighestLevel() Level {
	highest := Info
	for _, s := range m.Statuses() {
		if s.Level > highest {
			highest = s.Level
		}
	}
	return highest
}

// Reset drops all recorded statuses.
func (m *Manager) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.statuses = nil
	m.mu.Unlock()
}
