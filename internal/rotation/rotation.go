package rotation

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
)

// RollingFileWriter writes to the file chosen by a rolling policy and rolls it
// over whenever the triggering policy says so.
type RollingFileWriter struct {
	rolling    RollingPolicy
	triggering TriggeringPolicy
	appendMode bool

	mu          sync.Mutex
	file        *os.File
	filename    string
	currentSize int64
}

// NewRollingFileWriter creates a writer. A nil triggering policy means the
// rolling policy triggers itself.
func NewRollingFileWriter(rolling RollingPolicy, triggering TriggeringPolicy, appendMode bool) (*RollingFileWriter, error) {
	if triggering == nil {
		tp, ok := rolling.(TriggeringPolicy)
		if !ok {
			return nil, fmt.Errorf("rolling policy %T needs a triggering policy", rolling)
		}
		triggering = tp
	}
	return &RollingFileWriter{
		rolling:    rolling,
		triggering: triggering,
		appendMode: appendMode,
	}, nil
}

// Start starts the triggering policy, then the rolling policy, then opens the
// active file.
func (r *RollingFileWriter) Start() error {
	if err := r.triggering.Start(); err != nil {
		return err
	}
	if any(r.triggering) != any(r.rolling) {
		if err := r.rolling.Start(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open(r.appendMode)
}

func (r *RollingFileWriter) open(appendMode bool) error {
	r.filename = r.rolling.ActiveFileName()
	if err := os.MkdirAll(filepath.Dir(r.filename), 0755); err != nil {
		return err
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !appendMode {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(r.filename, flags, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	r.file = f
	r.currentSize = info.Size()
	return nil
}

// Write writes data to the active file, rolling over first when triggered.
func (r *RollingFileWriter) Write(p []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return 0, os.ErrClosed
	}
	if r.triggering.IsTriggeringEvent(r.filename, r.currentSize) {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}

	n, err = r.file.Write(p)
	r.currentSize += int64(n)
	return n, err
}

// rotate closes the active file, lets the policy archive it and reopens.
func (r *RollingFileWriter) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}
	r.file = nil

	rollErr := r.rolling.Rollover()
	// archived files are always followed by a fresh file
	if err := r.open(true); err != nil {
		return err
	}
	return rollErr
}

// Rollover forces a rollover.
func (r *RollingFileWriter) Rollover() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return os.ErrClosed
	}
	return r.rotate()
}

// Filename returns the file currently written to.
func (r *RollingFileWriter) Filename() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filename
}

// Sync flushes the active file to disk.
func (r *RollingFileWriter) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	return r.file.Sync()
}

// Close closes the active file and stops both policies.
func (r *RollingFileWriter) Close() error {
	r.mu.Lock()
	var err error
	if r.file != nil {
		err = r.file.Close()
		r.file = nil
	}
	r.mu.Unlock()

	err = multierr.Append(err, r.rolling.Stop())
	if any(r.triggering) != any(r.rolling) {
		err = multierr.Append(err, r.triggering.Stop())
	}
	return err
}
