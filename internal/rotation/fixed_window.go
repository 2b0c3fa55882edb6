package rotation

import (
	"os"
	"sync"

	"github.com/Lunar-Chipter/crystalconf/internal/errors"
)

const (
	defaultMinIndex = 1
	defaultMaxIndex = 7
	// maxWindowSize bounds the number of renames done per rollover.
	maxWindowSize = 20
)

// FixedWindowRollingPolicy keeps archives at indexes minIndex..maxIndex. On
// rollover the oldest archive is deleted, the others shift up by one and the
// active file becomes minIndex.
type FixedWindowRollingPolicy struct {
	pattern     *FileNamePattern
	compression Compression
	file        string
	minIndex    int
	maxIndex    int
	opts        Options
	compressor  *compressor

	mu      sync.Mutex
	started bool
}

func newFixedWindowRollingPolicy(pattern string, opts Options, historySize int) (*FixedWindowRollingPolicy, error) {
	fnp, err := ParseFileNamePattern(pattern)
	if err != nil {
		return nil, err
	}
	compression, _ := splitCompression(pattern)
	p := &FixedWindowRollingPolicy{
		pattern:     fnp,
		compression: compression,
		file:        opts.File,
		minIndex:    defaultMinIndex,
		maxIndex:    defaultMaxIndex,
		opts:        opts,
		compressor:  newCompressor(),
	}
	if historySize > 0 {
		p.maxIndex = historySize
	}
	return p, nil
}

// Start requires the file property and clamps oversized windows.
func (p *FixedWindowRollingPolicy) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file == "" {
		return errors.NewConfigError(FixedWindow.String(), `The "file" property must be set when using a fixed window rolling policy`, errors.ErrFileMandatory)
	}
	if p.maxIndex < p.minIndex {
		p.opts.Status.Warnf(FixedWindow.String(), "maxIndex (%d) cannot be smaller than minIndex (%d), correcting", p.maxIndex, p.minIndex)
		p.maxIndex = p.minIndex
	}
	if p.maxIndex-p.minIndex > maxWindowSize {
		p.opts.Status.Warnf(FixedWindow.String(), "large window sizes are not allowed, limiting window to %d", maxWindowSize)
		p.maxIndex = p.minIndex + maxWindowSize
	}
	p.started = true
	return nil
}

func (p *FixedWindowRollingPolicy) Stop() error {
	p.mu.Lock()
	p.started = false
	p.mu.Unlock()
	return p.compressor.wait()
}

func (p *FixedWindowRollingPolicy) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// ActiveFileName always returns the file property.
func (p *FixedWindowRollingPolicy) ActiveFileName() string {
	return p.file
}

// Window returns the effective index range.
func (p *FixedWindowRollingPolicy) Window() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.minIndex, p.maxIndex
}

// Rollover shifts the window and archives the active file at minIndex.
func (p *FixedWindowRollingPolicy) Rollover() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(p.pattern.ConvertIndex(p.maxIndex)); err != nil && !os.IsNotExist(err) {
		return err
	}
	for i := p.maxIndex - 1; i >= p.minIndex; i-- {
		src := p.pattern.ConvertIndex(i)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := renameFile(src, p.pattern.ConvertIndex(i+1)); err != nil {
			return err
		}
	}

	target := p.pattern.ConvertIndex(p.minIndex)
	if p.compression == NoCompression {
		if err := renameFile(p.file, target); err != nil {
			return err
		}
	} else if err := p.compressor.compress(p.file, target, p.compression); err != nil {
		return err
	}

	if p.opts.OnRollover != nil {
		p.opts.OnRollover()
	}
	return nil
}

// SizeBasedTriggeringPolicy triggers once the active file reaches maxFileSize.
type SizeBasedTriggeringPolicy struct {
	maxFileSize int64

	mu      sync.Mutex
	started bool
}

// NewSizeBasedTriggeringPolicy creates a size trigger.
func NewSizeBasedTriggeringPolicy(maxFileSize int64) *SizeBasedTriggeringPolicy {
	return &SizeBasedTriggeringPolicy{maxFileSize: maxFileSize}
}

func (p *SizeBasedTriggeringPolicy) Start() error {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
	return nil
}

func (p *SizeBasedTriggeringPolicy) Stop() error {
	p.mu.Lock()
	p.started = false
	p.mu.Unlock()
	return nil
}

func (p *SizeBasedTriggeringPolicy) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// MaxFileSize returns the trigger threshold in bytes.
func (p *SizeBasedTriggeringPolicy) MaxFileSize() int64 {
	return p.maxFileSize
}

func (p *SizeBasedTriggeringPolicy) IsTriggeringEvent(_ string, size int64) bool {
	return size >= p.maxFileSize
}
