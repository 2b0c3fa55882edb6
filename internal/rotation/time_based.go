package rotation

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// TimeBasedRollingPolicy rolls over when the period of the primary date token
// changes and, when maxFileSize is set, when the active file grows too large.
// It is its own triggering policy.
type TimeBasedRollingPolicy struct {
	kind        PolicyKind
	pattern     *FileNamePattern
	stem        *FileNamePattern
	compression Compression
	calendar    *RollingCalendar
	opts        Options
	maxFileSize int64

	mu                  sync.Mutex
	started             bool
	dateInCurrentPeriod time.Time
	nextCheck           time.Time
	index               int
	elapsedName         string
	remover             *archiveRemover
	compressor          *compressor
}

func newTimeBasedRollingPolicy(pattern string, opts Options, kind PolicyKind, historySize int, totalSizeCap, maxFileSize int64) (*TimeBasedRollingPolicy, error) {
	fnp, err := ParseFileNamePattern(pattern)
	if err != nil {
		return nil, err
	}
	compression, stemPattern := splitCompression(pattern)
	stem, err := ParseFileNamePattern(stemPattern)
	if err != nil {
		return nil, err
	}

	p := &TimeBasedRollingPolicy{
		kind:        kind,
		pattern:     fnp,
		stem:        stem,
		compression: compression,
		calendar:    NewRollingCalendar(fnp.PrimaryDateFormat()),
		opts:        opts,
		maxFileSize: maxFileSize,
		compressor:  newCompressor(),
	}
	if historySize > 0 || totalSizeCap > 0 {
		p.remover = &archiveRemover{
			stem:         stem,
			calendar:     p.calendar,
			maxHistory:   historySize,
			totalSizeCap: totalSizeCap,
			active:       p.activeFileName,
		}
	}
	return p, nil
}

// Start computes the current period and cleans archives left from earlier runs.
func (p *TimeBasedRollingPolicy) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}

	now := p.opts.now()
	p.dateInCurrentPeriod = now
	if p.opts.File != "" {
		// an existing active file belongs to the period it was last written in
		if info, err := os.Stat(p.opts.File); err == nil {
			p.dateInCurrentPeriod = info.ModTime()
		}
	}
	p.nextCheck = p.calendar.NextPeriod(p.dateInCurrentPeriod)
	if p.maxFileSize > 0 {
		p.index = p.resumeIndex()
	}

	p.opts.Status.Infof(p.kind.String(), "next rollover for %q at %s (period %s)",
		p.pattern, p.nextCheck.Format(time.RFC3339), p.calendar.Periodicity())

	if p.remover != nil {
		if err := p.remover.clean(now); err != nil {
			p.opts.Status.Warnf(p.kind.String(), "archive cleanup failed: %v", err)
		}
	}
	p.started = true
	return nil
}

// resumeIndex picks up numbering from archives of the current period.
func (p *TimeBasedRollingPolicy) resumeIndex() int {
	highest := -1
	dir := filepath.Dir(p.stem.Convert(p.dateInCurrentPeriod, 0))
	re := p.stem.RegexForDate(p.dateInCurrentPeriod, compressionSuffixRegex)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	for _, e := range entries {
		m := re.FindStringSubmatch(filepath.Join(dir, e.Name()))
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	switch {
	case highest < 0:
		return 0
	case p.opts.File != "":
		// archives are finished, the next one gets a new index
		return highest + 1
	default:
		// without a file property the highest index is the active file
		return highest
	}
}

// Stop waits for pending compression.
func (p *TimeBasedRollingPolicy) Stop() error {
	p.mu.Lock()
	p.started = false
	p.mu.Unlock()
	return p.compressor.wait()
}

func (p *TimeBasedRollingPolicy) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// ActiveFileName returns the file property when set, otherwise the pattern
// rendered for the current period.
func (p *TimeBasedRollingPolicy) ActiveFileName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeFileName()
}

func (p *TimeBasedRollingPolicy) activeFileName() string {
	if p.opts.File != "" {
		return p.opts.File
	}
	return p.stem.Convert(p.dateInCurrentPeriod, p.index)
}

// IsTriggeringEvent reports whether the period has elapsed or the active file
// reached the size limit. It records the archive name for the next Rollover.
func (p *TimeBasedRollingPolicy) IsTriggeringEvent(_ string, size int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.opts.now()
	if !now.Before(p.nextCheck) {
		p.elapsedName = p.stem.Convert(p.dateInCurrentPeriod, p.index)
		p.dateInCurrentPeriod = now
		p.nextCheck = p.calendar.NextPeriod(now)
		p.index = 0
		return true
	}
	if p.maxFileSize > 0 && size >= p.maxFileSize {
		p.elapsedName = p.stem.Convert(p.dateInCurrentPeriod, p.index)
		p.index++
		return true
	}
	return false
}

// Rollover moves the closed active file to its archive name, compresses it
// when the pattern asks for it and removes archives beyond the history.
func (p *TimeBasedRollingPolicy) Rollover() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.elapsedName == "" {
		p.elapsedName = p.stem.Convert(p.dateInCurrentPeriod, p.index)
	}
	archive := p.elapsedName
	p.elapsedName = ""

	switch {
	case p.opts.File != "" && p.compression == NoCompression:
		if err := renameFile(p.opts.File, archive); err != nil {
			return err
		}
	case p.opts.File != "":
		// move aside first so the active file can be reopened immediately
		tmp := fmt.Sprintf("%s.%d.tmp", p.opts.File, time.Now().UnixNano())
		if err := renameFile(p.opts.File, tmp); err != nil {
			return err
		}
		p.compressor.compressAsync(tmp, archive+p.compression.Suffix(), p.compression, p.reportCompression)
	case p.compression != NoCompression:
		p.compressor.compressAsync(archive, archive+p.compression.Suffix(), p.compression, p.reportCompression)
	}

	if p.remover != nil {
		if err := p.remover.clean(p.opts.now()); err != nil {
			p.opts.Status.Warnf(p.kind.String(), "archive cleanup failed: %v", err)
		}
	}
	if p.opts.OnRollover != nil {
		p.opts.OnRollover()
	}
	return nil
}

func (p *TimeBasedRollingPolicy) reportCompression(err error) {
	p.opts.Status.Errorf(p.kind.String(), "compression failed: %v", err)
}

func renameFile(src, dst string) error {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.Rename(src, dst)
}
