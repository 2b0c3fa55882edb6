package rotation

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	// inactivityTolerance bounds the periods scanned on the first cleanup.
	inactivityTolerance = 32 * day
	maxPeriodsToScan    = 336
)

const compressionSuffixRegex = `(\.gz|\.zip)?`

// archiveRemover deletes archives that fall out of the history window or push
// the combined archive size over the cap.
type archiveRemover struct {
	stem         *FileNamePattern
	calendar     *RollingCalendar
	maxHistory   int
	totalSizeCap int64
	active       func() string

	lastHeartBeat time.Time
}

// clean removes archives of the periods that aged out since the last call.
func (r *archiveRemover) clean(now time.Time) error {
	if r.maxHistory > 0 {
		for i, n := 0, r.periodsElapsed(now); i < n; i++ {
			r.cleanPeriod(r.calendar.NthPeriod(now, -r.maxHistory-1-i))
		}
	}
	r.lastHeartBeat = now
	if r.totalSizeCap > 0 {
		return r.capTotalSize(now)
	}
	return nil
}

func (r *archiveRemover) periodsElapsed(now time.Time) int {
	var n int
	if r.lastHeartBeat.IsZero() {
		n = r.calendar.PeriodsBetween(now.Add(-inactivityTolerance), now)
	} else {
		n = r.calendar.PeriodsBetween(r.lastHeartBeat, now)
	}
	return min(n, maxPeriodsToScan)
}

func (r *archiveRemover) cleanPeriod(date time.Time) {
	for _, f := range r.filesOfPeriod(date) {
		os.Remove(f.path)
	}
	if r.stem.hasDateInDir() {
		// fails unless the directory is now empty
		os.Remove(filepath.Dir(r.stem.Convert(date, 0)))
	}
}

type archiveFile struct {
	path    string
	size    int64
	modTime time.Time
}

func (r *archiveRemover) filesOfPeriod(date time.Time) []archiveFile {
	dir := filepath.Dir(r.stem.Convert(date, 0))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	re := r.stem.RegexForDate(date, compressionSuffixRegex)
	active := filepath.Clean(r.active())

	var files []archiveFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if path == active || !re.MatchString(path) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, archiveFile{path: path, size: info.Size(), modTime: info.ModTime()})
	}
	return files
}

// capTotalSize deletes the oldest archives until the rest fit under the cap.
func (r *archiveRemover) capTotalSize(now time.Time) error {
	periods := r.maxHistory
	if periods <= 0 {
		periods = maxPeriodsToScan
	}

	var files []archiveFile
	for i := 0; i <= periods; i++ {
		files = append(files, r.filesOfPeriod(r.calendar.NthPeriod(now, -i))...)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})

	var total int64
	var firstErr error
	for _, f := range files {
		total += f.size
		if total <= r.totalSizeCap {
			continue
		}
		if err := os.Remove(f.path); err != nil && firstErr == nil && !os.IsNotExist(err) {
			firstErr = err
		}
	}
	return firstErr
}
