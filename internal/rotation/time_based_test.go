package rotation

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lunar-Chipter/crystalconf/internal/status"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func startWriter(t *testing.T, f PolicyFactory, opts Options) *RollingFileWriter {
	t.Helper()
	rp, err := f.CreateRollingPolicy(opts)
	require.NoError(t, err)
	tp, err := f.CreateTriggeringPolicy(opts)
	require.NoError(t, err)
	w, err := NewRollingFileWriter(rp, tp, true)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { w.Close() })
	return w
}

func TestTimeBased_HistoryBoundsArchives(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC))
	f := &TimeBasedFactory{
		FileNamePattern: filepath.Join(dir, "app-%d{yyyy-MM-dd-HH-mm-ss,UTC}.log"),
		HistorySize:     2,
	}
	w := startWriter(t, f, Options{Clock: clock.Now})

	for i := 0; i < 5; i++ {
		_, err := w.Write([]byte("line\n"))
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	files := listFiles(t, dir)
	assert.LessOrEqual(t, len(files), 3)
	assert.Equal(t, []string{
		"app-2024-03-05-10-00-02.log",
		"app-2024-03-05-10-00-03.log",
		"app-2024-03-05-10-00-04.log",
	}, files)
}

func TestTimeBased_RenamesFileProperty(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(time.Date(2024, time.March, 5, 23, 59, 0, 0, time.UTC))
	active := filepath.Join(dir, "app.log")
	var rollovers int
	f := &TimeBasedFactory{FileNamePattern: filepath.Join(dir, "app-%d{yyyy-MM-dd,UTC}.log")}
	w := startWriter(t, f, Options{File: active, Clock: clock.Now, OnRollover: func() { rollovers++ }})

	_, err := w.Write([]byte("first\n"))
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)

	assert.Equal(t, 1, rollovers)
	assert.Equal(t, active, w.Filename())
	archived, err := os.ReadFile(filepath.Join(dir, "app-2024-03-05.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(archived))
	current, err := os.ReadFile(active)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(current))
}

func TestTimeBased_GzipArchive(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC))
	active := filepath.Join(dir, "app.log")
	f := &TimeBasedFactory{FileNamePattern: filepath.Join(dir, "app-%d{yyyy-MM-dd-HH,UTC}.log.gz")}

	rp, err := f.CreateRollingPolicy(Options{File: active, Clock: clock.Now})
	require.NoError(t, err)
	w, err := NewRollingFileWriter(rp, nil, true)
	require.NoError(t, err)
	require.NoError(t, w.Start())

	_, err = w.Write([]byte("compressed\n"))
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = w.Write([]byte("next\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	in, err := os.Open(filepath.Join(dir, "app-2024-03-05-10.log.gz"))
	require.NoError(t, err)
	defer in.Close()
	gr, err := gzip.NewReader(in)
	require.NoError(t, err)
	data, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, "compressed\n", string(data))
	assert.Equal(t, []string{"app-2024-03-05-10.log.gz", "app.log"}, listFiles(t, dir))
}

func TestSizeAndTime_IndexesWithinPeriod(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC))
	f := &SizeAndTimeBasedFactory{
		TimeBasedFactory: TimeBasedFactory{FileNamePattern: filepath.Join(dir, "app-%d{yyyy-MM-dd,UTC}.%i.log")},
		FileSize:         "10",
	}
	w := startWriter(t, f, Options{Clock: clock.Now})

	for i := 0; i < 3; i++ {
		_, err := w.Write([]byte("0123456789"))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"app-2024-03-05.0.log", "app-2024-03-05.1.log", "app-2024-03-05.2.log"}, listFiles(t, dir))

	clock.Advance(24 * time.Hour)
	_, err := w.Write([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "app-2024-03-06.0.log"), w.Filename())
}

func TestSizeAndTime_ResumesIndex(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"app-2024-03-05.0.log", "app-2024-03-05.4.log.gz", "app-2024-03-04.9.log"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	clock := newFakeClock(time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC))
	f := &SizeAndTimeBasedFactory{
		TimeBasedFactory: TimeBasedFactory{FileNamePattern: filepath.Join(dir, "app-%d{yyyy-MM-dd,UTC}.%i.log")},
		FileSize:         "1KB",
	}

	rp, err := f.CreateRollingPolicy(Options{Clock: clock.Now})
	require.NoError(t, err)
	require.NoError(t, rp.Start())
	defer rp.Stop()
	assert.Equal(t, filepath.Join(dir, "app-2024-03-05.4.log"), rp.ActiveFileName())
}

func TestTimeBased_TotalSizeCap(t *testing.T) {
	dir := t.TempDir()
	old := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"app-2024-03-01.log", "app-2024-03-02.log", "app-2024-03-03.log"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, make([]byte, 100), 0644))
		mt := old.AddDate(0, 0, i)
		require.NoError(t, os.Chtimes(path, mt, mt))
	}

	clock := newFakeClock(time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC))
	f := &TimeBasedFactory{
		FileNamePattern: filepath.Join(dir, "app-%d{yyyy-MM-dd,UTC}.log"),
		TotalSize:       "250",
	}
	rp, err := f.CreateRollingPolicy(Options{File: filepath.Join(dir, "app.log"), Clock: clock.Now})
	require.NoError(t, err)
	require.NoError(t, rp.Start())
	defer rp.Stop()

	assert.Equal(t, []string{"app-2024-03-02.log", "app-2024-03-03.log"}, listFiles(t, dir))
}

func TestTimeBased_StartReportsNextRollover(t *testing.T) {
	st := status.NewManager(false, nil)
	clock := newFakeClock(time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC))
	f := &TimeBasedFactory{FileNamePattern: filepath.Join(t.TempDir(), "app-%d{yyyy-MM-dd,UTC}.log")}

	rp, err := f.CreateRollingPolicy(Options{Clock: clock.Now, Status: st})
	require.NoError(t, err)
	require.NoError(t, rp.Start())
	defer rp.Stop()

	require.NotEmpty(t, st.Statuses())
	assert.Contains(t, st.Statuses()[0].Message, "2024-03-06T00:00:00Z")

	tp, err := f.CreateTriggeringPolicy(Options{})
	require.NoError(t, err)
	assert.Nil(t, tp)
}

func TestFactories_RejectBadInput(t *testing.T) {
	_, err := (&TimeBasedFactory{FileNamePattern: "app.log"}).CreateRollingPolicy(Options{})
	assert.Error(t, err)

	_, err = (&TimeBasedFactory{FileNamePattern: "app-%d.log", TotalSize: "lots"}).CreateRollingPolicy(Options{})
	assert.Error(t, err)

	_, err = (&SizeAndTimeBasedFactory{TimeBasedFactory: TimeBasedFactory{FileNamePattern: "app-%d.log"}}).CreateRollingPolicy(Options{})
	assert.Error(t, err)
}

func TestParseFileSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"1024", 1024},
		{"10KB", 10 * 1024},
		{"5MB", 5 * 1024 * 1024},
		{"1g", 1024 * 1024 * 1024},
	}
	for _, tt := range tests {
		got, err := ParseFileSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseFileSize("ten")
	assert.Error(t, err)
}
