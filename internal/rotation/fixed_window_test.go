package rotation

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lunar-Chipter/crystalconf/internal/errors"
	"github.com/Lunar-Chipter/crystalconf/internal/status"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestFixedWindow_ShiftsArchives(t *testing.T) {
	dir := t.TempDir()
	active := filepath.Join(dir, "app.log")
	f := &FixedWindowFactory{
		FileNamePattern: filepath.Join(dir, "app.%i.log"),
		HistorySize:     3,
		FileSize:        "4",
	}
	w := startWriter(t, f, Options{File: active})

	for i := 0; i < 6; i++ {
		_, err := w.Write([]byte("msg" + strconv.Itoa(i)))
		require.NoError(t, err)
	}

	// every write after the first triggers, the oldest archive drops out
	assert.Equal(t, []string{"app.1.log", "app.2.log", "app.3.log", "app.log"}, listFiles(t, dir))
	assert.Equal(t, "msg5", readFile(t, active))
	assert.Equal(t, "msg4", readFile(t, filepath.Join(dir, "app.1.log")))
	assert.Equal(t, "msg3", readFile(t, filepath.Join(dir, "app.2.log")))
	assert.Equal(t, "msg2", readFile(t, filepath.Join(dir, "app.3.log")))
}

func TestFixedWindow_Gzip(t *testing.T) {
	dir := t.TempDir()
	active := filepath.Join(dir, "app.log")
	f := &FixedWindowFactory{FileNamePattern: filepath.Join(dir, "app.%i.log.gz"), FileSize: "1"}
	w := startWriter(t, f, Options{File: active})

	_, err := w.Write([]byte("a"))
	require.NoError(t, err)
	_, err = w.Write([]byte("b"))
	require.NoError(t, err)
	_, err = w.Write([]byte("c"))
	require.NoError(t, err)

	assert.Equal(t, []string{"app.1.log.gz", "app.2.log.gz", "app.log"}, listFiles(t, dir))
}

func TestFixedWindow_RequiresFile(t *testing.T) {
	f := &FixedWindowFactory{FileNamePattern: "app.%i.log"}
	rp, err := f.CreateRollingPolicy(Options{})
	require.NoError(t, err)

	err = rp.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrFileMandatory)
	assert.False(t, rp.IsStarted())
}

func TestFixedWindow_Window(t *testing.T) {
	tests := []struct {
		name        string
		historySize int
		wantMax     int
		wantWarning bool
	}{
		{"default", 0, 7, false},
		{"explicit", 5, 5, false},
		{"clamped", 30, 21, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := status.NewManager(false, nil)
			f := &FixedWindowFactory{FileNamePattern: "app.%i.log", HistorySize: tt.historySize}
			rp, err := f.CreateRollingPolicy(Options{File: "app.log", Status: st})
			require.NoError(t, err)
			require.NoError(t, rp.Start())

			lo, hi := rp.(*FixedWindowRollingPolicy).Window()
			assert.Equal(t, 1, lo)
			assert.Equal(t, tt.wantMax, hi)
			assert.Equal(t, tt.wantWarning, st.HighestLevel() == status.Warn)
		})
	}
}

func TestFixedWindow_TriggerDefaults(t *testing.T) {
	f := &FixedWindowFactory{FileNamePattern: "app.%i.log"}
	tp, err := f.CreateTriggeringPolicy(Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultMaxFileSize), tp.(*SizeBasedTriggeringPolicy).MaxFileSize())
	assert.False(t, tp.IsTriggeringEvent("app.log", 1024))
	assert.True(t, tp.IsTriggeringEvent("app.log", DefaultMaxFileSize))

	_, err = (&FixedWindowFactory{FileNamePattern: "app-%d.log"}).CreateTriggeringPolicy(Options{})
	assert.Error(t, err)
}

func TestRollingFileWriter_NeedsTrigger(t *testing.T) {
	rp, err := (&FixedWindowFactory{FileNamePattern: "app.%i.log"}).CreateRollingPolicy(Options{File: "app.log"})
	require.NoError(t, err)
	_, err = NewRollingFileWriter(rp, nil, true)
	assert.Error(t, err)
}
