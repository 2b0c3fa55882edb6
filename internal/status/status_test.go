package status

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RecordsStatuses(t *testing.T) {
	m := NewManager(false, nil)
	m.Infof("file", "opened %s", "app.log")
	m.Warnf("filter", "unknown reply %q", "MAYBE")

	got := m.Statuses()
	require.Len(t, got, 2)
	assert.Equal(t, Info, got[0].Level)
	assert.Equal(t, "opened app.log", got[0].Message)
	assert.Equal(t, "filter", got[1].Origin)
	assert.Equal(t, Warn, m.HighestLevel())
}

func TestManager_EchoesWhenDebug(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(true, &buf)
	m.Errorf("smtp", "no recipients")

	assert.Contains(t, buf.String(), "no recipients")
	assert.Contains(t, buf.String(), "smtp")
	assert.Equal(t, Error, m.HighestLevel())
}

func TestManager_Quiet(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(false, &buf)
	m.Errorf("smtp", "no recipients")
	assert.Empty(t, buf.String())
}

func TestManager_NilSafe(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() {
		m.Infof("x", "y")
		m.Reset()
	})
	assert.Nil(t, m.Statuses())
	assert.Equal(t, Info, m.HighestLevel())
}

func TestManager_Reset(t *testing.T) {
	m := NewManager(false, nil)
	m.Warnf("a", "b")
	m.Reset()
	assert.Empty(t, m.Statuses())
}
