package shutdown

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestManager_ReverseOrder(t *testing.T) {
	m := NewManager()
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		m.AddShutdownHook(func() error {
			order = append(order, i)
			return nil
		})
	}
	assert.Equal(t, 3, m.Len())

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.Equal(t, 0, m.Len())
}

func TestManager_CollectsErrors(t *testing.T) {
	m := NewManager()
	errA := errors.New("a")
	errB := errors.New("b")
	ran := false
	m.AddShutdownHook(func() error { return errA })
	m.AddShutdownHook(func() error { ran = true; return nil })
	m.AddShutdownHook(func() error { return errB })
	m.AddShutdownHook(func() error { panic("boom") })

	err := m.Shutdown(context.Background())
	require.Error(t, err)
	assert.True(t, ran)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Len(t, multierr.Errors(err), 3)
	assert.Contains(t, err.Error(), "panicked: boom")
}

func TestManager_RunsOnce(t *testing.T) {
	m := NewManager()
	calls := 0
	m.AddShutdownHook(func() error { calls++; return nil })

	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))
	m.AddShutdownHook(func() error { calls++; return nil })
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, m.Len())
}

func TestManager_ContextCancelled(t *testing.T) {
	m := NewManager()
	m.AddShutdownHook(func() error { t.Fatal("must not run"); return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Shutdown(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
