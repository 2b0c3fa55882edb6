// Package shutdown runs teardown hooks when the process exits.
package shutdown

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// Manager collects shutdown hooks and runs them in reverse registration
// order, so that later components stop before the ones they depend on.
type Manager struct {
	mu    sync.Mutex
	hooks []func() error
	done  bool
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{}
}

// AddShutdownHook registers hook. Hooks added after Shutdown are ignored.
func (m *Manager) AddShutdownHook(hook func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done || hook == nil {
		return
	}
	m.hooks = append(m.hooks, hook)
}

// Len returns the number of pending hooks.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hooks)
}

// Shutdown runs every hook once, newest first, and returns all of their
// errors combined. When ctx expires the remaining hooks are skipped and
// ctx.Err() is part of the result.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return nil
	}
	m.done = true
	hooks := m.hooks
	m.hooks = nil
	m.mu.Unlock()

	var errs error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, fmt.Errorf("shutdown interrupted with %d hooks left: %w", i+1, err))
		}
		errs = multierr.Append(errs, runHook(hooks[i]))
	}
	return errs
}

func runHook(hook func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("shutdown hook panicked: %v", r)
		}
	}()
	return hook()
}
