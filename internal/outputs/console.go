package outputs

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ConsoleTarget selects the standard stream a console output writes to.
type ConsoleTarget uint8

const (
	Stdout ConsoleTarget = iota
	Stderr
)

// ParseConsoleTarget accepts "stdout" and "stderr" in any case. Empty means
// stdout.
func ParseConsoleTarget(s string) (ConsoleTarget, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stdout":
		return Stdout, nil
	case "stderr":
		return Stderr, nil
	}
	return Stdout, fmt.Errorf("unknown console target %q", s)
}

func (t ConsoleTarget) String() string {
	if t == Stderr {
		return "stderr"
	}
	return "stdout"
}

// ConsoleOutput represents a console output destination. It never closes the
// standard streams.
type ConsoleOutput struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewConsoleOutput creates a console output for target.
func NewConsoleOutput(target ConsoleTarget) *ConsoleOutput {
	if target == Stderr {
		return &ConsoleOutput{writer: os.Stderr}
	}
	return &ConsoleOutput{writer: os.Stdout}
}

// NewConsoleOutputWithWriter creates a console output with a custom writer.
func NewConsoleOutputWithWriter(writer io.Writer) *ConsoleOutput {
	return &ConsoleOutput{writer: writer}
}

// Write writes data to the console output.
func (co *ConsoleOutput) Write(p []byte) (n int, err error) {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.writer.Write(p)
}

// Sync is a no-op: terminals and pipes reject fsync.
func (co *ConsoleOutput) Sync() error {
	return nil
}

// Close is a no-op.
func (co *ConsoleOutput) Close() error {
	return nil
}
