package appender

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap/zapcore"

	"github.com/Lunar-Chipter/crystalconf/internal/layout"
	"github.com/Lunar-Chipter/crystalconf/internal/outputs"
)

// Sink is the byte destination behind a WriterAppender.
type Sink interface {
	io.WriteCloser
	Sync() error
}

// WriterAppender encodes events and writes them to a sink through an
// AsyncWriter. Console and file appenders are WriterAppenders.
// WriterAppender menyandikan event lalu menulisnya secara asinkron.
type WriterAppender struct {
	*base

	encoder   zapcore.Encoder
	open      func() (Sink, error)
	queueSize int

	mu  sync.RWMutex
	out *outputs.AsyncWriter
}

func newWriterAppender(b *base, encoder zapcore.Encoder, queueSize int, open func() (Sink, error)) *WriterAppender {
	return &WriterAppender{base: b, encoder: encoder, open: open, queueSize: queueSize}
}

// Encoder returns the appender's layout.
func (a *WriterAppender) Encoder() zapcore.Encoder {
	return a.encoder
}

// CallerData reports whether the layout renders the caller.
func (a *WriterAppender) CallerData() bool {
	return layout.NeedsCallerData(a.encoder)
}

// Start opens the sink, writes the layout header if any and starts the
// background writer.
func (a *WriterAppender) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started.Load() {
		return nil
	}

	sink, err := a.open()
	if err != nil {
		return err
	}
	if framed, ok := a.encoder.(layout.Framed); ok {
		if _, err := sink.Write(framed.Header()); err != nil {
			_ = sink.Close()
			return err
		}
	}
	a.out = outputs.NewAsyncWriter(sink, a.queueSize, func(err error) {
		a.metrics.AppendFailed(a.name)
		a.status.Errorf(a.label(), "write failed: %v", err)
	})
	a.started.Store(true)
	return nil
}

// Stop writes the layout footer, drains the queue and closes the sink.
func (a *WriterAppender) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started.Swap(false) {
		return nil
	}
	if framed, ok := a.encoder.(layout.Framed); ok {
		_, _ = a.out.Write(framed.Footer())
	}
	err := a.out.Close()
	a.out = nil
	return err
}

func (a *WriterAppender) Append(ent zapcore.Entry, fields []zapcore.Field) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.out == nil {
		return a.failed(os.ErrClosed)
	}
	if !a.accept(ent) {
		return nil
	}

	buf, err := a.encoder.EncodeEntry(ent, fields)
	if err != nil {
		return a.failed(fmt.Errorf("encode: %w", err))
	}
	_, err = a.out.Write(buf.Bytes())
	buf.Free()
	if err != nil {
		return a.failed(err)
	}
	a.metrics.EventAppended(a.name, ent.Level)
	return nil
}

// Sync waits for queued events to reach the sink and flushes it.
func (a *WriterAppender) Sync() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.out == nil {
		return nil
	}
	return a.out.Sync()
}
