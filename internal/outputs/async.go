// Package outputs provides the byte sinks appenders write encoded events to.
package outputs

import (
	"io"
	"os"
	"sync"
)

// DefaultQueueSize is the number of pending writes an AsyncWriter holds
// before Write blocks.
const DefaultQueueSize = 256

// asyncItem is either data to write or a flush marker.
type asyncItem struct {
	data    []byte
	flushed chan struct{}
}

// AsyncWriter hands writes to a single background goroutine. A full queue
// blocks the caller; nothing is ever dropped.
type AsyncWriter struct {
	writer  io.Writer
	queue   chan asyncItem
	onError func(error)
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewAsyncWriter starts the worker. onError, when set, receives write errors
// from the worker.
func NewAsyncWriter(writer io.Writer, queueSize int, onError func(error)) *AsyncWriter {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	aw := &AsyncWriter{
		writer:  writer,
		queue:   make(chan asyncItem, queueSize),
		onError: onError,
	}
	aw.wg.Add(1)
	go aw.worker()
	return aw
}

// Write queues a copy of p.
func (aw *AsyncWriter) Write(p []byte) (int, error) {
	data := make([]byte, len(p))
	copy(data, p)

	aw.mu.RLock()
	defer aw.mu.RUnlock()
	if aw.closed {
		return 0, os.ErrClosed
	}
	aw.queue <- asyncItem{data: data}
	return len(p), nil
}

// worker hands each queued write to the sink on its own, so sinks that
// inspect every write (rolling files checking their trigger) see one event
// per call.
func (aw *AsyncWriter) worker() {
	defer aw.wg.Done()
	for item := range aw.queue {
		if item.flushed != nil {
			close(item.flushed)
			continue
		}
		if _, err := aw.writer.Write(item.data); err != nil && aw.onError != nil {
			aw.onError(err)
		}
	}
}

// Sync waits until everything queued before the call has been written, then
// syncs the underlying writer when it supports it.
func (aw *AsyncWriter) Sync() error {
	aw.mu.RLock()
	if aw.closed {
		aw.mu.RUnlock()
		return nil
	}
	done := make(chan struct{})
	aw.queue <- asyncItem{flushed: done}
	aw.mu.RUnlock()

	<-done
	if s, ok := aw.writer.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}

// Close drains the queue, stops the worker and closes the underlying writer
// if it is an io.Closer.
func (aw *AsyncWriter) Close() error {
	aw.mu.Lock()
	if aw.closed {
		aw.mu.Unlock()
		return nil
	}
	aw.closed = true
	close(aw.queue)
	aw.mu.Unlock()

	aw.wg.Wait()
	if closer, ok := aw.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
