package layout

import (
	"bytes"
	"runtime"
	"sync"
)

// goroutineIDBufferSize is enough for the "goroutine N [state]:" header.
const goroutineIDBufferSize = 64

var stackBufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, goroutineIDBufferSize)
		return &b
	},
}

// goroutineID returns the id of the calling goroutine as printed in stack
// traces. Go has no thread names, so layouts use it for %thread.
func goroutineID() string {
	bp := stackBufPool.Get().(*[]byte)
	defer stackBufPool.Put(bp)

	buf := *bp
	n := runtime.Stack(buf, false)
	field := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(field, ' '); i > 0 {
		return string(field[:i])
	}
	return "unknown"
}

// threadName is what %thread renders for the calling goroutine.
func threadName() string {
	return "goroutine-" + goroutineID()
}
