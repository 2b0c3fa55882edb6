package outputs

import (
	"os"
	"path/filepath"
	"sync"
)

// FileOutput represents a file output destination.
type FileOutput struct {
	mu   sync.Mutex
	file *os.File
	name string
}

// NewFileOutput opens filename, creating missing parent directories. The file
// is appended to when appendMode is set and truncated otherwise.
func NewFileOutput(filename string, appendMode bool) (*FileOutput, error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, err
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !appendMode {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(filename, flags, 0644)
	if err != nil {
		return nil, err
	}
	return &FileOutput{file: file, name: filename}, nil
}

// Name returns the file name.
func (fo *FileOutput) Name() string {
	return fo.name
}

// Write writes data to the file output.
func (fo *FileOutput) Write(p []byte) (n int, err error) {
	fo.mu.Lock()
	defer fo.mu.Unlock()
	if fo.file == nil {
		return 0, os.ErrClosed
	}
	return fo.file.Write(p)
}

// Sync flushes the file to disk.
func (fo *FileOutput) Sync() error {
	fo.mu.Lock()
	defer fo.mu.Unlock()
	if fo.file == nil {
		return nil
	}
	return fo.file.Sync()
}

// Close closes the file output.
func (fo *FileOutput) Close() error {
	fo.mu.Lock()
	defer fo.mu.Unlock()
	if fo.file == nil {
		return nil
	}
	err := fo.file.Close()
	fo.file = nil
	return err
}
