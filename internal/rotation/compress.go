package rotation

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"go.uber.org/multierr"
)

// Compression is the archive compression selected by the pattern suffix.
type Compression uint8

const (
	NoCompression Compression = iota
	GzipCompression
	ZipCompression
)

// Suffix returns the file extension of the compression mode.
func (c Compression) Suffix() string {
	switch c {
	case GzipCompression:
		return ".gz"
	case ZipCompression:
		return ".zip"
	default:
		return ""
	}
}

func (c Compression) String() string {
	switch c {
	case GzipCompression:
		return "gzip"
	case ZipCompression:
		return "zip"
	default:
		return "none"
	}
}

// splitCompression returns the compression mode of pattern and the pattern
// without its compression suffix.
func splitCompression(pattern string) (Compression, string) {
	switch {
	case strings.HasSuffix(pattern, ".gz"):
		return GzipCompression, strings.TrimSuffix(pattern, ".gz")
	case strings.HasSuffix(pattern, ".zip"):
		return ZipCompression, strings.TrimSuffix(pattern, ".zip")
	default:
		return NoCompression, pattern
	}
}

// compressor compresses archives, optionally in the background. Stop waits for
// background jobs through wait.
type compressor struct {
	wg         sync.WaitGroup
	mu         sync.Mutex
	errs       error
	bufferPool sync.Pool
}

func newCompressor() *compressor {
	return &compressor{
		bufferPool: sync.Pool{
			New: func() any {
				b := make([]byte, 64*1024)
				return &b
			},
		},
	}
}

// compressAsync compresses src into dst in a goroutine. onErr receives
// failures as they happen; they are also returned by wait.
func (c *compressor) compressAsync(src, dst string, mode Compression, onErr func(error)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.compress(src, dst, mode); err != nil {
			c.mu.Lock()
			c.errs = multierr.Append(c.errs, err)
			c.mu.Unlock()
			if onErr != nil {
				onErr(err)
			}
		}
	}()
}

// wait blocks until background jobs finish and returns their combined errors.
func (c *compressor) wait() error {
	c.wg.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.errs
	c.errs = nil
	return err
}

// compress writes src into dst and removes src on success. A missing src is
// not an error.
func (c *compressor) compress(src, dst string, mode Compression) (err error) {
	if _, statErr := os.Stat(src); os.IsNotExist(statErr) {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		// remove incomplete archives
		if err != nil {
			out.Close()
			os.Remove(dst)
		}
	}()

	buf := c.bufferPool.Get().(*[]byte)
	defer c.bufferPool.Put(buf)

	switch mode {
	case ZipCompression:
		zw := zip.NewWriter(out)
		entry, werr := zw.Create(strings.TrimSuffix(filepath.Base(dst), ZipCompression.Suffix()))
		if werr != nil {
			return werr
		}
		if _, err = io.CopyBuffer(entry, in, *buf); err != nil {
			return err
		}
		if err = zw.Close(); err != nil {
			return err
		}
	default:
		gw := gzip.NewWriter(out)
		if _, err = io.CopyBuffer(gw, in, *buf); err != nil {
			return err
		}
		if err = gw.Close(); err != nil {
			return err
		}
	}

	if err = out.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(src)
}
