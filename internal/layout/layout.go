// Package layout turns layout declarations into started zapcore.Encoders.
package layout

import (
	"fmt"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/errors"
)

var pool = buffer.NewPool()

// Framed is implemented by layouts that wrap their events in a document.
// File appenders write Header on start and Footer on stop.
type Framed interface {
	Header() []byte
	Footer() []byte
}

// Options carries what a layout needs from its appender and context.
type Options struct {
	// AppenderFormat is the appender-level logFormat, possibly empty.
	AppenderFormat string

	// ContextFormat is the context-wide default pattern.
	ContextFormat string

	// Start is the context start time used by %relative.
	Start time.Time
}

func (o Options) contextFormat() string {
	if o.ContextFormat != "" {
		return o.ContextFormat
	}
	return config.DefaultLogFormat
}

// CreateLayout builds the encoder for decl. A nil decl selects a pattern
// layout. The returned encoder is ready for use; any failure to compile is
// reported as errors.ErrLayoutNotStarted.
func CreateLayout(decl config.LayoutConfig, opts Options) (zapcore.Encoder, error) {
	var (
		enc zapcore.Encoder
		err error
	)
	switch d := decl.(type) {
	case nil:
		enc, err = newPatternEncoder(PatternFormat("", opts), opts.Start)
	case *config.PatternLayoutConfig:
		enc, err = newPatternEncoder(PatternFormat(d.LogFormat, opts), opts.Start)
	case *config.JSONLayoutConfig:
		enc, err = newJSONEncoder(d)
	case *config.HTMLLayoutConfig:
		enc, err = newHTMLEncoder(d.Pattern, opts.Start)
	case *config.XMLLayoutConfig:
		enc = newXMLEncoder(d)
	default:
		err = fmt.Errorf("%w: layout %T", errors.ErrUnknownType, decl)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrLayoutNotStarted, err)
	}
	return enc, nil
}

// PatternFormat resolves the pattern of a pattern layout: its own format,
// then the appender's, then the context default.
func PatternFormat(layoutFormat string, opts Options) string {
	switch {
	case layoutFormat != "":
		return layoutFormat
	case opts.AppenderFormat != "":
		return opts.AppenderFormat
	default:
		return opts.contextFormat()
	}
}

// PatternEncoder renders entries through a conversion pattern.
type PatternEncoder struct {
	*zapcore.MapObjectEncoder

	pattern *Pattern
	start   time.Time
}

func newPatternEncoder(source string, start time.Time) (*PatternEncoder, error) {
	p, err := CompilePattern(source)
	if err != nil {
		return nil, err
	}
	return &PatternEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		pattern:          p,
		start:            start,
	}, nil
}

// Pattern returns the compiled pattern.
func (e *PatternEncoder) Pattern() *Pattern {
	return e.pattern
}

func (e *PatternEncoder) Clone() zapcore.Encoder {
	return &PatternEncoder{
		MapObjectEncoder: cloneEncoder(e.Fields),
		pattern:          e.pattern,
		start:            e.start,
	}
}

func (e *PatternEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	ev := newEvent(ent, e.Fields, fields, e.start)
	buf := pool.Get()
	_, _ = buf.Write(e.pattern.Append(make([]byte, 0, 256), ev))
	return buf, nil
}

// NeedsCallerData reports whether enc renders the caller of an entry, so
// loggers feeding it must capture one.
func NeedsCallerData(enc zapcore.Encoder) bool {
	switch e := enc.(type) {
	case *PatternEncoder:
		return e.pattern.UsesCallerData()
	case *htmlEncoder:
		return usesCallerData(e.columns)
	case *xmlEncoder:
		return e.locationInfo
	default:
		return false
	}
}

// MediaType returns the MIME type of what enc produces.
func MediaType(enc zapcore.Encoder) string {
	switch enc.(type) {
	case *htmlEncoder:
		return "text/html"
	case *xmlEncoder:
		return "text/xml"
	case *jsonEncoder:
		return "application/json"
	default:
		return "text/plain"
	}
}
