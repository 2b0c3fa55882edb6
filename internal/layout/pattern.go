package layout

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/Lunar-Chipter/crystalconf/internal/datefmt"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
)

// rootLoggerName is how the unnamed root logger is rendered.
const rootLoggerName = "ROOT"

type convertFunc func(b []byte, ev *event) []byte

// formatInfo is a logback format modifier such as "-5" or ".-30".
type formatInfo struct {
	min         int
	max         int
	leftAlign   bool
	truncateEnd bool
}

func (fi formatInfo) isZero() bool {
	return fi.min == 0 && fi.max == 0
}

// converter renders one conversion word or a literal. column is the HTML
// column class and is empty for literals. caller marks words that read the
// entry's caller.
type converter struct {
	column    string
	exception bool
	caller    bool
	fn        convertFunc
	format    formatInfo
}

// Pattern is a compiled conversion pattern.
type Pattern struct {
	source     string
	converters []converter
}

// converterBuilder creates the converter of a conversion word from its options.
type converterBuilder struct {
	column    string
	exception bool
	caller    bool
	build     func(opts []string) (convertFunc, error)
}

var converterBuilders = map[string]*converterBuilder{}

func register(b *converterBuilder, words ...string) {
	for _, w := range words {
		converterBuilders[w] = b
	}
}

func init() {
	register(&converterBuilder{column: "Date", build: dateConverter}, "d", "date")
	register(&converterBuilder{column: "Level", build: constant(func(b []byte, ev *event) []byte {
		return append(b, interfaces.LevelName(ev.ent.Level)...)
	})}, "p", "le", "level")
	register(&converterBuilder{column: "Thread", build: constant(func(b []byte, ev *event) []byte {
		return append(b, ev.threadName()...)
	})}, "t", "thread")
	register(&converterBuilder{column: "Logger", build: loggerConverter}, "c", "lo", "logger")
	register(&converterBuilder{column: "Message", build: constant(func(b []byte, ev *event) []byte {
		return append(b, ev.ent.Message...)
	})}, "m", "msg", "message")
	register(&converterBuilder{build: constant(func(b []byte, _ *event) []byte {
		return append(b, '\n')
	})}, "n")
	register(&converterBuilder{column: "RelativeTime", build: constant(func(b []byte, ev *event) []byte {
		return strconv.AppendInt(b, ev.relative(), 10)
	})}, "r", "relative")
	register(&converterBuilder{column: "Throwable", exception: true, build: exceptionConverter},
		"ex", "exception", "throwable", "rEx", "rootException", "xEx", "xException", "xThrowable")
	register(&converterBuilder{exception: true, build: constant(func(b []byte, _ *event) []byte { return b })},
		"nopex", "nopexception")
	register(&converterBuilder{column: "MDC", build: mdcConverter}, "X", "mdc")
	register(&converterBuilder{column: "FileOfCaller", caller: true, build: constant(func(b []byte, ev *event) []byte {
		if !ev.ent.Caller.Defined {
			return append(b, '?')
		}
		return append(b, filepath.Base(ev.ent.Caller.File)...)
	})}, "F", "file")
	register(&converterBuilder{column: "LineOfCaller", caller: true, build: constant(func(b []byte, ev *event) []byte {
		if !ev.ent.Caller.Defined {
			return append(b, '?')
		}
		return strconv.AppendInt(b, int64(ev.ent.Caller.Line), 10)
	})}, "L", "line")
	register(&converterBuilder{column: "MethodOfCaller", caller: true, build: constant(func(b []byte, ev *event) []byte {
		if !ev.ent.Caller.Defined {
			return append(b, '?')
		}
		_, method := splitFunction(ev.ent.Caller.Function)
		return append(b, method...)
	})}, "M", "method")
	register(&converterBuilder{column: "ClassOfCaller", caller: true, build: constant(func(b []byte, ev *event) []byte {
		if !ev.ent.Caller.Defined {
			return append(b, '?')
		}
		class, _ := splitFunction(ev.ent.Caller.Function)
		return append(b, class...)
	})}, "C", "class")
	register(&converterBuilder{column: "Caller", caller: true, build: constant(func(b []byte, ev *event) []byte {
		if !ev.ent.Caller.Defined {
			return b
		}
		b = append(b, "Caller+0\t at "...)
		b = append(b, ev.ent.Caller.Function...)
		b = append(b, '(')
		b = append(b, filepath.Base(ev.ent.Caller.File)...)
		b = append(b, ':')
		b = strconv.AppendInt(b, int64(ev.ent.Caller.Line), 10)
		return append(b, ")\n"...)
	})}, "caller")
}

func constant(fn convertFunc) func([]string) (convertFunc, error) {
	return func([]string) (convertFunc, error) { return fn, nil }
}

// CompilePattern parses a logback conversion pattern. A pattern without an
// exception conversion word gets %ex appended, so stack traces are never
// silently lost.
func CompilePattern(source string) (*Pattern, error) {
	return compile(source, true)
}

// CompileInlinePattern parses a pattern rendered on a single line, such as a
// mail subject. No exception converter is added.
func CompileInlinePattern(source string) (*Pattern, error) {
	return compile(source, false)
}

func compile(source string, withException bool) (*Pattern, error) {
	p := &Pattern{source: source}
	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			text := literal.String()
			p.converters = append(p.converters, converter{fn: func(b []byte, _ *event) []byte {
				return append(b, text...)
			}})
			literal.Reset()
		}
	}

	hasException := false
	for i := 0; i < len(source); {
		c := source[i]
		if c == '\\' && i+1 < len(source) {
			literal.WriteByte(source[i+1])
			i += 2
			continue
		}
		if c != '%' {
			literal.WriteByte(c)
			i++
			continue
		}
		i++
		if i < len(source) && source[i] == '%' {
			literal.WriteByte('%')
			i++
			continue
		}

		fi, n := parseFormatInfo(source[i:])
		i += n
		start := i
		for i < len(source) && isWordChar(source[i]) {
			i++
		}
		word := source[start:i]
		if word == "" {
			return nil, fmt.Errorf("pattern %q: missing conversion word at position %d", source, start)
		}
		var opts []string
		if i < len(source) && source[i] == '{' {
			end := strings.IndexByte(source[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("pattern %q: unterminated option of %%%s", source, word)
			}
			for _, opt := range strings.Split(source[i+1:i+end], ",") {
				opts = append(opts, strings.TrimSpace(opt))
			}
			i += end + 1
		}

		builder, ok := converterBuilders[word]
		if !ok {
			return nil, fmt.Errorf("pattern %q: unknown conversion word %%%s", source, word)
		}
		fn, err := builder.build(opts)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %%%s: %w", source, word, err)
		}
		flush()
		hasException = hasException || builder.exception
		p.converters = append(p.converters, converter{
			column:    builder.column,
			exception: builder.exception,
			caller:    builder.caller,
			fn:        fn,
			format:    fi,
		})
	}
	flush()

	if withException && !hasException {
		fn, _ := exceptionConverter(nil)
		p.converters = append(p.converters, converter{column: "Throwable", exception: true, fn: fn})
	}
	return p, nil
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// parseFormatInfo reads an optional "-min.-max" modifier.
func parseFormatInfo(s string) (formatInfo, int) {
	var fi formatInfo
	i := 0
	if i < len(s) && s[i] == '-' {
		fi.leftAlign = true
		i++
	}
	fi.min, i = readInt(s, i)
	if i < len(s) && s[i] == '.' {
		i++
		if i < len(s) && s[i] == '-' {
			fi.truncateEnd = true
			i++
		}
		fi.max, i = readInt(s, i)
	}
	return fi, i
}

func readInt(s string, i int) (int, int) {
	n := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		n = n*10 + int(s[i]-'0')
		i++
	}
	return n, i
}

// UsesCallerData reports whether a conversion word of p renders the caller.
func (p *Pattern) UsesCallerData() bool {
	return usesCallerData(p.converters)
}

func usesCallerData(converters []converter) bool {
	for _, c := range converters {
		if c.caller {
			return true
		}
	}
	return false
}

// String returns the pattern source.
func (p *Pattern) String() string {
	return p.source
}

// Format renders ent. start is the reference time of %relative.
func (p *Pattern) Format(ent zapcore.Entry, fields []zapcore.Field, start time.Time) string {
	return string(p.Append(nil, newEvent(ent, nil, fields, start)))
}

// Append renders ev after b.
func (p *Pattern) Append(b []byte, ev *event) []byte {
	for i := range p.converters {
		b = p.converters[i].append(b, ev)
	}
	return b
}

func (c *converter) append(b []byte, ev *event) []byte {
	if c.format.isZero() {
		return c.fn(b, ev)
	}
	start := len(b)
	b = c.fn(b, ev)
	out := b[start:]

	if c.format.max > 0 && len(out) > c.format.max {
		if c.format.truncateEnd {
			out = out[:c.format.max]
		} else {
			out = out[len(out)-c.format.max:]
		}
		b = append(b[:start], out...)
		out = b[start:]
	}
	if pad := c.format.min - len(out); pad > 0 {
		if c.format.leftAlign {
			for i := 0; i < pad; i++ {
				b = append(b, ' ')
			}
			return b
		}
		text := string(out)
		b = b[:start]
		for i := 0; i < pad; i++ {
			b = append(b, ' ')
		}
		b = append(b, text...)
	}
	return b
}

func dateConverter(opts []string) (convertFunc, error) {
	layout := "ISO8601"
	if len(opts) > 0 && opts[0] != "" {
		layout = opts[0]
	}
	format, err := datefmt.Compile(layout)
	if err != nil {
		return nil, err
	}
	if len(opts) > 1 && opts[1] != "" {
		loc, err := time.LoadLocation(opts[1])
		if err != nil {
			return nil, err
		}
		format = format.In(loc)
	}
	return func(b []byte, ev *event) []byte {
		return format.AppendFormat(b, ev.ent.Time)
	}, nil
}

func loggerConverter(opts []string) (convertFunc, error) {
	target := -1
	if len(opts) > 0 && opts[0] != "" {
		n, err := strconv.Atoi(opts[0])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid logger length %q", opts[0])
		}
		target = n
	}
	return func(b []byte, ev *event) []byte {
		return append(b, abbreviate(ev.loggerName(), target)...)
	}, nil
}

// abbreviate shortens a dotted name to about target characters by reducing
// leading segments to their first letter. The last segment is kept whole;
// target 0 keeps only the last segment.
func abbreviate(name string, target int) string {
	if target < 0 || len(name) <= target {
		return name
	}
	if target == 0 {
		return name[strings.LastIndexByte(name, '.')+1:]
	}
	parts := strings.Split(name, ".")
	total := len(name)
	for i := 0; i < len(parts)-1 && total > target; i++ {
		if len(parts[i]) > 1 {
			total -= len(parts[i]) - 1
			parts[i] = parts[i][:1]
		}
	}
	return strings.Join(parts, ".")
}

func exceptionConverter(opts []string) (convertFunc, error) {
	frames := -1
	if len(opts) > 0 {
		switch opts[0] {
		case "", "full":
		case "short":
			frames = 1
		default:
			n, err := strconv.Atoi(opts[0])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid stack depth %q", opts[0])
			}
			frames = n
		}
	}
	return func(b []byte, ev *event) []byte {
		stack := limitFrames(ev.ent.Stack, frames)
		if stack == "" {
			return b
		}
		b = append(b, stack...)
		return append(b, '\n')
	}, nil
}

// limitFrames keeps the first n frames of a zap stack trace, where each frame
// spans a function line and an indented location line.
func limitFrames(stack string, n int) string {
	if n < 0 || stack == "" {
		return stack
	}
	if n == 0 {
		return ""
	}
	lines := strings.SplitAfter(stack, "\n")
	if len(lines) <= 2*n {
		return stack
	}
	return strings.TrimSuffix(strings.Join(lines[:2*n], ""), "\n")
}

func mdcConverter(opts []string) (convertFunc, error) {
	if len(opts) == 0 || opts[0] == "" {
		return func(b []byte, ev *event) []byte {
			return append(b, ev.mdc()...)
		}, nil
	}
	key, def, _ := strings.Cut(opts[0], ":-")
	return func(b []byte, ev *event) []byte {
		if v, ok := ev.fields[key]; ok {
			return append(b, formatValue(v)...)
		}
		return append(b, def...)
	}, nil
}

// splitFunction splits "pkg/path.Type.Method" into "pkg/path.Type" and
// "Method".
func splitFunction(fn string) (string, string) {
	slash := strings.LastIndexByte(fn, '/')
	dot := strings.LastIndexByte(fn, '.')
	if dot <= slash {
		return fn, fn
	}
	return fn[:dot], fn[dot+1:]
}
