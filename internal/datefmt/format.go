// Package datefmt compiles Java-style date patterns ("yyyy-MM-dd HH:mm:ss.SSS")
// into formatters. The same patterns appear in file name date tokens, the %d
// conversion word of pattern layouts and the JSON layout timestamp format, so
// all three share this implementation.
package datefmt

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Named patterns understood in place of an explicit format.
var namedPatterns = map[string]string{
	"ISO8601":  "yyyy-MM-dd HH:mm:ss,SSS",
	"ABSOLUTE": "HH:mm:ss,SSS",
	"DATE":     "dd MMM yyyy HH:mm:ss,SSS",
}

// DefaultPattern is used for %d tokens that carry no explicit format.
const DefaultPattern = "yyyy-MM-dd"

// appendFunc renders one part of a formatted date.
type appendFunc func(b []byte, t time.Time) []byte

// Format is a compiled date pattern. It is safe for concurrent use.
type Format struct {
	pattern string
	parts   []appendFunc
	fields  string
	loc     *time.Location
}

// Compile parses a date pattern. Pattern letters follow java.text.SimpleDateFormat;
// text between single quotes is literal and '' is a single quote.
func Compile(pattern string) (*Format, error) {
	if named, ok := namedPatterns[pattern]; ok {
		pattern = named
	}
	f := &Format{pattern: pattern}

	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			s := literal.String()
			f.parts = append(f.parts, func(b []byte, _ time.Time) []byte { return append(b, s...) })
			literal.Reset()
		}
	}

	for i := 0; i < len(pattern); {
		c := pattern[i]
		switch {
		case c == '\'':
			if i+1 < len(pattern) && pattern[i+1] == '\'' {
				literal.WriteByte('\'')
				i += 2
				continue
			}
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end < 0 {
				return nil, fmt.Errorf("unterminated quote in date pattern %q", pattern)
			}
			literal.WriteString(pattern[i+1 : i+1+end])
			i += end + 2
		case isLetter(c):
			n := 1
			for i+n < len(pattern) && pattern[i+n] == c {
				n++
			}
			fn, err := letterFunc(c, n)
			if err != nil {
				return nil, fmt.Errorf("date pattern %q: %w", pattern, err)
			}
			flush()
			f.parts = append(f.parts, fn)
			f.fields += string(c)
			i += n
		default:
			literal.WriteByte(c)
			i++
		}
	}
	flush()
	return f, nil
}

// MustCompile is like Compile but panics on error. It is meant for patterns
// that are constants of the program.
func MustCompile(pattern string) *Format {
	f, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return f
}

// In returns a copy of f that renders times in loc.
func (f *Format) In(loc *time.Location) *Format {
	c := *f
	c.loc = loc
	return &c
}

// Location returns the zone the format renders in, or nil when times are
// rendered in their own location.
func (f *Format) Location() *time.Location {
	return f.loc
}

// Pattern returns the pattern after named-pattern expansion.
func (f *Format) Pattern() string {
	return f.pattern
}

// HasFields reports whether the pattern contains at least one date field.
func (f *Format) HasFields() bool {
	return f.fields != ""
}

// Format renders t.
func (f *Format) Format(t time.Time) string {
	return string(f.AppendFormat(make([]byte, 0, len(f.pattern)+8), t))
}

// AppendFormat renders t and appends it to b.
func (f *Format) AppendFormat(b []byte, t time.Time) []byte {
	if f.loc != nil {
		t = t.In(f.loc)
	}
	for _, p := range f.parts {
		b = p(b, t)
	}
	return b
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func letterFunc(c byte, n int) (appendFunc, error) {
	switch c {
	case 'G':
		return func(b []byte, t time.Time) []byte {
			if t.Year() <= 0 {
				return append(b, "BC"...)
			}
			return append(b, "AD"...)
		}, nil
	case 'y':
		return yearFunc(n, func(t time.Time) int { return t.Year() }), nil
	case 'Y':
		return yearFunc(n, func(t time.Time) int { y, _ := t.ISOWeek(); return y }), nil
	case 'M', 'L':
		switch {
		case n >= 4:
			return func(b []byte, t time.Time) []byte { return append(b, t.Month().String()...) }, nil
		case n == 3:
			return func(b []byte, t time.Time) []byte { return append(b, t.Month().String()[:3]...) }, nil
		default:
			return numberFunc(n, func(t time.Time) int { return int(t.Month()) }), nil
		}
	case 'w':
		return numberFunc(n, func(t time.Time) int { _, w := t.ISOWeek(); return w }), nil
	case 'W':
		return numberFunc(n, weekOfMonth), nil
	case 'D':
		return numberFunc(n, func(t time.Time) int { return t.YearDay() }), nil
	case 'd':
		return numberFunc(n, func(t time.Time) int { return t.Day() }), nil
	case 'F':
		return numberFunc(n, func(t time.Time) int { return (t.Day()-1)/7 + 1 }), nil
	case 'E':
		if n >= 4 {
			return func(b []byte, t time.Time) []byte { return append(b, t.Weekday().String()...) }, nil
		}
		return func(b []byte, t time.Time) []byte { return append(b, t.Weekday().String()[:3]...) }, nil
	case 'u':
		return numberFunc(n, isoWeekday), nil
	case 'a':
		return func(b []byte, t time.Time) []byte {
			if t.Hour() < 12 {
				return append(b, "AM"...)
			}
			return append(b, "PM"...)
		}, nil
	case 'H':
		return numberFunc(n, func(t time.Time) int { return t.Hour() }), nil
	case 'k':
		return numberFunc(n, func(t time.Time) int {
			if t.Hour() == 0 {
				return 24
			}
			return t.Hour()
		}), nil
	case 'K':
		return numberFunc(n, func(t time.Time) int { return t.Hour() % 12 }), nil
	case 'h':
		return numberFunc(n, func(t time.Time) int {
			if h := t.Hour() % 12; h != 0 {
				return h
			}
			return 12
		}), nil
	case 'm':
		return numberFunc(n, func(t time.Time) int { return t.Minute() }), nil
	case 's':
		return numberFunc(n, func(t time.Time) int { return t.Second() }), nil
	case 'S':
		return numberFunc(n, func(t time.Time) int { return t.Nanosecond() / int(time.Millisecond) }), nil
	case 'z':
		return func(b []byte, t time.Time) []byte {
			name, _ := t.Zone()
			return append(b, name...)
		}, nil
	case 'Z':
		return func(b []byte, t time.Time) []byte { return t.AppendFormat(b, "-0700") }, nil
	case 'X':
		layout := "Z07"
		switch {
		case n == 2:
			layout = "Z0700"
		case n >= 3:
			layout = "Z07:00"
		}
		return func(b []byte, t time.Time) []byte { return t.AppendFormat(b, layout) }, nil
	}
	return nil, fmt.Errorf("illegal pattern character '%c'", c)
}

func yearFunc(n int, year func(time.Time) int) appendFunc {
	if n == 2 {
		return func(b []byte, t time.Time) []byte { return appendPadded(b, year(t)%100, 2) }
	}
	return numberFunc(n, year)
}

func numberFunc(width int, value func(time.Time) int) appendFunc {
	return func(b []byte, t time.Time) []byte { return appendPadded(b, value(t), width) }
}

func appendPadded(b []byte, v, width int) []byte {
	if v < 0 {
		b = append(b, '-')
		v = -v
	}
	s := strconv.Itoa(v)
	for i := len(s); i < width; i++ {
		b = append(b, '0')
	}
	return append(b, s...)
}

// isoWeekday returns 1 for Monday through 7 for Sunday.
func isoWeekday(t time.Time) int {
	if wd := int(t.Weekday()); wd != 0 {
		return wd
	}
	return 7
}

// weekOfMonth counts Monday-started weeks, the first (possibly partial) week being 1.
func weekOfMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	offset := isoWeekday(first) - 1
	return (t.Day()-1+offset)/7 + 1
}
