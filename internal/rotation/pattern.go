package rotation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Lunar-Chipter/crystalconf/internal/datefmt"
)

type tokenKind uint8

const (
	literalToken tokenKind = iota
	dateToken
	indexToken
)

type token struct {
	kind   tokenKind
	text   string
	format *datefmt.Format
	aux    bool
}

// FileNamePattern is a parsed rotation file name pattern such as
// "logs/app-%d{yyyy-MM-dd}.%i.log.gz". %d{fmt[, TZ|aux]} renders a date, %i an
// archive index; everything else is literal.
type FileNamePattern struct {
	pattern string
	tokens  []token
}

// ParseFileNamePattern parses pattern. An empty pattern is accepted here and
// rejected by the validator, which owns the "mandatory" error.
func ParseFileNamePattern(pattern string) (*FileNamePattern, error) {
	p := &FileNamePattern{pattern: pattern}
	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			p.tokens = append(p.tokens, token{kind: literalToken, text: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(pattern); {
		c := pattern[i]
		if c != '%' {
			literal.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(pattern) && pattern[i+1] == '%' {
			literal.WriteByte('%')
			i += 2
			continue
		}

		j := i + 1
		for j < len(pattern) && isWordChar(pattern[j]) {
			j++
		}
		word := pattern[i+1 : j]
		var options []string
		if j < len(pattern) && pattern[j] == '{' {
			end := strings.IndexByte(pattern[j:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated option in file name pattern %q", pattern)
			}
			for _, opt := range strings.Split(pattern[j+1:j+end], ",") {
				options = append(options, strings.TrimSpace(opt))
			}
			j += end + 1
		}

		flush()
		switch word {
		case "d", "date":
			tok, err := parseDateToken(options)
			if err != nil {
				return nil, err
			}
			p.tokens = append(p.tokens, tok)
		case "i":
			p.tokens = append(p.tokens, token{kind: indexToken})
		default:
			return nil, fmt.Errorf("unknown conversion word %q in file name pattern %q", word, pattern)
		}
		i = j
	}
	flush()
	return p, nil
}

func parseDateToken(options []string) (token, error) {
	layout := datefmt.DefaultPattern
	if len(options) > 0 && options[0] != "" {
		layout = options[0]
	}
	format, err := datefmt.Compile(layout)
	if err != nil {
		return token{}, err
	}
	tok := token{kind: dateToken, format: format}
	for _, opt := range options[min(1, len(options)):] {
		switch {
		case strings.EqualFold(opt, "aux"):
			tok.aux = true
		case opt != "":
			loc, err := time.LoadLocation(opt)
			if err != nil {
				return token{}, fmt.Errorf("unknown time zone %q in date token: %w", opt, err)
			}
			tok.format = tok.format.In(loc)
		}
	}
	return tok, nil
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// String returns the original pattern.
func (p *FileNamePattern) String() string {
	return p.pattern
}

// PrimaryDateFormat returns the format of the primary (non-aux) date token, or
// nil when the pattern has none.
func (p *FileNamePattern) PrimaryDateFormat() *datefmt.Format {
	for _, t := range p.tokens {
		if t.kind == dateToken && !t.aux {
			return t.format
		}
	}
	return nil
}

func (p *FileNamePattern) count(kind tokenKind, primaryOnly bool) int {
	n := 0
	for _, t := range p.tokens {
		if t.kind == kind && !(primaryOnly && t.aux) {
			n++
		}
	}
	return n
}

// Convert renders the pattern for date t and archive index.
func (p *FileNamePattern) Convert(t time.Time, index int) string {
	var b []byte
	for _, tok := range p.tokens {
		switch tok.kind {
		case literalToken:
			b = append(b, tok.text...)
		case dateToken:
			b = tok.format.AppendFormat(b, t)
		case indexToken:
			b = strconv.AppendInt(b, int64(index), 10)
		}
	}
	return string(b)
}

// ConvertIndex renders a pattern that has no primary date token. Auxiliary
// date tokens render for the zero time so names stay stable across rolls.
func (p *FileNamePattern) ConvertIndex(index int) string {
	return p.Convert(time.Time{}, index)
}

// RegexForDate builds an anchored regular expression matching every file the
// pattern produces for the period containing t, whatever the index. suffix is
// appended verbatim before the anchor.
func (p *FileNamePattern) RegexForDate(t time.Time, suffix string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteByte('^')
	for _, tok := range p.tokens {
		switch tok.kind {
		case literalToken:
			sb.WriteString(regexp.QuoteMeta(tok.text))
		case dateToken:
			sb.WriteString(regexp.QuoteMeta(tok.format.Format(t)))
		case indexToken:
			sb.WriteString(`(\d+)`)
		}
	}
	sb.WriteString(suffix)
	sb.WriteByte('$')
	return regexp.MustCompile(sb.String())
}

// hasDateInDir reports whether a date token appears before the last path
// separator, i.e. archives of different periods live in different directories.
func (p *FileNamePattern) hasDateInDir() bool {
	seenDate := false
	for _, tok := range p.tokens {
		switch tok.kind {
		case dateToken:
			seenDate = true
		case literalToken:
			if seenDate && strings.ContainsAny(tok.text, `/\`) {
				return true
			}
		}
	}
	return false
}
