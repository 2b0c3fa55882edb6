package layout

import (
	"html"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
)

// DefaultHTMLPattern selects the columns of an HTML layout without a pattern.
const DefaultHTMLPattern = "%relative%thread%mdc%level%logger%msg"

const htmlCSS = `<style type="text/css">
table { margin-left: 2em; margin-right: 2em; border-left: 2px solid #AAA; }
TR.even { background: #FFFFFF; }
TR.odd { background: #EAEAEA; }
TR.WARN TD.Level, TR.ERROR TD.Level { font-weight: bold; }
TR.ERROR TD.Level { color: red; }
TD { padding-right: 1ex; padding-left: 1ex; border-right: 2px solid #AAA; }
TD.Time, TD.Date, TD.RelativeTime { text-align: right; font-family: courier, monospace; font-size: smaller; }
TD.Thread { text-align: left; }
TD.Level { text-align: right; }
TD.Logger { text-align: left; }
TR.header { background: #596ED5; color: #FFF; font-weight: bold; font-size: larger; }
TD.Exception { background: #A2AEE8; font-family: courier, monospace; }
</style>
`

// htmlEncoder renders each entry as a table row. Columns are the conversion
// words of its pattern; literals are ignored.
type htmlEncoder struct {
	*zapcore.MapObjectEncoder

	columns []converter
	start   time.Time
	rows    *atomic.Int64
}

func newHTMLEncoder(source string, start time.Time) (*htmlEncoder, error) {
	if source == "" {
		source = DefaultHTMLPattern
	}
	p, err := CompilePattern(source)
	if err != nil {
		return nil, err
	}
	var columns []converter
	for _, c := range p.converters {
		if c.column == "" || c.exception {
			continue
		}
		columns = append(columns, c)
	}
	return &htmlEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		columns:          columns,
		start:            start,
		rows:             new(atomic.Int64),
	}, nil
}

func (e *htmlEncoder) Clone() zapcore.Encoder {
	return &htmlEncoder{
		MapObjectEncoder: cloneEncoder(e.Fields),
		columns:          e.columns,
		start:            e.start,
		rows:             e.rows,
	}
}

func (e *htmlEncoder) Header() []byte {
	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">` + "\n")
	sb.WriteString("<html>\n  <head>\n    <title>Log Messages</title>\n")
	sb.WriteString(htmlCSS)
	sb.WriteString("  </head>\n<body>\n<hr/>\n<p>Log session start time ")
	sb.WriteString(time.Now().Format(time.RFC1123))
	sb.WriteString("</p><p></p>\n<table cellspacing=\"0\">\n<tr class=\"header\">\n")
	for _, c := range e.columns {
		sb.WriteString(`<td class="` + c.column + `">` + c.column + "</td>\n")
	}
	sb.WriteString("</tr>\n")
	return []byte(sb.String())
}

func (e *htmlEncoder) Footer() []byte {
	return []byte("</table>\n</body></html>\n")
}

func (e *htmlEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	ev := newEvent(ent, e.Fields, fields, e.start)
	parity := "even"
	if e.rows.Add(1)%2 == 1 {
		parity = "odd"
	}

	buf := pool.Get()
	buf.AppendString("<tr class=\"")
	buf.AppendString(interfaces.LevelName(ent.Level))
	buf.AppendString(" " + parity + "\">\n")

	var cell []byte
	for i := range e.columns {
		c := &e.columns[i]
		cell = c.append(cell[:0], ev)
		buf.AppendString(`<td class="` + c.column + `">`)
		buf.AppendString(html.EscapeString(string(cell)))
		buf.AppendString("</td>\n")
	}
	buf.AppendString("</tr>\n")

	if ent.Stack != "" {
		buf.AppendString(`<tr><td class="Exception" colspan="6">`)
		buf.AppendString(strings.ReplaceAll(html.EscapeString(ent.Stack), "\n", "<br />&nbsp;&nbsp;&nbsp;&nbsp;"))
		buf.AppendString("</td></tr>\n")
	}
	return buf, nil
}
