package layout

import (
	"encoding/xml"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
)

const (
	cdataStart = "<![CDATA["
	cdataEnd   = "]]>"
)

// xmlEncoder renders log4j.dtd events.
type xmlEncoder struct {
	*zapcore.MapObjectEncoder

	locationInfo bool
	properties   bool
}

func newXMLEncoder(cfg *config.XMLLayoutConfig) *xmlEncoder {
	return &xmlEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		locationInfo:     cfg.LocationInfo,
		properties:       cfg.Properties,
	}
}

func (e *xmlEncoder) Clone() zapcore.Encoder {
	return &xmlEncoder{
		MapObjectEncoder: cloneEncoder(e.Fields),
		locationInfo:     e.locationInfo,
		properties:       e.properties,
	}
}

func (e *xmlEncoder) Header() []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<log4j:eventSet xmlns:log4j="http://jakarta.apache.org/log4j/" version="1.2" includesLocationInfo="` +
		strconv.FormatBool(e.locationInfo) + `">` + "\n")
}

func (e *xmlEncoder) Footer() []byte {
	return []byte("</log4j:eventSet>\n")
}

func (e *xmlEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	ev := newEvent(ent, e.Fields, fields, time.Time{})
	buf := pool.Get()

	buf.AppendString(`<log4j:event logger="`)
	escapeAttr(buf, ev.loggerName())
	buf.AppendString(`" timestamp="`)
	buf.AppendInt(ent.Time.UnixMilli())
	buf.AppendString(`" level="`)
	buf.AppendString(interfaces.LevelName(ent.Level))
	buf.AppendString(`" thread="`)
	escapeAttr(buf, ev.threadName())
	buf.AppendString("\">\n")

	buf.AppendString("  <log4j:message>")
	appendCDATA(buf, ent.Message)
	buf.AppendString("</log4j:message>\n")

	if ent.Stack != "" {
		buf.AppendString("  <log4j:throwable>")
		appendCDATA(buf, ent.Stack)
		buf.AppendString("</log4j:throwable>\n")
	}

	if e.locationInfo && ent.Caller.Defined {
		class, method := splitFunction(ent.Caller.Function)
		buf.AppendString(`  <log4j:locationInfo class="`)
		escapeAttr(buf, class)
		buf.AppendString(`" method="`)
		escapeAttr(buf, method)
		buf.AppendString(`" file="`)
		escapeAttr(buf, filepath.Base(ent.Caller.File))
		buf.AppendString(`" line="`)
		buf.AppendInt(int64(ent.Caller.Line))
		buf.AppendString("\"/>\n")
	}

	if e.properties && len(ev.fields) > 0 {
		buf.AppendString("  <log4j:properties>\n")
		for _, k := range ev.fieldKeys() {
			buf.AppendString(`    <log4j:data name="`)
			escapeAttr(buf, k)
			buf.AppendString(`" value="`)
			escapeAttr(buf, formatValue(ev.fields[k]))
			buf.AppendString("\" />\n")
		}
		buf.AppendString("  </log4j:properties>\n")
	}

	buf.AppendString("</log4j:event>\n\n")
	return buf, nil
}

func escapeAttr(w io.Writer, s string) {
	_ = xml.EscapeText(w, []byte(s))
}

// appendCDATA wraps s in a CDATA section, splitting any "]]>" it contains.
func appendCDATA(buf *buffer.Buffer, s string) {
	buf.AppendString(cdataStart)
	buf.AppendString(strings.ReplaceAll(s, cdataEnd, cdataEnd[:2]+cdataEnd+cdataStart+cdataEnd[2:]))
	buf.AppendString(cdataEnd)
}
