package layout

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// event is the per-entry state shared by the converters of one pattern.
type event struct {
	ent    zapcore.Entry
	fields map[string]interface{}
	start  time.Time

	thread string
}

func newEvent(ent zapcore.Entry, base map[string]interface{}, fields []zapcore.Field, start time.Time) *event {
	enc := cloneEncoder(base)
	for _, f := range fields {
		f.AddTo(enc)
	}
	return &event{ent: ent, fields: enc.Fields, start: start}
}

// threadName is computed once per event, on the goroutine that logs.
func (ev *event) threadName() string {
	if ev.thread == "" {
		ev.thread = threadName()
	}
	return ev.thread
}

func (ev *event) loggerName() string {
	if ev.ent.LoggerName == "" {
		return rootLoggerName
	}
	return ev.ent.LoggerName
}

func (ev *event) relative() int64 {
	if ev.start.IsZero() {
		return 0
	}
	return ev.ent.Time.Sub(ev.start).Milliseconds()
}

// fieldKeys returns the field names in sorted order.
func (ev *event) fieldKeys() []string {
	keys := make([]string, 0, len(ev.fields))
	for k := range ev.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// mdc renders all fields as "k1=v1, k2=v2".
func (ev *event) mdc() string {
	var sb strings.Builder
	for i, k := range ev.fieldKeys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(formatValue(ev.fields[k]))
	}
	return sb.String()
}

func formatValue(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// cloneEncoder returns a map encoder holding a copy of fields. The encoder
// must come from NewMapObjectEncoder: a literal leaves its current namespace
// nil and the first added field panics.
func cloneEncoder(fields map[string]interface{}) *zapcore.MapObjectEncoder {
	enc := zapcore.NewMapObjectEncoder()
	for k, v := range fields {
		enc.Fields[k] = v
	}
	return enc
}
