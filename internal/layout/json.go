package layout

import (
	"bytes"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/datefmt"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
)

// DefaultJSONTimestampFormat is used when timestampFormat is not set.
const DefaultJSONTimestampFormat = "yyyy-MM-dd HH:mm:ss.SSS"

// jsonEncoder decorates zap's JSON encoder with logback key names, a thread
// field and optional indentation.
type jsonEncoder struct {
	zapcore.Encoder
	pretty bool
}

func newJSONEncoder(cfg *config.JSONLayoutConfig) (*jsonEncoder, error) {
	pattern := cfg.TimestampFormat
	if pattern == "" {
		pattern = DefaultJSONTimestampFormat
	}
	format, err := datefmt.Compile(pattern)
	if err != nil {
		return nil, err
	}
	encCfg := zapcore.EncoderConfig{
		TimeKey:       "timestamp",
		LevelKey:      "level",
		NameKey:       "logger",
		MessageKey:    "message",
		StacktraceKey: "exception",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(format.Format(t))
		},
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(interfaces.LevelName(l))
		},
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	return &jsonEncoder{Encoder: zapcore.NewJSONEncoder(encCfg), pretty: cfg.PrettyPrint}, nil
}

func (e *jsonEncoder) Clone() zapcore.Encoder {
	return &jsonEncoder{Encoder: e.Encoder.Clone(), pretty: e.pretty}
}

func (e *jsonEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if ent.LoggerName == "" {
		ent.LoggerName = rootLoggerName
	}
	withThread := make([]zapcore.Field, 0, len(fields)+1)
	withThread = append(withThread, zap.String("thread", threadName()))
	withThread = append(withThread, fields...)

	buf, err := e.Encoder.EncodeEntry(ent, withThread)
	if err != nil || !e.pretty {
		return buf, err
	}
	defer buf.Free()

	var indented bytes.Buffer
	if err := json.Indent(&indented, bytes.TrimRight(buf.Bytes(), "\n"), "", "  "); err != nil {
		return nil, err
	}
	out := pool.Get()
	_, _ = out.Write(indented.Bytes())
	out.AppendByte('\n')
	return out, nil
}
