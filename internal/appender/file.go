package appender

import (
	"fmt"

	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/errors"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
	"github.com/Lunar-Chipter/crystalconf/internal/outputs"
	"github.com/Lunar-Chipter/crystalconf/internal/rotation"
)

// FileFactory creates file appenders, rolling or not.
type FileFactory struct {
	Config *config.FileAppenderConfig
}

func (f *FileFactory) CreateAppender(ctx Context, defaultLogFormat string) (interfaces.Appender, error) {
	cfg := f.Config
	name := cfg.DisplayName()

	enc, err := createLayout(&cfg.AppenderCommon, ctx, defaultLogFormat)
	if err != nil {
		return nil, err
	}
	b, err := newBase(&cfg.AppenderCommon, ctx)
	if err != nil {
		return nil, errors.NewConfigError(name, "filters", err)
	}

	var open func() (Sink, error)
	if cfg.RollingPolicy == nil {
		if cfg.File == "" {
			return nil, errors.NewConfigError(name, "file", errors.ErrFileMandatory)
		}
		open = func() (Sink, error) {
			return outputs.NewFileOutput(cfg.File, cfg.IsAppend())
		}
	} else {
		writer, err := newRollingWriter(cfg, ctx, b.name)
		if err != nil {
			return nil, err
		}
		open = func() (Sink, error) {
			if err := writer.Start(); err != nil {
				_ = writer.Close()
				return nil, err
			}
			return writer, nil
		}
	}

	a := newWriterAppender(b, enc, ctx.QueueSize, open)
	if err := a.Start(); err != nil {
		return nil, errors.NewConstructionError(name, fmt.Sprintf("cannot open %q", cfg.File), err)
	}
	return a, nil
}

// PolicyFactory maps a rolling policy declaration to its factory.
func PolicyFactory(decl config.RollingPolicyConfig) (rotation.PolicyFactory, error) {
	switch d := decl.(type) {
	case *config.TimeBasedPolicyConfig:
		return &rotation.TimeBasedFactory{
			FileNamePattern: d.FileNamePattern,
			HistorySize:     d.HistorySize,
			TotalSize:       d.TotalSize,
		}, nil
	case *config.SizeAndTimeBasedPolicyConfig:
		return &rotation.SizeAndTimeBasedFactory{
			TimeBasedFactory: rotation.TimeBasedFactory{
				FileNamePattern: d.FileNamePattern,
				HistorySize:     d.HistorySize,
				TotalSize:       d.TotalSize,
			},
			FileSize: d.GetFileSize(),
		}, nil
	case *config.FixedWindowPolicyConfig:
		return &rotation.FixedWindowFactory{
			FileNamePattern: d.FileNamePattern,
			HistorySize:     d.HistorySize,
			FileSize:        d.FileSize,
		}, nil
	default:
		return nil, fmt.Errorf("%w: rolling policy %T", errors.ErrUnknownType, decl)
	}
}

// newRollingWriter builds the rolling and triggering policies. Both are
// validated here, before any file is touched.
func newRollingWriter(cfg *config.FileAppenderConfig, ctx Context, appenderName string) (*rotation.RollingFileWriter, error) {
	name := cfg.DisplayName()
	factory, err := PolicyFactory(cfg.RollingPolicy.RollingPolicyConfig)
	if err != nil {
		return nil, errors.NewConfigError(name, "rollingPolicy", err)
	}
	m := ctx.metrics()
	opts := rotation.Options{
		File:       cfg.File,
		Clock:      ctx.Clock,
		Status:     ctx.Status,
		OnRollover: func() { m.RolledOver(appenderName) },
	}

	rolling, err := factory.CreateRollingPolicy(opts)
	if err != nil {
		return nil, errors.NewConfigError(name, "rollingPolicy", err)
	}
	triggering, err := factory.CreateTriggeringPolicy(opts)
	if err != nil {
		return nil, errors.NewConfigError(name, "rollingPolicy", err)
	}
	writer, err := rotation.NewRollingFileWriter(rolling, triggering, cfg.IsAppend())
	if err != nil {
		return nil, errors.NewConfigError(name, "rollingPolicy", err)
	}
	return writer, nil
}
