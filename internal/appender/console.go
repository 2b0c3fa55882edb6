package appender

import (
	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/errors"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
	"github.com/Lunar-Chipter/crystalconf/internal/outputs"
)

// ConsoleFactory creates console appenders.
type ConsoleFactory struct {
	Config *config.ConsoleAppenderConfig
}

func (f *ConsoleFactory) CreateAppender(ctx Context, defaultLogFormat string) (interfaces.Appender, error) {
	cfg := f.Config
	target, err := outputs.ParseConsoleTarget(cfg.Target)
	if err != nil {
		return nil, errors.NewConfigError(cfg.DisplayName(), "target", err)
	}
	enc, err := createLayout(&cfg.AppenderCommon, ctx, defaultLogFormat)
	if err != nil {
		return nil, err
	}
	b, err := newBase(&cfg.AppenderCommon, ctx)
	if err != nil {
		return nil, errors.NewConfigError(cfg.DisplayName(), "filters", err)
	}

	w := ctx.stdout()
	if target == outputs.Stderr {
		w = ctx.stderr()
	}
	a := newWriterAppender(b, enc, ctx.QueueSize, func() (Sink, error) {
		return outputs.NewConsoleOutputWithWriter(w), nil
	})
	if err := a.Start(); err != nil {
		return nil, errors.NewConstructionError(cfg.DisplayName(), "console", err)
	}
	return a, nil
}
