// Package wiring turns a logging configuration into appenders attached to a
// logger tree. A pass moves through Unconfigured, Validating, Instantiating
// and Attached and ends Ready or Failed. Nothing is left half-wired: a failed
// pass stops every appender it created.
package wiring

import (
	"fmt"
	"sync"

	"github.com/Lunar-Chipter/crystalconf/internal/appender"
	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/core"
	"github.com/Lunar-Chipter/crystalconf/internal/errors"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
)

const origin = "wiring"

// Configurator wires configurations into one logger context.
type Configurator struct {
	ctx        *core.LoggerContext
	appenders  appender.Context
	newFactory func(config.AppenderConfig) (appender.Factory, error)

	mu        sync.Mutex
	state     State
	named     map[string]interfaces.Appender
	anonymous []interfaces.Appender
}

// NewConfigurator creates a configurator for ctx. actx supplies appender
// dependencies; its Status, Metrics and StartTime default to the context's.
func NewConfigurator(ctx *core.LoggerContext, actx appender.Context) *Configurator {
	if actx.Status == nil {
		actx.Status = ctx.Status()
	}
	if actx.Metrics == nil {
		actx.Metrics = ctx.Metrics()
	}
	if actx.StartTime.IsZero() {
		actx.StartTime = ctx.StartTime()
	}
	return &Configurator{ctx: ctx, appenders: actx, newFactory: appender.NewFactory}
}

// State returns the state of the latest pass.
func (c *Configurator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Named returns the appender instantiated for name by the latest pass.
func (c *Configurator) Named(name string) (interfaces.Appender, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.named[name]
	return a, ok
}

// Anonymous returns the anonymous appenders of the latest pass.
func (c *Configurator) Anonymous() []interfaces.Appender {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interfaces.Appender(nil), c.anonymous...)
}

func (c *Configurator) transition(s State) {
	c.state = s
	c.ctx.Status().Infof(origin, "state %s", s)
}

// Configure wires cfg into the context. defaultLevels holds levels supplied
// by the application; configured loggers win over them. The context must be
// unconfigured, otherwise errors.ErrAlreadyConfigured is returned; use
// Reconfigure to replace a previous pass.
func (c *Configurator) Configure(cfg *config.LoggingConfig, defaultLevels map[string]interfaces.Level) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Unconfigured {
		return fmt.Errorf("%w: configurator is %s", errors.ErrAlreadyConfigured, c.state)
	}
	c.named = nil
	c.anonymous = nil

	c.transition(Validating)
	if err := Validate(cfg); err != nil {
		return c.fail(err, nil)
	}

	c.transition(Instantiating)
	named, anonymous, err := c.instantiate(cfg)
	if err != nil {
		return c.fail(err, nil)
	}

	if err := c.attach(cfg, defaultLevels, named, anonymous); err != nil {
		if stopErr := c.ctx.Stop(); stopErr != nil {
			c.ctx.Status().Warnf(origin, "detaching appenders after failure: %v", stopErr)
		}
		created := append([]interfaces.Appender(nil), anonymous...)
		for _, a := range named {
			created = append(created, a)
		}
		return c.fail(err, created)
	}
	c.ctx.SetCallerData(needCallerData(named, anonymous))
	c.transition(Attached)

	c.named = named
	c.anonymous = anonymous
	c.transition(Ready)
	return nil
}

// Reconfigure tears down everything the context holds and wires cfg from
// scratch.
func (c *Configurator) Reconfigure(cfg *config.LoggingConfig, defaultLevels map[string]interfaces.Level) error {
	if err := c.Stop(); err != nil {
		c.ctx.Status().Warnf(origin, "stopping previous configuration: %v", err)
	}
	return c.Configure(cfg, defaultLevels)
}

// Stop detaches and stops every appender in the context.
func (c *Configurator) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.named = nil
	c.anonymous = nil
	c.state = Unconfigured
	return c.ctx.Stop()
}

func (c *Configurator) fail(err error, created []interfaces.Appender) error {
	if stopErr := core.StopAll(created); stopErr != nil {
		c.ctx.Status().Warnf(origin, "stopping appenders after failure: %v", stopErr)
	}
	c.ctx.Status().Errorf(origin, "%v", err)
	c.transition(Failed)
	return err
}

// instantiate creates each referenced named appender once and every
// anonymous appender. Unreferenced named appenders are skipped.
func (c *Configurator) instantiate(cfg *config.LoggingConfig) (map[string]interfaces.Appender, []interfaces.Appender, error) {
	refs := ReferencedNames(cfg)
	named := make(map[string]interfaces.Appender)
	var anonymous []interfaces.Appender

	rollback := func(err error) (map[string]interfaces.Appender, []interfaces.Appender, error) {
		created := append([]interfaces.Appender(nil), anonymous...)
		for _, a := range named {
			created = append(created, a)
		}
		if stopErr := core.StopAll(created); stopErr != nil {
			c.ctx.Status().Warnf(origin, "stopping appenders after failure: %v", stopErr)
		}
		return nil, nil, err
	}

	decls := cfg.Appenders
	if len(decls) == 0 {
		c.ctx.Status().Infof(origin, "no appenders declared, adding a console appender")
		decls = config.Appenders{&config.ConsoleAppenderConfig{}}
	}

	for i, decl := range decls {
		name := decl.Common().Name
		if name != nil {
			if _, ok := refs[*name]; !ok {
				c.ctx.Status().Infof(origin, "appender [%s] is not referenced by any logger, skipping it", *name)
				continue
			}
		}

		c.ctx.Status().Infof(origin, "instantiating %s appender [%s]", decl.Type(), decl.Common().DisplayName())
		factory, err := c.newFactory(decl)
		if err != nil {
			return rollback(fmt.Errorf("log.appenders[%d]: %w", i, err))
		}
		a, err := factory.CreateAppender(c.appenders, cfg.GetLogFormat())
		if err != nil {
			return rollback(err)
		}
		if name != nil {
			named[*name] = a
		} else {
			anonymous = append(anonymous, a)
		}
	}
	return named, anonymous, nil
}

// attach sets logger levels and attaches appenders: named loggers get their
// referenced appenders, root gets its references followed by every anonymous
// appender.
func (c *Configurator) attach(cfg *config.LoggingConfig, defaultLevels map[string]interfaces.Level, named map[string]interfaces.Appender, anonymous []interfaces.Appender) error {
	st := c.ctx.Status()

	for name, level := range defaultLevels {
		if name == "" {
			continue
		}
		if _, configured := cfg.Loggers[name]; configured {
			continue
		}
		c.ctx.GetLogger(name).SetLevel(level)
		st.Infof(origin, "setting level of logger [%s] to %s", name, level)
	}

	for _, name := range sortedLoggerNames(cfg) {
		decl := cfg.Loggers[name]
		logger := c.ctx.GetLogger(name)

		def := interfaces.INFO
		if level, ok := defaultLevels[name]; ok {
			def = level
		}
		level, err := interfaces.ParseLevelOr(decl.Level, def)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		logger.SetAdditive(decl.IsAdditive())
		st.Infof(origin, "setting level of logger [%s] to %s", name, level)

		for _, ref := range decl.AppenderRefs {
			a, ok := named[ref]
			if !ok {
				return fmt.Errorf("logger %q: appender %q was not instantiated", name, ref)
			}
			logger.AddAppender(a)
			st.Infof(origin, "attaching appender [%s] to logger [%s]", ref, name)
		}
	}

	root := c.ctx.Root()
	def := interfaces.INFO
	if level, ok := defaultLevels[""]; ok {
		def = level
	}
	level, err := interfaces.ParseLevelOr(cfg.Level, def)
	if err != nil {
		return err
	}
	root.SetLevel(level)
	st.Infof(origin, "setting level of root logger to %s", level)

	for _, ref := range cfg.AppenderRefs {
		a, ok := named[ref]
		if !ok {
			return fmt.Errorf("root logger: appender %q was not instantiated", ref)
		}
		root.AddAppender(a)
		st.Infof(origin, "attaching appender [%s] to root logger", ref)
	}
	for _, a := range anonymous {
		root.AddAppender(a)
	}
	return nil
}

func needCallerData(named map[string]interfaces.Appender, anonymous []interfaces.Appender) bool {
	uses := func(a interfaces.Appender) bool {
		u, ok := a.(interfaces.CallerDataUser)
		return ok && u.CallerData()
	}
	for _, a := range named {
		if uses(a) {
			return true
		}
	}
	for _, a := range anonymous {
		if uses(a) {
			return true
		}
	}
	return false
}
