// Package filter implements the per-appender filter chain.
package filter

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/errors"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
	"github.com/Lunar-Chipter/crystalconf/internal/status"
)

// defaultLevel applies to filters declared without a level.
const defaultLevel = interfaces.DEBUG

// LevelFilter accepts or denies events whose level equals Level exactly.
type LevelFilter struct {
	Level      interfaces.Level
	OnMatch    interfaces.FilterReply
	OnMismatch interfaces.FilterReply
}

// Decide implements interfaces.Filter
func (f *LevelFilter) Decide(ent zapcore.Entry) interfaces.FilterReply {
	if f.Level.Matches(ent.Level) {
		return f.OnMatch
	}
	return f.OnMismatch
}

// ThresholdFilter denies events below Level and is neutral otherwise. It
// never accepts, so later filters still get a say.
type ThresholdFilter struct {
	Level interfaces.Level
}

// Decide implements interfaces.Filter
func (f *ThresholdFilter) Decide(ent zapcore.Entry) interfaces.FilterReply {
	if f.Level.Enables(ent.Level) {
		return interfaces.NEUTRAL
	}
	return interfaces.DENY
}

// Chain evaluates filters in declaration order.
type Chain []interfaces.Filter

// Decide returns the first non-neutral reply, or NEUTRAL.
func (c Chain) Decide(ent zapcore.Entry) interfaces.FilterReply {
	for _, f := range c {
		if reply := f.Decide(ent); reply != interfaces.NEUTRAL {
			return reply
		}
	}
	return interfaces.NEUTRAL
}

// Accepts reports whether the event gets through; an all-neutral chain
// accepts.
func (c Chain) Accepts(ent zapcore.Entry) bool {
	return c.Decide(ent) != interfaces.DENY
}

// ParseReply parses "accept", "deny" or "neutral" in any case. ok is false
// for anything else, which callers treat as NEUTRAL.
func ParseReply(s string) (reply interfaces.FilterReply, ok bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACCEPT":
		return interfaces.ACCEPT, true
	case "DENY":
		return interfaces.DENY, true
	case "NEUTRAL", "":
		return interfaces.NEUTRAL, true
	}
	return interfaces.NEUTRAL, false
}

// Create builds one filter from its declaration. Unknown reply strings
// degrade to NEUTRAL with a warning; an unknown level or type is fatal.
func Create(decl config.FilterConfig, st *status.Manager) (interfaces.Filter, error) {
	level, err := interfaces.ParseLevelOr(decl.Level, defaultLevel)
	if err != nil {
		return nil, errors.NewConfigError("filter", err.Error(), errors.ErrInvalidLevel)
	}

	switch decl.Type {
	case config.LevelFilter:
		return &LevelFilter{
			Level:      level,
			OnMatch:    reply(decl.OnMatch, "onMatch", st),
			OnMismatch: reply(decl.OnMismatch, "onMismatch", st),
		}, nil
	case config.ThresholdFilter:
		return &ThresholdFilter{Level: level}, nil
	}
	return nil, errors.NewConfigError("filter", fmt.Sprintf("unknown filter type %q", decl.Type), errors.ErrUnknownType)
}

func reply(s, property string, st *status.Manager) interfaces.FilterReply {
	r, ok := ParseReply(s)
	if !ok {
		st.Warnf("filter", "unrecognised %s value %q, using NEUTRAL", property, s)
	}
	return r
}

// CreateChain builds the filters of one appender in order.
func CreateChain(decls []config.FilterConfig, st *status.Manager) (Chain, error) {
	chain := make(Chain, 0, len(decls))
	for i, decl := range decls {
		f, err := Create(decl, st)
		if err != nil {
			return nil, fmt.Errorf("filter #%d: %w", i+1, err)
		}
		chain = append(chain, f)
	}
	return chain, nil
}
