package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/errors"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
	"github.com/Lunar-Chipter/crystalconf/internal/status"
)

func entry(level zapcore.Level) zapcore.Entry {
	return zapcore.Entry{Level: level, Message: "m"}
}

func TestLevelFilter_ExactMatch(t *testing.T) {
	f := &LevelFilter{Level: interfaces.WARN, OnMatch: interfaces.ACCEPT, OnMismatch: interfaces.DENY}

	assert.Equal(t, interfaces.ACCEPT, f.Decide(entry(zapcore.WarnLevel)))
	assert.Equal(t, interfaces.DENY, f.Decide(entry(zapcore.ErrorLevel)))
	assert.Equal(t, interfaces.DENY, f.Decide(entry(zapcore.InfoLevel)))
}

func TestLevelFilter_TraceAndError(t *testing.T) {
	trace := &LevelFilter{Level: interfaces.TRACE, OnMatch: interfaces.ACCEPT, OnMismatch: interfaces.NEUTRAL}
	assert.Equal(t, interfaces.ACCEPT, trace.Decide(entry(interfaces.TraceLevel)))
	assert.Equal(t, interfaces.NEUTRAL, trace.Decide(entry(zapcore.DebugLevel)))

	// panic and fatal count as error
	errs := &LevelFilter{Level: interfaces.ERROR, OnMatch: interfaces.DENY, OnMismatch: interfaces.NEUTRAL}
	assert.Equal(t, interfaces.DENY, errs.Decide(entry(zapcore.FatalLevel)))
}

func TestThresholdFilter_NeverAccepts(t *testing.T) {
	f := &ThresholdFilter{Level: interfaces.INFO}

	assert.Equal(t, interfaces.DENY, f.Decide(entry(zapcore.DebugLevel)))
	assert.Equal(t, interfaces.DENY, f.Decide(entry(interfaces.TraceLevel)))
	for _, l := range []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel} {
		assert.Equal(t, interfaces.NEUTRAL, f.Decide(entry(l)))
	}
}

func TestChain_FirstNonNeutralWins(t *testing.T) {
	chain := Chain{
		&ThresholdFilter{Level: interfaces.INFO},
		&LevelFilter{Level: interfaces.WARN, OnMatch: interfaces.ACCEPT, OnMismatch: interfaces.NEUTRAL},
		&LevelFilter{Level: interfaces.WARN, OnMatch: interfaces.DENY, OnMismatch: interfaces.DENY},
	}

	assert.Equal(t, interfaces.DENY, chain.Decide(entry(zapcore.DebugLevel)))
	assert.Equal(t, interfaces.ACCEPT, chain.Decide(entry(zapcore.WarnLevel)))
	assert.Equal(t, interfaces.DENY, chain.Decide(entry(zapcore.ErrorLevel)))
	assert.True(t, chain.Accepts(entry(zapcore.WarnLevel)))
	assert.False(t, chain.Accepts(entry(zapcore.ErrorLevel)))
}

func TestChain_AllNeutralAccepts(t *testing.T) {
	assert.True(t, Chain(nil).Accepts(entry(zapcore.DebugLevel)))

	chain := Chain{&ThresholdFilter{Level: interfaces.DEBUG}}
	assert.Equal(t, interfaces.NEUTRAL, chain.Decide(entry(zapcore.InfoLevel)))
	assert.True(t, chain.Accepts(entry(zapcore.InfoLevel)))
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		in     string
		want   interfaces.FilterReply
		wantOK bool
	}{
		{"ACCEPT", interfaces.ACCEPT, true},
		{"deny", interfaces.DENY, true},
		{" Neutral ", interfaces.NEUTRAL, true},
		{"", interfaces.NEUTRAL, true},
		{"MAYBE", interfaces.NEUTRAL, false},
	}
	for _, tt := range tests {
		got, ok := ParseReply(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
	}
}

func TestCreate_UnknownReplyIsNeutralWithWarning(t *testing.T) {
	st := status.NewManager(false, nil)
	f, err := Create(config.FilterConfig{Type: config.LevelFilter, Level: "info", OnMatch: "MAYBE", OnMismatch: "deny"}, st)
	require.NoError(t, err)

	lf := f.(*LevelFilter)
	assert.Equal(t, interfaces.NEUTRAL, lf.OnMatch)
	assert.Equal(t, interfaces.DENY, lf.OnMismatch)
	require.Len(t, st.Statuses(), 1)
	assert.Contains(t, st.Statuses()[0].Message, `"MAYBE"`)
}

func TestCreate_Errors(t *testing.T) {
	_, err := Create(config.FilterConfig{Type: config.ThresholdFilter, Level: "loud"}, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidLevel)

	_, err = Create(config.FilterConfig{Type: "regex"}, nil)
	assert.ErrorIs(t, err, errors.ErrUnknownType)

	_, err = CreateChain([]config.FilterConfig{{Type: config.ThresholdFilter, Level: "info"}, {Type: "regex"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filter #2")
}

func TestCreate_DefaultLevel(t *testing.T) {
	f, err := Create(config.FilterConfig{Type: config.ThresholdFilter}, nil)
	require.NoError(t, err)
	assert.Equal(t, interfaces.DEBUG, f.(*ThresholdFilter).Level)
}
