package datefmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = time.Date(2024, time.March, 5, 14, 7, 9, 42*int(time.Millisecond), time.UTC)

func TestFormat(t *testing.T) {
	tests := []struct {
		pattern  string
		expected string
	}{
		{"yyyy-MM-dd", "2024-03-05"},
		{"yyyy-MM-dd HH:mm:ss.SSS", "2024-03-05 14:07:09.042"},
		{"yy/M/d", "24/3/5"},
		{"dd MMM yyyy", "05 Mar 2024"},
		{"EEEE, MMMM d", "Tuesday, March 5"},
		{"hh:mm a", "02:07 PM"},
		{"K k", "2 14"},
		{"D", "65"},
		{"u", "2"},
		{"'at' HH'h'", "at 14h"},
		{"''yyyy''", "'2024'"},
		{"ISO8601", "2024-03-05 14:07:09,042"},
		{"ABSOLUTE", "14:07:09,042"},
		{"XXX", "Z"},
		{"Z", "+0000"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			f, err := Compile(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f.Format(sample))
		})
	}
}

func TestFormatIn(t *testing.T) {
	loc := time.FixedZone("PLUS3", 3*60*60)
	f := MustCompile("HH:mm z").In(loc)

	assert.Equal(t, "17:07 PLUS3", f.Format(sample))
	assert.Equal(t, loc, f.Location())
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile("yyyy-MM-dd q")
	assert.Error(t, err, "unknown pattern letter must be rejected")

	_, err = Compile("yyyy 'unterminated")
	assert.Error(t, err)
}

func TestHasFields(t *testing.T) {
	assert.True(t, MustCompile("yyyy").HasFields())
	assert.False(t, MustCompile("'constant'").HasFields())
}

func TestWeekOfMonth(t *testing.T) {
	// March 2024 starts on a Friday, so the 4th (Monday) opens week 2.
	f := MustCompile("W")
	assert.Equal(t, "1", f.Format(time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2", f.Format(time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)))
}
