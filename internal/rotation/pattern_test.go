package rotation

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)

func TestParseFileNamePattern_Convert(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		index   int
		want    string
	}{
		{"date only", "logs/app-%d{yyyy-MM-dd}.log", 0, "logs/app-2024-03-05.log"},
		{"default date format", "app-%d.log", 0, "app-2024-03-05.log"},
		{"date and index", "app-%d{yyyy-MM-dd}.%i.log.gz", 3, "app-2024-03-05.3.log.gz"},
		{"index only", "app.%i.log", 7, "app.7.log"},
		{"aux in directory", "%d{yyyy-MM,aux}/app-%d{yyyy-MM-dd}.log", 0, "2024-03/app-2024-03-05.log"},
		{"zone option", "app-%d{HH,Asia/Tokyo}.log", 0, "app-23.log"},
		{"escaped percent", "100%%-%i.log", 1, "100%-1.log"},
		{"long form", "app-%date{yyyy}.log", 0, "app-2024.log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseFileNamePattern(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Convert(sample, tt.index))
			assert.Equal(t, tt.pattern, p.String())
		})
	}
}

func TestParseFileNamePattern_Errors(t *testing.T) {
	for _, pattern := range []string{
		"app-%x.log",
		"app-%d{yyyy-MM-dd.log",
		"app-%d{yyyy-bb}.log",
		"app-%d{yyyy,Nowhere/Special}.log",
	} {
		_, err := ParseFileNamePattern(pattern)
		assert.Error(t, err, pattern)
	}
}

func TestFileNamePattern_Counts(t *testing.T) {
	p, err := ParseFileNamePattern("%d{yyyy,aux}/a-%d{yyyy-MM-dd}-%i.log")
	require.NoError(t, err)

	assert.Equal(t, 1, p.count(dateToken, true))
	assert.Equal(t, 2, p.count(dateToken, false))
	assert.Equal(t, 1, p.count(indexToken, false))
	assert.Equal(t, "yyyy-MM-dd", p.PrimaryDateFormat().Pattern())
	assert.True(t, p.hasDateInDir())
}

func TestFileNamePattern_RegexForDate(t *testing.T) {
	p, err := ParseFileNamePattern("logs/app-%d{yyyy-MM-dd}.%i.log")
	require.NoError(t, err)

	re := p.RegexForDate(sample, compressionSuffixRegex)
	assert.True(t, re.MatchString("logs/app-2024-03-05.0.log"))
	assert.True(t, re.MatchString("logs/app-2024-03-05.12.log.gz"))
	assert.False(t, re.MatchString("logs/app-2024-03-06.0.log"))
	assert.False(t, re.MatchString("logs/app-2024-03-05.x.log"))

	m := re.FindStringSubmatch("logs/app-2024-03-05.12.log.zip")
	require.NotNil(t, m)
	assert.Equal(t, "12", m[1])
}

func TestSplitCompression(t *testing.T) {
	c, stem := splitCompression("app-%d.log.gz")
	assert.Equal(t, GzipCompression, c)
	assert.Equal(t, "app-%d.log", stem)

	c, stem = splitCompression("app-%i.log.zip")
	assert.Equal(t, ZipCompression, c)
	assert.Equal(t, "app-%i.log", stem)

	c, _ = splitCompression("app-%i.log")
	assert.Equal(t, NoCompression, c)
}
