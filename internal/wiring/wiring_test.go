package wiring

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Lunar-Chipter/crystalconf/internal/appender"
	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/core"
	"github.com/Lunar-Chipter/crystalconf/internal/errors"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
	"github.com/Lunar-Chipter/crystalconf/internal/layout"
	"github.com/Lunar-Chipter/crystalconf/internal/shutdown"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func parse(t *testing.T, format string, args ...interface{}) *config.LoggingConfig {
	t.Helper()
	doc, err := config.Parse([]byte(fmt.Sprintf(format, args...)), config.FormatYAML)
	require.NoError(t, err)
	return &doc.Log
}

func build(t *testing.T, cfg *config.LoggingConfig, opts ...Option) *RootLogger {
	t.Helper()
	r, err := Build(cfg, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Stop() })
	return r
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestReferencedNames(t *testing.T) {
	cfg := parse(t, `
log:
  appenderRefs: [a]
  loggers:
    x: { appenderRefs: [b, a] }
    y: { appenderRefs: [c] }
`)
	refs := ReferencedNames(cfg)
	var names []string
	for n := range refs {
		names = append(names, n)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		yaml string
		want error
	}{
		"dangling root ref": {`
log:
  appenderRefs: [missing]
  appenders: [ { name: a } ]
`, errors.ErrDanglingRef},
		"dangling logger ref": {`
log:
  loggers:
    x: { appenderRefs: [missing] }
`, errors.ErrDanglingRef},
		"duplicate names": {`
log:
  appenders: [ { name: a }, { name: a, target: stderr } ]
`, errors.ErrDuplicateName},
		"empty name": {`
log:
  appenders: [ { name: "" } ]
`, errors.ErrEmptyName},
		"bad root level": {`
log:
  level: loud
`, errors.ErrInvalidLevel},
		"bad logger level": {`
log:
  loggers:
    x: { level: loud }
`, errors.ErrInvalidLevel},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := Validate(parse(t, "%s", tc.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, errors.IsFatal(err))
		})
	}

	assert.NoError(t, Validate(parse(t, `
log:
  appenderRefs: [a]
  loggers:
    x: { level: debug, appenderRefs: [a] }
  appenders: [ { name: a }, { } ]
`)))
}

func TestScenario_FileEndsWithHello(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	cfg := parse(t, `
log:
  level: info
  appenders:
    - type: file
      file: %s
`, path)

	mgr := shutdown.NewManager()
	var b Bootstrap
	r, err := b.CreateRootLogger(cfg, mgr, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, mgr.Len())

	r.Info("hello")
	require.NoError(t, mgr.Shutdown(context.Background()))

	content := strings.TrimRight(readFile(t, path), "\n")
	lines := strings.Split(content, "\n")
	assert.Contains(t, lines[len(lines)-1], "hello")
	assert.Contains(t, lines[len(lines)-1], "INFO")
}

func TestScenario_ChildLoggersWriteOnlyToTheirAppender(t *testing.T) {
	dir := t.TempDir()
	one := filepath.Join(dir, "one.log")
	two := filepath.Join(dir, "two.log")
	cfg := parse(t, `
log:
  loggers:
    childA: { appenderRefs: [one] }
    childB: { appenderRefs: [two] }
  appenders:
    - { type: file, name: one, file: %s, logFormat: "%%c %%m%%n" }
    - { type: file, name: two, file: %s, logFormat: "%%c %%m%%n" }
`, one, two)
	r := build(t, cfg)

	r.GetLogger("childA").Info("from a")
	require.NoError(t, r.Stop())

	assert.Equal(t, "childA from a\n", readFile(t, one))
	assert.Equal(t, "", readFile(t, two))
}

func TestNamedAppenderIsSingleton(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.log")
	cfg := parse(t, `
log:
  appenderRefs: [shared]
  loggers:
    a: { appenderRefs: [shared] }
    b: { appenderRefs: [shared] }
    c: { appenderRefs: [shared] }
  appenders:
    - { type: file, name: shared, file: %s, logFormat: "%%m%%n" }
`, path)
	r := build(t, cfg)

	shared, ok := r.Configurator().Named("shared")
	require.True(t, ok)
	for _, name := range []string{"a", "b", "c", ""} {
		apps := r.Context().GetLogger(name).Appenders()
		require.Len(t, apps, 1, name)
		assert.Same(t, shared, apps[0], name)
	}
	assert.Len(t, r.Context().AttachedAppenders(), 1)

	// one event per call even though the appender is attached at every level
	r.GetLogger("a").Info("once")
	require.NoError(t, r.Stop())
	assert.Equal(t, "once\n", readFile(t, path))
}

func TestUnreferencedNamedAppenderIsNeverCreated(t *testing.T) {
	dir := t.TempDir()
	unused := filepath.Join(dir, "unused.log")
	var stdout lockedBuffer
	cfg := parse(t, `
log:
  appenders:
    - { type: file, name: unused, file: %s }
    - { type: console, logFormat: "%%m%%n" }
`, unused)
	r := build(t, cfg, WithAppenderContext(appender.Context{Stdout: &stdout}))

	_, ok := r.Configurator().Named("unused")
	assert.False(t, ok)
	_, err := os.Stat(unused)
	assert.True(t, os.IsNotExist(err))

	r.Info("visible")
	require.NoError(t, r.Stop())
	assert.Equal(t, "visible\n", stdout.String())
}

func TestAnonymousAppenderAttachesToRootOnly(t *testing.T) {
	var stdout lockedBuffer
	path := filepath.Join(t.TempDir(), "named.log")
	cfg := parse(t, `
log:
  loggers:
    svc: { appenderRefs: [named] }
  appenders:
    - { type: file, name: named, file: %s }
    - { type: console }
`, path)
	r := build(t, cfg, WithAppenderContext(appender.Context{Stdout: &stdout}))

	anon := r.Configurator().Anonymous()
	require.Len(t, anon, 1)
	assert.True(t, r.Context().Root().HasAppender(anon[0]))
	assert.False(t, r.Context().GetLogger("svc").HasAppender(anon[0]))
	named, _ := r.Configurator().Named("named")
	assert.False(t, r.Context().Root().HasAppender(named))
}

func TestDefaultConsoleAppender(t *testing.T) {
	var stdout lockedBuffer
	r := build(t, parse(t, `log: { level: warn }`), WithAppenderContext(appender.Context{Stdout: &stdout}))

	apps := r.Context().Root().Appenders()
	require.Len(t, apps, 1)
	assert.Len(t, r.Context().AttachedAppenders(), 1)

	wa, ok := apps[0].(*appender.WriterAppender)
	require.True(t, ok)
	enc, ok := wa.Encoder().(*layout.PatternEncoder)
	require.True(t, ok)
	assert.Equal(t, config.DefaultLogFormat, enc.Pattern().String())

	r.Info("hidden")
	r.Warn("shown")
	require.NoError(t, r.Stop())
	out := stdout.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "WARN  ["), out)
	assert.Contains(t, out, " ROOT: shown\n")
}

func TestDanglingReferenceCreatesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.log")
	cfg := parse(t, `
log:
  appenderRefs: [a]
  loggers:
    x: { appenderRefs: [ghost] }
  appenders:
    - { type: file, name: a, file: %s }
`, path)

	_, err := Build(cfg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDanglingRef)
	assert.Contains(t, err.Error(), "ghost")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

type recordingFactory struct {
	appender.Factory
	created *[]interfaces.Appender
}

func (f recordingFactory) CreateAppender(ctx appender.Context, defaultLogFormat string) (interfaces.Appender, error) {
	a, err := f.Factory.CreateAppender(ctx, defaultLogFormat)
	if err == nil {
		*f.created = append(*f.created, a)
	}
	return a, err
}

func TestFailureStopsCreatedAppenders(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	cfg := parse(t, `
log:
  appenderRefs: [first]
  appenders:
    - { type: file, name: first, file: %s, logFormat: "%%m%%n" }
    - { type: smtp, smtpHost: localhost }
`, first)

	ctx := core.NewLoggerContext()
	c := NewConfigurator(ctx, appender.Context{})
	var created []interfaces.Appender
	c.newFactory = func(decl config.AppenderConfig) (appender.Factory, error) {
		f, err := appender.NewFactory(decl)
		if err != nil {
			return nil, err
		}
		return recordingFactory{Factory: f, created: &created}, nil
	}

	err := c.Configure(cfg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoRecipients)
	assert.Equal(t, Failed, c.State())
	assert.Empty(t, ctx.AttachedAppenders())
	assert.Empty(t, ctx.Root().Appenders())

	require.Len(t, created, 1)
	assert.False(t, created[0].IsStarted())
	_, statErr := os.Stat(first)
	assert.NoError(t, statErr, "the file appender was started before the failure")
}

func TestLevelsAndAdditivity(t *testing.T) {
	var stdout lockedBuffer
	cfg := parse(t, `
log:
  level: warn
  loggers:
    noisy: { level: error }
    quiet.sub: { additivity: false }
    configured: {}
  appenders:
    - { type: console, logFormat: "%%c:%%m%%n" }
`)
	defaults := map[string]interfaces.Level{
		"configured": interfaces.DEBUG,
		"external":   interfaces.TRACE,
		"noisy":      interfaces.DEBUG,
	}
	r, err := Build(cfg, defaults, WithAppenderContext(appender.Context{Stdout: &stdout}))
	require.NoError(t, err)
	defer r.Stop()

	ctx := r.Context()
	assert.Equal(t, interfaces.WARN, ctx.Root().EffectiveLevel())
	assert.Equal(t, interfaces.ERROR, ctx.GetLogger("noisy").EffectiveLevel())
	assert.Equal(t, interfaces.DEBUG, ctx.GetLogger("configured").EffectiveLevel())
	assert.Equal(t, interfaces.TRACE, ctx.GetLogger("external").EffectiveLevel())
	assert.Equal(t, interfaces.INFO, ctx.GetLogger("quiet.sub").EffectiveLevel())
	assert.False(t, ctx.GetLogger("quiet.sub").IsAdditive())

	// additivity false with no appenders of its own: nothing is written
	r.GetLogger("quiet.sub").Error("swallowed")
	r.GetLogger("configured").Debug("dbg")
	require.NoError(t, r.Stop())
	assert.Equal(t, "configured:dbg\n", stdout.String())
}

func TestScenario_TimeBasedRetention(t *testing.T) {
	dir := t.TempDir()
	clock := &stepClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	cfg := parse(t, `
log:
  appenders:
    - type: file
      logFormat: "%%m%%n"
      rollingPolicy:
        type: time
        fileNamePattern: %s
        historySize: 2
`, filepath.Join(dir, "app-%d{yyyy-MM-dd-HH-mm-ss,UTC}.log"))
	r := build(t, cfg, WithAppenderContext(appender.Context{Clock: clock.Now}))

	for i := 0; i < 5; i++ {
		r.Info(fmt.Sprintf("line %d", i))
		require.NoError(t, r.Sync())
		clock.Advance(time.Second)
	}
	require.NoError(t, r.Stop())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(entries), 3)
	_, err = os.Stat(filepath.Join(dir, "app-2024-06-01-12-00-00.log"))
	assert.True(t, os.IsNotExist(err), "oldest file is deleted")
	assert.Equal(t, "line 4\n", readFile(t, filepath.Join(dir, "app-2024-06-01-12-00-04.log")))
}

func TestUseExternalConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never.log")
	cfg := parse(t, `
log:
  useExternalConfig: true
  appenders: [ { type: file, file: %s } ]
`, path)
	r := build(t, cfg)

	assert.Empty(t, r.Context().AttachedAppenders())
	assert.Equal(t, interfaces.INFO, r.Context().Root().EffectiveLevel())
	assert.Equal(t, Unconfigured, r.Configurator().State())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestReconfigureReplacesGraph(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")
	r := build(t, parse(t, `
log:
  appenders: [ { type: file, file: %s, logFormat: "%%m%%n" } ]
`, first))
	r.Info("one")

	require.NoError(t, r.Reconfigure(parse(t, `
log:
  appenders: [ { type: file, file: %s, logFormat: "%%m%%n" } ]
`, second)))
	assert.Equal(t, Ready, r.Configurator().State())
	assert.Len(t, r.Context().AttachedAppenders(), 1)
	r.Info("two")
	require.NoError(t, r.Stop())

	assert.Equal(t, "one\n", readFile(t, first))
	assert.Equal(t, "two\n", readFile(t, second))
}

func TestBootstrap_OnlyOnce(t *testing.T) {
	var b Bootstrap
	var stdout lockedBuffer
	opt := WithAppenderContext(appender.Context{Stdout: &stdout})

	_, err := b.CreateRootLogger(parse(t, `log: { level: loud }`), nil, nil, opt)
	require.Error(t, err)

	r, err := b.CreateRootLogger(&config.LoggingConfig{}, nil, nil, opt)
	require.NoError(t, err)
	defer r.Stop()

	_, err = b.CreateRootLogger(&config.LoggingConfig{}, nil, nil, opt)
	assert.ErrorIs(t, err, errors.ErrAlreadyConfigured)
}

func TestStdLogRedirect(t *testing.T) {
	var stdout lockedBuffer
	cfg := parse(t, `
log:
  appenders: [ { type: console, logFormat: "%%p %%m%%n" } ]
`)
	r := build(t, cfg, WithAppenderContext(appender.Context{Stdout: &stdout}), WithStdLogRedirect(true))

	log.Print("from stdlib")
	require.NoError(t, r.Stop())
	assert.Equal(t, "INFO from stdlib\n", stdout.String())
}

func TestDebugStatusOutput(t *testing.T) {
	var status lockedBuffer
	var stdout lockedBuffer
	r := build(t, parse(t, `log: { debug: true }`),
		WithStatusOutput(&status), WithAppenderContext(appender.Context{Stdout: &stdout}))
	require.NoError(t, r.Stop())

	out := status.String()
	assert.Contains(t, out, "state Ready")
	assert.Contains(t, out, "adding a console appender")
	assert.NotEmpty(t, r.Status().Statuses())
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestFieldsReachPatternLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.log")
	r := build(t, parse(t, `
log:
  appenders: [ { type: file, file: %s, logFormat: "%%m user=%%X{user} [%%mdc]%%n" } ]
`, path))

	r.Info("hello", zap.String("user", "alice"))
	r.With(zap.Int("request", 7)).Info("scoped", zap.String("user", "bob"))
	r.GetLogger("svc").Info("plain")
	require.NoError(t, r.Stop())

	assert.Equal(t,
		"hello user=alice [user=alice]\n"+
			"scoped user=bob [request=7, user=bob]\n"+
			"plain user= []\n",
		readFile(t, path))
}

func TestFixedWindowChecksSizeOnEveryEvent(t *testing.T) {
	dir := t.TempDir()
	active := filepath.Join(dir, "app.log")
	r := build(t, parse(t, `
log:
  appenders:
    - type: file
      file: %s
      logFormat: "%%m%%n"
      rollingPolicy:
        type: fixedWindow
        fileNamePattern: %s
        historySize: 3
        fileSize: "100"
`, active, filepath.Join(dir, "app.%i.log")))

	for i := 0; i < 200; i++ {
		r.Info(fmt.Sprintf("event-%04d", i))
	}
	require.NoError(t, r.Stop())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
		info, err := e.Info()
		require.NoError(t, err)
		// one 11 byte event may land after the 100 byte mark
		assert.LessOrEqual(t, info.Size(), int64(110), e.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"app.1.log", "app.2.log", "app.3.log", "app.log"}, names)
	assert.True(t, strings.HasSuffix(readFile(t, active), "event-0199\n"))
}

func TestConfigureRejectsSecondPass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	cfg := parse(t, `
log:
  appenders: [ { type: file, file: %s, logFormat: "%%m%%n" } ]
`, path)
	r := build(t, cfg)

	err := r.Configurator().Configure(cfg, nil)
	assert.ErrorIs(t, err, errors.ErrAlreadyConfigured)
	assert.Equal(t, Ready, r.Configurator().State())
	assert.Len(t, r.Context().Root().Appenders(), 1)

	r.Info("hello")
	require.NoError(t, r.Stop())
	assert.Equal(t, "hello\n", readFile(t, path))
}

func TestStartTimeSharedWithContext(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var stdout lockedBuffer
	r := build(t, &config.LoggingConfig{}, WithAppenderContext(appender.Context{Stdout: &stdout, StartTime: start}))
	assert.Equal(t, start, r.Context().StartTime())
}

func TestCallerCapturedOnlyForCallerLayouts(t *testing.T) {
	var stdout lockedBuffer
	actx := WithAppenderContext(appender.Context{Stdout: &stdout})

	plain := build(t, parse(t, `
log:
  appenders: [ { type: console, logFormat: "%%m%%n" } ]
`), actx)
	assert.False(t, plain.Context().CallerData())
	require.NoError(t, plain.Stop())

	located := build(t, parse(t, `
log:
  appenders: [ { type: console, logFormat: "%%F:%%L %%m%%n" } ]
`), actx)
	assert.True(t, located.Context().CallerData())
	located.Info("here")
	require.NoError(t, located.Stop())

	assert.Regexp(t, `^wiring_test\.go:\d+ here\n$`, stdout.String())
}
