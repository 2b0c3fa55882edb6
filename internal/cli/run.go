package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Lunar-Chipter/crystalconf/internal/appender"
	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
	"github.com/Lunar-Chipter/crystalconf/internal/metrics"
	"github.com/Lunar-Chipter/crystalconf/internal/shutdown"
	"github.com/Lunar-Chipter/crystalconf/internal/wiring"
)

const shutdownTimeout = 10 * time.Second

func appenderContext(stdout io.Writer) appender.Context {
	return appender.Context{Stdout: stdout}
}

func newRunCmd(a *app) *cobra.Command {
	var (
		metricsAddr string
		count       int
		interval    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Wire a configuration and emit sample events",
		Long: `Run wires the configuration, then sends sample events at every level
through the root logger and each configured logger. With --metrics-addr the
appender counters are served at /metrics until the process is interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			mgr := shutdown.NewManager()
			var extra []wiring.Option
			var reg *prometheus.Registry
			if metricsAddr != "" {
				reg = prometheus.NewRegistry()
				extra = append(extra, wiring.WithMetrics(metrics.NewPrometheusCollector(reg)))
			}

			r, err := a.create(cfg, mgr, nil, a.options(cmd, extra...)...)
			if err != nil {
				return err
			}

			if reg != nil {
				addr, err := serveMetrics(reg, metricsAddr, mgr)
				if err != nil {
					_ = mgr.Shutdown(context.Background())
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "serving metrics on http://%s/metrics\n", addr)
			}

			emitSamples(ctx, r, cfg, count, interval)

			if reg != nil {
				<-ctx.Done()
			}
			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			return mgr.Shutdown(stopCtx)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	cmd.Flags().IntVar(&count, "count", 1, "Rounds of sample events to emit")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Pause between rounds")
	return cmd
}

// serveMetrics starts the metrics endpoint and registers its shutdown. The
// listener is bound before returning so the address is usable at once.
func serveMetrics(reg *prometheus.Registry, addr string, mgr *shutdown.Manager) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()
	mgr.AddShutdownHook(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	})
	return ln.Addr().String(), nil
}

var sampleLevels = []zapcore.Level{
	interfaces.TraceLevel,
	zapcore.DebugLevel,
	zapcore.InfoLevel,
	zapcore.WarnLevel,
	zapcore.ErrorLevel,
}

// emitSamples logs one event per level through root and every configured
// logger, count times.
func emitSamples(ctx context.Context, r *wiring.RootLogger, cfg *config.LoggingConfig, count int, interval time.Duration) {
	names := make([]string, 0, len(cfg.Loggers))
	for name := range cfg.Loggers {
		names = append(names, name)
	}
	sort.Strings(names)

	loggers := []*zap.Logger{r.Logger}
	for _, name := range names {
		loggers = append(loggers, r.GetLogger(name))
	}

	for round := 0; round < count; round++ {
		for _, l := range loggers {
			for _, lvl := range sampleLevels {
				l.Log(lvl, "sample event", zap.Int("round", round), zap.String("level", interfaces.LevelName(lvl)))
			}
		}
		if interval <= 0 || round == count-1 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
