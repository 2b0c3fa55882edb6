package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Lunar-Chipter/crystalconf/internal/shutdown"
	"github.com/Lunar-Chipter/crystalconf/internal/wiring"
)

const reloadDebounce = 100 * time.Millisecond

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "Wire a configuration and rebuild it whenever the file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			cfg, err := a.load(path)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			mgr := shutdown.NewManager()
			r, err := a.create(cfg, mgr, nil, a.options(cmd)...)
			if err != nil {
				return err
			}
			r.Info("watching logging configuration", zap.String("file", path))

			werr := watch(ctx, a, r, path, cmd.ErrOrStderr())

			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			if err := mgr.Shutdown(stopCtx); err != nil && werr == nil {
				werr = err
			}
			return werr
		},
	}
}

// watch reloads r from path until ctx is done. The directory is watched
// rather than the file so saves that replace the file are seen.
func watch(ctx context.Context, a *app, r *wiring.RootLogger, path string, stderr io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	debounce := time.NewTimer(0)
	<-debounce.C
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = true
			debounce.Reset(reloadDebounce)

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			if err := reload(a, r, path); err != nil {
				fmt.Fprintf(stderr, "reload of %s failed: %v\n", path, err)
				continue
			}
			r.Info("logging configuration reloaded", zap.String("file", path))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(stderr, "watcher: %v\n", err)
		}
	}
}

// reload checks the new document before tearing down the running graph, so
// a broken edit leaves the previous configuration in place.
func reload(a *app, r *wiring.RootLogger, path string) error {
	cfg, err := a.load(path)
	if err != nil {
		return err
	}
	if err := wiring.Validate(cfg); err != nil {
		return err
	}
	return r.Reconfigure(cfg)
}
