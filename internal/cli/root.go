// Package cli implements the crystalconf command line: validating logging
// configurations, running them with sample traffic and watching them for
// changes.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lunar-Chipter/crystalconf/internal/config"
	"github.com/Lunar-Chipter/crystalconf/internal/interfaces"
	"github.com/Lunar-Chipter/crystalconf/internal/wiring"
)

// createFunc matches wiring.CreateRootLogger.
type createFunc func(*config.LoggingConfig, interfaces.ShutdownRegistry, map[string]interfaces.Level, ...wiring.Option) (*wiring.RootLogger, error)

// app carries state shared by the subcommands of one command tree.
type app struct {
	debug  bool
	create createFunc
	// stdout replaces os.Stdout for console appenders when set
	stdout io.Writer
}

func (a *app) load(path string) (*config.LoggingConfig, error) {
	doc, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &doc.Log
	if a.debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func (a *app) options(cmd *cobra.Command, extra ...wiring.Option) []wiring.Option {
	opts := []wiring.Option{wiring.WithStatusOutput(cmd.ErrOrStderr())}
	if a.stdout != nil {
		opts = append(opts, wiring.WithAppenderContext(appenderContext(a.stdout)))
	}
	return append(opts, extra...)
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{create: wiring.CreateRootLogger})
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crystalconf",
		Short: "Declarative logging configuration for zap",
		Long: `crystalconf wires zap loggers from a YAML, JSON or TOML document that
declares appenders, rolling policies, filters and layouts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Print wiring status messages to stderr")

	cmd.AddCommand(newValidateCmd(a))
	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newWatchCmd(a))
	return cmd
}

// Execute runs the command line and returns the exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
