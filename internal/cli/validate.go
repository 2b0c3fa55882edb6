package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lunar-Chipter/crystalconf/internal/wiring"
)

func newValidateCmd(a *app) *cobra.Command {
	var static bool
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a logging configuration",
		Long: `Validate loads the configuration and wires it into a throw-away logger
context, so unreadable files, bad patterns and unreachable sinks are reported.
With --static only names, references and levels are checked and nothing is
created.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(args[0])
			if err != nil {
				return err
			}
			if static {
				if err := wiring.Validate(cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
				return nil
			}

			r, err := wiring.Build(cfg, nil, a.options(cmd)...)
			if err != nil {
				return err
			}
			attached := len(r.Context().AttachedAppenders())
			if err := r.Stop(); err != nil {
				return fmt.Errorf("stopping appenders: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d appender(s) attached\n", args[0], attached)
			return nil
		},
	}
	cmd.Flags().BoolVar(&static, "static", false, "Check names and references without creating appenders")
	return cmd
}
