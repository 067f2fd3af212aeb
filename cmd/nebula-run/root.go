package main

import (
	"github.com/spf13/cobra"

	"github.com/Niraka/nebula/internal/logging"
)

var (
	flagLogLevel  string
	flagLogFormat string
	flagDebug     bool

	logger logging.Logger
)

// newRootCmd builds the nebula-run command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nebula-run",
		Short: "nebula-run — drives a fixed-timestep scheduler from the command line",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := flagLogLevel
			if flagDebug {
				level = "debug"
			}
			logger = logging.New(logging.Config{Level: level, Format: flagLogFormat})
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Shorthand for --log-level=debug")

	root.AddCommand(newRunCmd())
	return root
}
