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

// newRootCmd builds the nebula-serve command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nebula-serve",
		Short: "nebula-serve — runs a scheduler engine as a long-lived HTTP service",
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
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "json", "Log format (text, json)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Shorthand for --log-level=debug")

	root.AddCommand(newServeCmd())
	return root
}
