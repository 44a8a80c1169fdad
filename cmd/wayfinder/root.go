package main

import (
	"github.com/spf13/cobra"
)

// RootCommand creates and returns the root command
func RootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wayfinder",
		Short:         "Campus AR wayfinding scene",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&a.configDir, "config", "c", "", "Directory containing wayfinder.cfg.json (defaults only when empty)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&a.logFile, "log-file", false, "Write logs to a session file in logsDir instead of stderr")

	rootCmd.AddCommand(
		replayCommand(a),
		serveCommand(a),
		lookupCommand(a),
		studentsCommand(a),
		importDBCommand(a),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.init(cmd.Context())
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		a.close()
	}

	return rootCmd
}
