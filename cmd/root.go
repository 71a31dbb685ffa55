// cmd/root.go
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel     string
	seedFlag     int64
	simTimeLimit int64
	cpuTimeLimit int64
	warnings     bool
)

var rootCmd = &cobra.Command{
	Use:   "eventsim",
	Short: "A generic discrete-event simulation kernel",
}

// Execute runs the root command, mapping an *engine.Error's Kind to the
// process exit code when one escapes a subcommand (the teacher's
// Execute/os.Exit(1) pattern, generalized to the full ConfigError/BuildError
// split since eventsim's errors carry a Kind of their own).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int64Var(&seedFlag, "seed", 1, "Master RNG seed")
	rootCmd.PersistentFlags().Int64Var(&simTimeLimit, "sim-time-limit", 0, "Stop once the next event would exceed this simulated nanosecond (0 = use the config file's sim_time_limit; unbounded if that is 0 too)")
	rootCmd.PersistentFlags().Int64Var(&cpuTimeLimit, "cpu-time-limit", 0, "Stop once this many milliseconds of wall-clock time have elapsed (0 = unbounded)")
	rootCmd.PersistentFlags().BoolVar(&warnings, "warnings", true, "Module-level warnings toggle (parsed only; no module reads it)")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	}
}
