package cmd

import (
	"fmt"
	"time"

	"github.com/eventsim/eventsim/engine"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <config.yaml>",
	Short: "Build a registered network from a config file and run it to completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadNetworkConfig(args[0])
		if err != nil {
			return engine.NewConfigError("run", err)
		}
		builder, ok := networkRegistry[cfg.Network]
		if !ok {
			return engine.NewConfigError("run", fmt.Errorf("unknown network %q (see `eventsim list-configs`)", cfg.Network))
		}

		seed := seedFlag
		if cfg.Seed != 0 {
			seed = cfg.Seed
		}
		eng := engine.NewEngine(seed)
		eng.AddObserver(engine.NewLoggingObserver())

		if err := builder(eng, cfg); err != nil {
			return err
		}

		limit := simTimeLimit
		if limit == 0 {
			limit = cfg.SimTimeLimit
		}
		if limit > 0 {
			eng.SetSimTimeLimit(engine.Time(limit))
		}
		if cpuTimeLimit > 0 {
			eng.SetCPUTimeLimit(time.Duration(cpuTimeLimit) * time.Millisecond)
		}

		if err := eng.Initialize(); err != nil {
			return err
		}
		reason := eng.Run()
		eng.Finalize()

		logrus.Infof("run stopped: %s (sim time: %s)", reason, eng.Now())
		if eng.Failed() {
			return eng.LastError()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
