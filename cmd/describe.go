package cmd

import (
	"fmt"

	"github.com/eventsim/eventsim/engine"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <module-type>",
	Short: "Print a registered module type's gates, parameters, and init-stage count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, ok := moduleTypeRegistry[args[0]]
		if !ok {
			return engine.NewConfigError("describe", fmt.Errorf("unknown module type %q", args[0]))
		}
		fmt.Printf("%s (%s)\n", info.Name, info.Style)
		fmt.Println("gates:")
		for _, g := range info.Gates {
			vec := ""
			if g.Vector {
				vec = "[]"
			}
			fmt.Printf("  %s%s %s\n", g.Name, vec, g.Direction)
		}
		fmt.Println("params:")
		for _, p := range info.Params {
			fmt.Printf("  %s\n", p)
		}
		fmt.Printf("init stages: %d\n", info.InitStages)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
