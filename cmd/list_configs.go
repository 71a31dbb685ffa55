package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var listConfigsCmd = &cobra.Command{
	Use:   "list-configs",
	Short: "List the registered network types `run` can build",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := listNetworkNames()
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listConfigsCmd)
}
