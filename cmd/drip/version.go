package main

import (
	"fmt"

	"github.com/aretw0/drip"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of drip",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "drip version %s\n", drip.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
