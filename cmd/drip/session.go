package main

import (
	"fmt"

	"github.com/aretw0/drip/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or reset the persisted session",
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the saved step and transcript",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		return cli.Inspect(cmd.Context(), cfg, cmd.OutOrStdout(), asJSON)
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cli.ResetStore(cmd.Context(), cfg); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Session cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionResetCmd)

	sessionInspectCmd.Flags().Bool("json", false, "Output JSON")
}
