package main

import (
	"github.com/aretw0/drip/internal/cli"
	"github.com/spf13/cobra"
)

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Work with scripts",
}

var scriptShowCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Print a script as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := scriptPath(cmd, args)
		if err != nil {
			return err
		}
		return cli.ShowScript(cmd.Context(), path, cmd.OutOrStdout())
	},
}

var scriptValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check that a script loads",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := scriptPath(cmd, args)
		if err != nil {
			return err
		}
		return cli.ValidateScript(cmd.Context(), path, cmd.OutOrStdout())
	},
}

var scriptGraphCmd = &cobra.Command{
	Use:   "graph [path]",
	Short: "Print a script as a Mermaid flowchart",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path := cfg.Script.Path
		if len(args) > 0 {
			path = args[0]
		}
		withSession, _ := cmd.Flags().GetBool("session")
		return cli.GraphScript(cmd.Context(), cfg, path, cmd.OutOrStdout(), withSession)
	},
}

func scriptPath(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.Script.Path, nil
}

func init() {
	rootCmd.AddCommand(scriptCmd)
	scriptCmd.AddCommand(scriptShowCmd)
	scriptCmd.AddCommand(scriptValidateCmd)
	scriptCmd.AddCommand(scriptGraphCmd)

	scriptGraphCmd.Flags().Bool("session", false, "Highlight the persisted session position")
}
