package main

import (
	"fmt"
	"os"

	"github.com/aretw0/drip/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "drip",
	Short: "drip plays scripted chat conversations",
	Long: `drip walks a fixed script of bot messages, simulating typing and
recording delays, pausing for the lead's replies and requiring proof of
receipt at the checkpoint. Progress is persisted so sessions resume.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration for cmd, with its flags taking precedence.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	file, _ := cmd.Flags().GetString("config")
	return config.Load(v, file)
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default ./drip.yaml if present)")
	flags.String("script-path", "", "Script file (YAML/JSON) or markdown directory; empty plays the built-in script")
	flags.String("store-backend", config.BackendFile, "Session store: memory, file, redis or sqlite")
	flags.String("store-path", ".drip/session", "Directory (file) or database path (sqlite)")
	flags.String("redis-addr", "localhost:6379", "Redis address")
	flags.Float64("timing-scale", 1, "Delay multiplier: 1 is real time, 0 is instant")
	flags.Bool("debug", false, "Enable debug logging on stderr")
}
