package main

import (
	"github.com/aretw0/drip"
	"github.com/aretw0/drip/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play the script as a console chat",
	Long: `Starts the conversation in the terminal. Type to reply; /image, /audio and
/video send media, /pay selects a payment amount, /reset restarts, /quit leaves.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		fresh, _ := cmd.Flags().GetBool("fresh")
		headless, _ := cmd.Flags().GetBool("headless")
		return cli.Run(cli.RunOptions{
			Config:   cfg,
			Version:  drip.Version,
			Fresh:    fresh,
			Headless: headless,
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("fresh", false, "Discard the saved session before starting")
	runCmd.Flags().Bool("headless", false, "Plain output (no banner, colors or presence lines)")

	rootCmd.RunE = runCmd.RunE
}
