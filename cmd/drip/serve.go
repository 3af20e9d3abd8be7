package main

import (
	"github.com/aretw0/drip"
	"github.com/aretw0/drip/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the session over HTTP",
	Long:  `Serves /status, /transcript, /script, /events, /metrics and the POST endpoints /reply, /payment and /reset.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return cli.Serve(cfg)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the session as MCP tools",
	Long:  `Starts a Model Context Protocol server on stdio (or SSE with --port) so an agent can play the lead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetInt("port")
		return cli.ServeMCP(cfg, drip.Version, port)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)

	serveCmd.Flags().Int("http-port", 8080, "HTTP port")
	mcpCmd.Flags().Int("port", 0, "Serve over SSE on this port instead of stdio")
}
