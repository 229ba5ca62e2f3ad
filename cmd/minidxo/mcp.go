package main

import (
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/PabloGalante/minidxo/internal/adapters/mcp"
	"github.com/PabloGalante/minidxo/internal/observability"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the knowledge tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// stdout carries the protocol
		observability.InitWithWriter(os.Stderr, cfg.LogLevel)

		rt, err := buildPolicy(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		return mcpserver.ServeStdio(mcpserver.NewServer(rt.policy, version))
	},
}
