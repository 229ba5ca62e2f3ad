package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/minidxo/internal/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "minidxo",
	Short: "Symptom triage assistant with a trusted-first knowledge policy",
	Long: `MiniDxO answers symptom questions using a trusted medical knowledge base
first, falling back to web search, with an optional consensus panel that
debates the diagnosis before it is returned.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path != "" {
			return os.Setenv("MINIDXO_CONFIG", path)
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML config file (overrides MINIDXO_CONFIG)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
