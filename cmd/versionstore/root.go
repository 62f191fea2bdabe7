package main

import (
	"github.com/spf13/cobra"

	"github.com/nainya/versionstore/internal/config"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "versionstore",
	Short:         "Document branch and version tracking service",
	Long:          `versionstore keeps named branches of content history per document, with commit, merge, checkout and lock operations.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(demoCmd)
}

// loadConfig reads the config file and applies persistent flag overrides
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if f := cmd.Flag("log-level"); f != nil && f.Changed {
		cfg.Log.Level = logLevel
	}
	return cfg, cfg.Validate()
}
