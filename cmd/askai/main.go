package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/whitelabel-ai/askai-service/pkg/config"
)

var (
	// Version information (set via ldflags)
	Version = "dev"

	configFile string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "askai",
		Short: "n8n AI assistant backend",
		Long: `askai serves the n8n editor's AI assistant: chat with documentation,
forum and template search, one-shot code generation and code suggestions
that can be applied back into a workflow node.

Quick Start:
  askai serve                         # Start the HTTP API
  askai token --license <cert>        # Mint an access token locally
  askai chat --license <cert>         # Chat with a running server`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", os.Getenv("CONFIG_FILE"), "YAML configuration file")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(newServeCmd(), newTokenCmd(), newChatCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the --config file, if any, with environment overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds a production JSON logger at level
func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg.Level = lvl
	return zcfg.Build()
}
