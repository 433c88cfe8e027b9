package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"notireport/internal/config"
	"notireport/internal/infrastructure"
	"notireport/pkg/contracts"
)

// rootOptions holds the flags shared by every subcommand
type rootOptions struct {
	configFile string
	logLevel   string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Notification report generator",
		Long: `notireport turns notification spreadsheets (DTO and PCL sheets, or a
delimited export) into Excel reports with summary tables and charts.

Run "notireport variants" to list the available report layouts.`,
		Version:      contracts.Version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (default: notireport.yaml or configs/notireport.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(newGenerateCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newVariantsCmd(opts))
	return rootCmd
}

// load reads the configuration and builds a logger writing to console
func (o *rootOptions) load(console io.Writer) (*config.Config, *slog.Logger, error) {
	path := o.configFile
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "_CONFIG_FILE")
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	logger, err := infrastructure.NewLogger(cfg.Logging, console)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}
