package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opscart/node-cost-optimizer/pkg/config"
	"github.com/opscart/node-cost-optimizer/pkg/logger"
)

var (
	// Global flags
	optimizerConfigPath   string
	electricityConfigPath string
	verbose               bool

	// Global config
	cfg *config.Config
	log *slog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cost-optimizer",
		Short: "Power, cost and consolidation analysis for server fleets",
		Long: `Estimate the electricity draw and monthly cost of a fleet of nodes and propose
which underutilized nodes could be powered down by moving their workloads.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVar(&optimizerConfigPath, "config", "", "Optimizer YAML (power profiles, scenarios, reporting)")
	rootCmd.PersistentFlags().StringVar(&electricityConfigPath, "electricity", "", "Electricity tariff YAML")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newCollectCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newSuggestCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newShowCmd())

	return rootCmd
}

func setup(cmd *cobra.Command, args []string) error {
	cfg = config.NewConfig()
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log = logger.Init(cfg.LogLevel, cfg.LogFormat)
	return nil
}

// loadOptimizerConfig reads --config, or returns the built-in defaults
func loadOptimizerConfig() (*config.OptimizerConfig, error) {
	if optimizerConfigPath == "" {
		return config.ParseOptimizerConfig(nil)
	}
	return config.LoadOptimizerConfig(optimizerConfigPath)
}

// loadElectricityConfig reads --electricity, or returns the default flat tariff
func loadElectricityConfig() (*config.ElectricityConfig, error) {
	if electricityConfigPath == "" {
		return config.ParseElectricityConfig(nil)
	}
	return config.LoadElectricityConfig(electricityConfigPath)
}

// openOutput returns stdout for "" or "-", otherwise creates the file
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
