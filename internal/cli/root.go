// Package cli wires the tradesim commands.
package cli

import (
	"fmt"
	"os"

	"github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootConfig carries the persistent flags and what PersistentPreRunE
// builds from them.
type RootConfig struct {
	ConfigPath  string
	LogLevel    string
	Development bool

	Config *config.Config
	Logger *zap.Logger
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:   "tradesim",
		Short: "Bar-by-bar trade replay simulator",
		Long: `tradesim replays historical price bars one at a time so you can practice
placing market and limit orders with take-profit and stop-loss levels.

It provides tools for:
  - Replaying a bar file against a scripted set of orders
  - Serving a replay session over HTTP and websocket
  - Computing SMA, EMA, RSI and MACD overlays
  - Sizing positions from a risk budget
  - Querying the trade journal`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	cmd.PersistentFlags().BoolVar(&rc.Development, "dev", false, "Human readable console logs")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return rc.setup()
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if rc.Logger != nil {
			_ = rc.Logger.Sync()
		}
	}

	cmd.AddCommand(
		newRunCmd(rc),
		newServeCmd(rc),
		newIndicatorsCmd(rc),
		newJournalCmd(rc),
		newRiskCmd(rc),
		newConfigCmd(rc),
		newVersionCmd(),
	)

	return cmd
}

func (rc *RootConfig) setup() error {
	cfg := config.Default()
	if rc.ConfigPath != "" {
		loaded, err := config.LoadFromFile(rc.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if rc.LogLevel != "" {
		cfg.Log.Level = rc.LogLevel
	}
	if rc.Development {
		cfg.Log.Development = true
	}
	rc.Config = cfg

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	rc.Logger = logger
	return nil
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
