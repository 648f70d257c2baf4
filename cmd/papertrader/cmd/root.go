package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "papertrader",
	Short: "A paper-trading ledger for NSE/BSE equities",
	Long: `Papertrader keeps a simulated trading account: a wallet, net positions per
instrument and a log of executed orders.

It provides tools for:
  - Placing market orders with optional stop-loss and take-profit levels
  - Running a live session with simulated prices and automatic exits
  - Re-anchoring prices to an external quote feed
  - Serving the session over HTTP and a websocket stream
  - Querying the order and equity journal`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

var (
	cfgFile   string
	statePath string
	logLevel  string
	envFile   string

	cfg       *config.Config
	logger    *logrus.Logger
	logCloser io.Closer
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "session file (overrides state.path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides logging.level)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
}

func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if statePath != "" {
		c.State.Path = statePath
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	cfg = c

	logger, logCloser = logging.New(cfg.Logging)
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}
