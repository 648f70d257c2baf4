package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rustyeddy/papertrader/api"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a live paper-trading session",
	Long: `Run the saved session: prices take a random-walk step every tick, open
positions are checked against their stop-loss and take-profit levels, and the
session is saved after each tick.

When feed.url is set, prices are re-anchored to real quotes every
feed.sync_interval. With --serve (or server.enabled) the HTTP API and the
websocket stream run alongside.

Examples:
  papertrader run
  papertrader run --serve --duration 1h`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runServe    bool
	runDuration time.Duration
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runServe, "serve", false, "start the HTTP API (overrides server.enabled)")
	runCmd.Flags().DurationVar(&runDuration, "duration", 0, "stop after this long (0 runs until interrupted)")
}

func runRun(cmd *cobra.Command, args []string) error {
	session, closeJournal, err := openSession()
	if err != nil {
		return err
	}
	defer closeJournal()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runDuration)
		defer cancel()
	}

	if cfg.Feed.Enabled() {
		if _, _, err := session.Sync(ctx); err != nil {
			logger.WithError(err).Warn("initial sync failed, starting from saved prices")
		}
	}

	// A server that fails, e.g. on a busy port, stops the session too.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	if runServe || cfg.Server.Enabled {
		srv := api.NewServer(session, openCommentary(cfg.Feed), logger, cfg.Server.Addr)
		go func() {
			err := srv.Start(ctx)
			if err != nil {
				logger.WithError(err).Error("api server stopped")
				cancel()
			}
			errc <- err
		}()
	} else {
		close(errc)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Session %s: %d instruments, balance %.2f\n",
		cfg.State.Path, session.Registry.Len(), session.Engine.Snapshot().Wallet.Balance)

	runErr := session.Run(ctx, cfg.Market.TickInterval, cfg.Feed.SyncInterval)
	srvErr := <-errc
	if runErr != nil {
		return fmt.Errorf("run session: %w", runErr)
	}
	if srvErr != nil {
		return fmt.Errorf("api server: %w", srvErr)
	}

	sum := session.Engine.Summary(session.Registry)
	fmt.Fprintf(cmd.OutOrStdout(), "Stopped. Equity %.2f (realized %.2f, unrealized %.2f)\n",
		sum.Equity, sum.Realized, sum.Unrealized)
	return nil
}
