package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/ledger"
	"github.com/spf13/cobra"
)

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Show open positions and the account summary",
	Args:  cobra.NoArgs,
	RunE:  runPositions,
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Show the order log, newest first",
	Long: `Show the executed-order log, newest first.

Examples:
  papertrader orders
  papertrader orders --by-day
  papertrader orders --clear`,
	Args: cobra.NoArgs,
	RunE: runOrders,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Start over with a fresh wallet",
	Long: `Discard every position and order and refill the wallet.

The balance defaults to account.balance.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Re-anchor prices to the quote feed once",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

var (
	ordersClear  bool
	ordersByDay  bool
	resetBalance float64
)

func init() {
	rootCmd.AddCommand(positionsCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(syncCmd)

	ordersCmd.Flags().BoolVar(&ordersClear, "clear", false, "clear the order log (positions and wallet are kept)")
	ordersCmd.Flags().BoolVar(&ordersByDay, "by-day", false, "group orders by calendar day")
	resetCmd.Flags().Float64Var(&resetBalance, "balance", 0, "starting balance (default account.balance)")
}

func runPositions(cmd *cobra.Command, args []string) error {
	session, closeJournal, err := openSession()
	if err != nil {
		return err
	}
	defer closeJournal()

	st := session.Engine.Snapshot()
	out := cmd.OutOrStdout()

	if len(st.Positions) == 0 {
		fmt.Fprintln(out, "No open positions")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSYMBOL\tQTY\tAVG\tLTP\tP&L\tSL\tTP")
		for _, p := range st.Positions {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\t%.2f\t%s\t%s\n",
				p.InstrumentID, p.Symbol, p.Quantity, p.AvgPrice,
				ledger.MarkPrice(p, session.Registry), ledger.PositionPnl(p, session.Registry),
				level(p.StopLoss), level(p.TakeProfit))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	sum := ledger.Summarize(st, session.Registry)
	fmt.Fprintf(out, "\nBalance %.2f  Invested %.2f  Unrealized %.2f  Realized %.2f  Equity %.2f\n",
		sum.Balance, sum.Invested, sum.Unrealized, sum.Realized, sum.Equity)
	return nil
}

func level(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func runOrders(cmd *cobra.Command, args []string) error {
	session, closeJournal, err := openSession()
	if err != nil {
		return err
	}
	defer closeJournal()

	out := cmd.OutOrStdout()
	if ordersClear {
		session.Engine.ClearOrderLog()
		if err := session.Save(); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ Order log cleared")
		return nil
	}

	orders := session.Engine.Snapshot().Orders
	if len(orders) == 0 {
		fmt.Fprintln(out, "No orders")
		return nil
	}

	if !ordersByDay {
		return printOrders(cmd, orders)
	}
	for _, day := range ledger.GroupOrdersByDay(orders, time.Local) {
		fmt.Fprintf(out, "%s (%d)\n", day.Day, len(day.Orders))
		if err := printOrders(cmd, day.Orders); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	return nil
}

func printOrders(cmd *cobra.Command, orders []ledger.Order) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSIDE\tSYMBOL\tQTY\tPRICE\tPRODUCT\tP&L\tREASON")
	for _, o := range orders {
		realized := "-"
		if o.RealizedPnl != nil {
			realized = fmt.Sprintf("%.2f", *o.RealizedPnl)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%s\t%s\t%s\n",
			o.Timestamp.Local().Format("2006-01-02 15:04:05"), o.TransactionType, o.Symbol,
			o.Quantity, o.Price, o.ProductType, realized, o.Reason)
	}
	return w.Flush()
}

func runReset(cmd *cobra.Command, args []string) error {
	balance := resetBalance
	if balance == 0 {
		balance = cfg.Account.Balance
	}
	if balance < 0 {
		return fmt.Errorf("balance must be positive, got %.2f", balance)
	}

	session, closeJournal, err := openSession()
	if err != nil {
		return err
	}
	defer closeJournal()

	st := session.Engine.ResetWallet(balance)
	if err := session.Save(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wallet reset to %.2f\n", st.Wallet.Balance)
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	if !cfg.Feed.Enabled() {
		return fmt.Errorf("no quote feed configured (set feed.url or %s_FEED_URL)", config.EnvPrefix)
	}

	session, closeJournal, err := openSession()
	if err != nil {
		return err
	}
	defer closeJournal()

	n, exits, err := session.Sync(cmd.Context())
	if err != nil {
		return err
	}
	if err := session.Save(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Updated %d instruments\n", n)
	for _, o := range exits {
		fmt.Fprintf(out, "  %s: %s %d %s @ %.2f, P&L %.2f\n", o.Reason, o.TransactionType, o.Quantity, o.Symbol, o.Price, pnl(o))
	}
	return nil
}
