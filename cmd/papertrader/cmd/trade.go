package cmd

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/papertrader/ledger"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

var tradeCmd = &cobra.Command{
	Use:   "trade <buy|sell> <symbol|id> <qty>",
	Short: "Place a market order at the current price",
	Long: `Place a market order for an instrument, by id or symbol, at its last price.

Selling more than you hold opens a short position. Stop-loss and take-profit
levels are attached to the resulting position and replace any earlier ones.

Examples:
  papertrader trade buy RELIANCE 10 --sl 1200 --tp 1350
  papertrader trade sell SBIN 5 --exchange BSE --product MIS`,
	Args: cobra.ExactArgs(3),
	RunE: runTrade,
}

var exitCmd = &cobra.Command{
	Use:   "exit <symbol|id>",
	Short: "Close one open position at the current price",
	Args:  cobra.ExactArgs(1),
	RunE:  runExit,
}

var squareOffCmd = &cobra.Command{
	Use:   "squareoff",
	Short: "Close every open position at the current price",
	Args:  cobra.NoArgs,
	RunE:  runSquareOff,
}

var (
	tradeExchange string
	tradeProduct  string
	tradeSL       float64
	tradeTP       float64
	exitExchange  string
)

func init() {
	rootCmd.AddCommand(tradeCmd)
	rootCmd.AddCommand(exitCmd)
	rootCmd.AddCommand(squareOffCmd)

	tradeCmd.Flags().StringVarP(&tradeExchange, "exchange", "e", "NSE", "exchange when trading by symbol")
	tradeCmd.Flags().StringVarP(&tradeProduct, "product", "p", string(ledger.Delivery), "product type (CNC or MIS)")
	tradeCmd.Flags().Float64Var(&tradeSL, "sl", 0, "stop-loss price (0 for none)")
	tradeCmd.Flags().Float64Var(&tradeTP, "tp", 0, "take-profit price (0 for none)")

	exitCmd.Flags().StringVarP(&exitExchange, "exchange", "e", "NSE", "exchange when exiting by symbol")
}

func runTrade(cmd *cobra.Command, args []string) error {
	side := ledger.TransactionType(strings.ToUpper(args[0]))
	qty, err := cast.ToInt64E(args[2])
	if err != nil {
		return fmt.Errorf("quantity %q: %w", args[2], err)
	}

	session, closeJournal, err := openSession()
	if err != nil {
		return err
	}
	defer closeJournal()

	inst, err := resolveInstrument(session.Registry, args[1], tradeExchange)
	if err != nil {
		return err
	}
	in, err := session.Intent(inst.ID, side, qty, ledger.ProductType(strings.ToUpper(tradeProduct)), tradeSL, tradeTP)
	if err != nil {
		return err
	}
	st, err := session.Trade(in)
	if err != nil {
		return fmt.Errorf("order rejected: %w", err)
	}
	if err := session.Save(); err != nil {
		return err
	}

	o := st.Orders[0]
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ %s %d %s @ %.2f (%s)\n", o.TransactionType, o.Quantity, o.Symbol, o.Price, o.ProductType)
	if o.RealizedPnl != nil {
		fmt.Fprintf(out, "  Realized P&L: %.2f\n", *o.RealizedPnl)
	}
	fmt.Fprintf(out, "  Balance: %.2f\n", st.Wallet.Balance)
	return nil
}

func runExit(cmd *cobra.Command, args []string) error {
	session, closeJournal, err := openSession()
	if err != nil {
		return err
	}
	defer closeJournal()

	inst, err := resolveInstrument(session.Registry, args[0], exitExchange)
	if err != nil {
		return err
	}
	st, err := session.Engine.ExitPosition(inst.ID, session.Registry)
	if err != nil {
		return err
	}
	if err := session.Save(); err != nil {
		return err
	}

	o := st.Orders[0]
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Closed %s: %s %d @ %.2f, P&L %.2f\n",
		o.Symbol, o.TransactionType, o.Quantity, o.Price, pnl(o))
	return nil
}

func runSquareOff(cmd *cobra.Command, args []string) error {
	session, closeJournal, err := openSession()
	if err != nil {
		return err
	}
	defer closeJournal()

	open := len(session.Engine.Snapshot().Positions)
	st := session.Engine.SquareOff(session.Registry)
	if err := session.Save(); err != nil {
		return err
	}

	var realized float64
	for _, o := range st.Orders[:open] {
		realized += pnl(o)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Squared off %d positions, P&L %.2f, balance %.2f\n", open, realized, st.Wallet.Balance)
	return nil
}

func pnl(o ledger.Order) float64 {
	if o.RealizedPnl == nil {
		return 0
	}
	return *o.RealizedPnl
}
