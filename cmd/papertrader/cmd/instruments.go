package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/rustyeddy/papertrader/market"
	"github.com/spf13/cobra"
)

var instrumentsCmd = &cobra.Command{
	Use:     "instruments",
	Aliases: []string{"watchlist"},
	Short:   "List the watchlist with last prices",
	Args:    cobra.NoArgs,
	RunE:    runInstruments,
}

var instrumentsAddCmd = &cobra.Command{
	Use:   "add <SYMBOL>",
	Short: "Add a symbol to the watchlist",
	Long: `Add a custom symbol to the watchlist. It starts at a random price and
moves with the rest of the market until a quote sync anchors it.

Example:
  papertrader instruments add WIPRO --exchange BSE`,
	Args: cobra.ExactArgs(1),
	RunE: runInstrumentsAdd,
}

var instrumentsExchange string

func init() {
	rootCmd.AddCommand(instrumentsCmd)
	instrumentsCmd.AddCommand(instrumentsAddCmd)

	instrumentsAddCmd.Flags().StringVarP(&instrumentsExchange, "exchange", "e", "NSE", "exchange (NSE or BSE)")
}

func runInstruments(cmd *cobra.Command, args []string) error {
	session, closeJournal, err := openSession()
	if err != nil {
		return err
	}
	defer closeJournal()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYMBOL\tEXCHANGE\tPRICE\tCHANGE\t%")
	for _, inst := range session.Registry.List() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%+.2f\t%+.2f\n",
			inst.ID, inst.Symbol, inst.Exchange, inst.Price, inst.Change, inst.ChangePercent)
	}
	return w.Flush()
}

func runInstrumentsAdd(cmd *cobra.Command, args []string) error {
	ex, err := market.ParseExchange(instrumentsExchange)
	if err != nil {
		return err
	}

	session, closeJournal, err := openSession()
	if err != nil {
		return err
	}
	defer closeJournal()

	inst, err := session.AddInstrument(args[0], ex)
	if err != nil {
		return err
	}
	if err := session.Save(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s on %s at %.2f (id %s)\n", inst.Symbol, inst.Exchange, inst.Price, inst.ID)
	return nil
}
