package cmd

import (
	"bytes"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/feed"
	"github.com/rustyeddy/papertrader/pkg/id"
	"github.com/rustyeddy/papertrader/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI in a scratch directory with every flag back at its
// default, since cobra keeps flag values between runs.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func scratch(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return filepath.Join(dir, "session.json")
}

func TestVersion(t *testing.T) {
	scratch(t)

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "papertrader version "+version)
}

func TestTradeLifecycle(t *testing.T) {
	state := scratch(t)

	out, err := execute(t, "--state", state, "trade", "buy", "reliance", "10", "--sl", "1200", "--tp", "1350")
	require.NoError(t, err)
	assert.Contains(t, out, "BUY 10 RELIANCE @ 1268.45 (CNC)")

	doc, err := store.NewFileStore(state).Load()
	require.NoError(t, err)
	require.Len(t, doc.Positions, 1)
	assert.Equal(t, "1", doc.Positions[0].InstrumentID)
	assert.InDelta(t, 1_000_000-12684.5, doc.Wallet.Balance, 1e-6)

	out, err = execute(t, "--state", state, "positions")
	require.NoError(t, err)
	assert.Contains(t, out, "RELIANCE")
	assert.Contains(t, out, "1200.00")
	assert.Contains(t, out, "Equity")

	// By id on BSE, as a short.
	out, err = execute(t, "--state", state, "trade", "sell", "bse-sbi", "4", "--product", "mis")
	require.NoError(t, err)
	assert.Contains(t, out, "SELL 4 SBIN")
	assert.Contains(t, out, "(MIS)")

	out, err = execute(t, "--state", state, "exit", "RELIANCE")
	require.NoError(t, err)
	assert.Contains(t, out, "Closed RELIANCE: SELL 10 @ 1268.45, P&L 0.00")

	out, err = execute(t, "--state", state, "orders", "--by-day")
	require.NoError(t, err)
	assert.Contains(t, out, "(3)")
	assert.Contains(t, out, "exit")

	out, err = execute(t, "--state", state, "squareoff")
	require.NoError(t, err)
	assert.Contains(t, out, "Squared off 1 positions")

	out, err = execute(t, "--state", state, "orders", "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Order log cleared")

	out, err = execute(t, "--state", state, "orders")
	require.NoError(t, err)
	assert.Contains(t, out, "No orders")

	out, err = execute(t, "--state", state, "reset", "--balance", "5000")
	require.NoError(t, err)
	assert.Contains(t, out, "Wallet reset to 5000.00")

	doc, err = store.NewFileStore(state).Load()
	require.NoError(t, err)
	assert.Equal(t, 5000.0, doc.Wallet.InitialBalance)
	assert.Empty(t, doc.Positions)
}

func TestTradeRejects(t *testing.T) {
	state := scratch(t)
	t.Setenv("PAPER_ACCOUNT_BALANCE", "1000")

	tests := []struct {
		name string
		args []string
	}{
		{"bad quantity", []string{"trade", "buy", "TCS", "ten"}},
		{"zero quantity", []string{"trade", "buy", "TCS", "0"}},
		{"bad side", []string{"trade", "hold", "TCS", "1"}},
		{"unknown symbol", []string{"trade", "buy", "NOPE", "1"}},
		{"bad exchange", []string{"trade", "buy", "TCS", "1", "--exchange", "NYSE"}},
		{"insufficient funds", []string{"trade", "buy", "TCS", "1"}},
		{"no position", []string{"exit", "TCS"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"--state", state}, tt.args...)...)
			assert.Error(t, err)
		})
	}

	_, err := os.Stat(state)
	assert.True(t, os.IsNotExist(err), "rejected trades must not save")
}

func TestInstruments(t *testing.T) {
	state := scratch(t)

	out, err := execute(t, "--state", state, "instruments", "add", "wipro", "--exchange", "bse")
	require.NoError(t, err)
	assert.Contains(t, out, "Added WIPRO on BSE")

	_, err = execute(t, "--state", state, "instruments", "add", "WIPRO", "--exchange", "BSE")
	assert.Error(t, err)

	out, err = execute(t, "--state", state, "instruments")
	require.NoError(t, err)
	assert.Contains(t, out, "WIPRO")
	assert.Contains(t, out, "LICI")
}

func TestSync(t *testing.T) {
	state := scratch(t)

	_, err := execute(t, "--state", state, "sync")
	assert.ErrorContains(t, err, "PAPER_FEED_URL")

	quotes := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("RELIANCE: 1,300.00\nTCS: 4000\n"))
	}))
	defer quotes.Close()
	t.Setenv("PAPER_FEED_URL", quotes.URL)
	t.Setenv("PAPER_FEED_MIN_INTERVAL", "0s")

	_, err = execute(t, "--state", state, "trade", "buy", "TCS", "2", "--tp", "3950")
	require.NoError(t, err)

	out, err := execute(t, "--state", state, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated 3 instruments")
	assert.Contains(t, out, "take_profit: SELL 2 TCS @ 4000.00")

	doc, err := store.NewFileStore(state).Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Positions)
	for _, inst := range doc.Watchlist {
		if inst.Symbol == "RELIANCE" {
			assert.Equal(t, 1300.0, inst.Price)
		}
	}
}

func TestJournalCommands(t *testing.T) {
	state := scratch(t)
	t.Setenv("PAPER_JOURNAL_TYPE", "sqlite")
	t.Setenv("PAPER_JOURNAL_DB_PATH", "journal.db")

	_, err := execute(t, "--state", state, "trade", "buy", "ITC", "100")
	require.NoError(t, err)
	_, err = execute(t, "--state", state, "trade", "sell", "ITC", "40")
	require.NoError(t, err)

	out, err := execute(t, "journal", "today")
	require.NoError(t, err)
	assert.Contains(t, out, "2 orders")
	assert.Contains(t, out, ":SYMBOL: ITC")

	doc, err := store.NewFileStore(state).Load()
	require.NoError(t, err)
	require.Len(t, doc.Orders, 2)

	out, err = execute(t, "journal", "order", doc.Orders[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, ":ORDER_ID: "+doc.Orders[0].ID)
	assert.Contains(t, out, ":SIDE: SELL")
	minted, err := id.Time(doc.Orders[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Id minted "+minted.Local().Format(time.RFC3339))

	_, err = execute(t, "journal", "order", "missing")
	assert.Error(t, err)

	_, err = execute(t, "journal", "day", "15-01-2025")
	assert.Error(t, err)

	out, err = execute(t, "journal", "day", "2001-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "0 orders")
}

func TestCSVJournalSurvivesCommands(t *testing.T) {
	state := scratch(t)
	t.Setenv("PAPER_JOURNAL_TYPE", "csv")

	_, err := execute(t, "--state", state, "trade", "buy", "ITC", "10")
	require.NoError(t, err)
	_, err = execute(t, "--state", state, "positions")
	require.NoError(t, err)
	_, err = execute(t, "--state", state, "trade", "sell", "ITC", "10")
	require.NoError(t, err)
	_, err = execute(t, "--state", state, "orders")
	require.NoError(t, err)

	data, err := os.ReadFile("orders.csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "order_id,"))
	assert.Contains(t, lines[1], ",BUY,")
	assert.Contains(t, lines[2], ",SELL,")
}

func TestConfigCommands(t *testing.T) {
	scratch(t)

	out, err := execute(t, "config", "init", "-o", "paper.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration: paper.yaml")

	out, err = execute(t, "config", "validate", "-f", "paper.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "Journal: none")

	require.NoError(t, os.WriteFile("bad.yaml", []byte("account:\n  balance: -1\n"), 0o644))
	_, err = execute(t, "config", "validate", "-f", "bad.yaml")
	assert.ErrorContains(t, err, "validation failed")
}

func TestRunStopsAfterDuration(t *testing.T) {
	state := scratch(t)
	t.Setenv("PAPER_MARKET_TICK_INTERVAL", "10ms")

	out, err := execute(t, "--state", state, "run", "--duration", "60ms")
	require.NoError(t, err)
	assert.Contains(t, out, "Stopped.")

	_, err = os.Stat(state)
	assert.NoError(t, err)
}

func TestRunStopsWhenServerFails(t *testing.T) {
	state := scratch(t)

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	t.Setenv("PAPER_MARKET_TICK_INTERVAL", "10ms")
	t.Setenv("PAPER_SERVER_ADDR", busy.Addr().String())

	start := time.Now()
	_, err = execute(t, "--state", state, "run", "--serve", "--duration", "10s")
	assert.ErrorContains(t, err, "api server")
	assert.Less(t, time.Since(start), 5*time.Second)

	_, err = os.Stat(state)
	assert.NoError(t, err, "session is saved on the way out")
}

func TestOpenCommentary(t *testing.T) {
	c := openCommentary(config.FeedConfig{})
	assert.Equal(t, feed.Static{Headlines: feed.FallbackHeadlines}, c)

	c = openCommentary(config.FeedConfig{CommentaryURL: "https://ai.example.com", Timeout: time.Second})
	assert.IsType(t, &feed.HTTPCommentary{}, c)
}
