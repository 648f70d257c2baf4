package ledger

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testJournal struct {
	mu     sync.Mutex
	orders []journal.OrderRecord
	equity []journal.EquitySnapshot
	err    error
}

func (j *testJournal) RecordOrder(rec journal.OrderRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.orders = append(j.orders, rec)
	return j.err
}

func (j *testJournal) RecordEquity(rec journal.EquitySnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.equity = append(j.equity, rec)
	return j.err
}

func (j *testJournal) Close() error { return nil }

type recordingListener struct {
	e     *Engine
	exits []Order
	seen  []State
}

func (l *recordingListener) OnPositionExited(o Order) {
	l.exits = append(l.exits, o)
	// Calling back into the engine must not deadlock.
	l.seen = append(l.seen, l.e.Snapshot())
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newEngine(t *testing.T, balance float64) (*Engine, *testJournal) {
	t.Helper()
	j := &testJournal{}
	e := NewEngine(NewState(balance), j, quietLogger())
	e.SetClock(func() time.Time { return t0 })
	return e, j
}

func TestEngineApplyTradeJournalsOrder(t *testing.T) {
	e, j := newEngine(t, 10000)

	in := buy("1", 10, 100)
	st := e.ApplyTrade(in)

	require.Len(t, st.Orders, 1)
	o := st.Orders[0]
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, ReasonManual, o.Reason)
	assert.True(t, o.Timestamp.Equal(t0))

	require.Len(t, j.orders, 1)
	rec := j.orders[0]
	assert.Equal(t, o.ID, rec.OrderID)
	assert.Equal(t, "BUY", rec.Side)
	assert.Equal(t, "CNC", rec.ProductType)
	assert.Equal(t, int64(10), rec.Quantity)
	assert.Nil(t, rec.RealizedPL)
	assert.Equal(t, ReasonManual, rec.Reason)
}

func TestEngineJournalErrorDoesNotBlockTrade(t *testing.T) {
	e, j := newEngine(t, 10000)
	j.err = errors.New("disk full")

	st := e.ApplyTrade(buy("1", 1, 10))
	assert.Len(t, st.Positions, 1)
	assert.Equal(t, 9990.0, st.Wallet.Balance)
}

func TestEngineSnapshotIsACopy(t *testing.T) {
	e, _ := newEngine(t, 10000)
	e.ApplyTrade(buy("1", 1, 10))

	snap := e.Snapshot()
	snap.Positions[0].Quantity = 999
	snap.Wallet.Balance = 0

	again := e.Snapshot()
	assert.Equal(t, int64(1), again.Positions[0].Quantity)
	assert.Equal(t, 9990.0, again.Wallet.Balance)
}

func TestEngineOrderIDsUnique(t *testing.T) {
	e, _ := newEngine(t, 1_000_000)
	for i := 0; i < 50; i++ {
		e.ApplyTrade(buy("1", 1, 10))
	}

	ids := map[string]bool{}
	for _, o := range e.Snapshot().Orders {
		assert.False(t, ids[o.ID])
		ids[o.ID] = true
	}
	assert.Len(t, ids, 50)
}

func TestEngineClearOrderLog(t *testing.T) {
	e, _ := newEngine(t, 10000)
	e.ApplyTrade(buy("1", 10, 100))
	e.ApplyTrade(buy("2", 5, 50))

	st := e.ClearOrderLog()
	assert.Empty(t, st.Orders)
	assert.NotNil(t, st.Orders)
	assert.Len(t, st.Positions, 2)
	assert.Equal(t, 8750.0, st.Wallet.Balance)
}

func TestEngineResetWallet(t *testing.T) {
	e, _ := newEngine(t, 10000)
	e.ApplyTrade(buy("1", 10, 100))

	st := e.ResetWallet(500)
	assert.Equal(t, Wallet{Balance: 500, InitialBalance: 500}, st.Wallet)
	assert.Empty(t, st.Positions)
	assert.Empty(t, st.Orders)
}

func TestEngineExitPosition(t *testing.T) {
	e, _ := newEngine(t, 10000)
	e.ApplyTrade(sell("1", 5, 100))

	st, err := e.ExitPosition("1", PriceMap{"1": 90})
	require.NoError(t, err)

	assert.Empty(t, st.Positions)
	o := st.Orders[0]
	assert.Equal(t, Buy, o.TransactionType)
	assert.Equal(t, int64(5), o.Quantity)
	assert.Equal(t, 90.0, o.Price)
	assert.Equal(t, Delivery, o.ProductType)
	assert.Equal(t, Market, o.OrderType)
	assert.Equal(t, ReasonExit, o.Reason)
	require.NotNil(t, o.RealizedPnl)
	assert.InDelta(t, 50, *o.RealizedPnl, 1e-9)
	assert.InDelta(t, 10050, st.Wallet.Balance, 1e-9)
}

func TestEngineExitPositionWithoutQuoteUsesEntry(t *testing.T) {
	e, _ := newEngine(t, 10000)
	e.ApplyTrade(buy("1", 5, 100))

	st, err := e.ExitPosition("1", PriceMap{})
	require.NoError(t, err)
	assert.Equal(t, 100.0, st.Orders[0].Price)
	assert.InDelta(t, 0, *st.Orders[0].RealizedPnl, 1e-9)
	assert.Equal(t, 10000.0, st.Wallet.Balance)
}

func TestEngineExitPositionUnknown(t *testing.T) {
	e, j := newEngine(t, 10000)

	st, err := e.ExitPosition("nope", PriceMap{})
	assert.True(t, errors.Is(err, ErrNoPosition))
	assert.Empty(t, st.Orders)
	assert.Empty(t, j.orders)
}

func TestEngineSquareOff(t *testing.T) {
	e, j := newEngine(t, 100000)
	e.ApplyTrade(buy("1", 10, 100))
	e.ApplyTrade(sell("2", 4, 200))
	e.ApplyTrade(buy("3", 1, 50))

	st := e.SquareOff(PriceMap{"1": 110, "2": 190})

	assert.Empty(t, st.Positions)
	require.Len(t, st.Orders, 6)
	for _, o := range st.Orders[:3] {
		assert.Equal(t, ReasonSquareOff, o.Reason)
		require.NotNil(t, o.RealizedPnl)
	}
	assert.InDelta(t, 100+40+0, RealizedPnl(st.Orders), 1e-9)
	assert.InDelta(t, 100140, st.Wallet.Balance, 1e-9)
	assert.Len(t, j.orders, 6)

	// Nothing open: no orders.
	st = e.SquareOff(PriceMap{})
	assert.Len(t, st.Orders, 6)
}

func TestEngineCheckTriggersTakeProfit(t *testing.T) {
	e, _ := newEngine(t, 10000)
	in := buy("1", 10, 100)
	in.TakeProfit = f64(110)
	e.ApplyTrade(in)

	l := &recordingListener{e: e}
	e.SetExitListener(l)

	exits := e.CheckTriggers(PriceMap{"1": 110.5})
	require.Len(t, exits, 1)
	o := exits[0]
	assert.Equal(t, Sell, o.TransactionType)
	assert.Equal(t, int64(10), o.Quantity)
	assert.Equal(t, 110.5, o.Price)
	assert.Equal(t, Intraday, o.ProductType)
	assert.Equal(t, ReasonTakeProfit, o.Reason)

	st := e.Snapshot()
	assert.Empty(t, st.Positions)
	assert.InDelta(t, 9000+1105, st.Wallet.Balance, 1e-9)

	require.Len(t, l.exits, 1)
	assert.Equal(t, o.ID, l.exits[0].ID)
	require.Len(t, l.seen, 1)
	assert.Empty(t, l.seen[0].Positions)

	// Already flat: a second check does nothing.
	assert.Empty(t, e.CheckTriggers(PriceMap{"1": 120}))
	assert.Len(t, l.exits, 1)
}

func TestEngineCheckTriggersShortStopLoss(t *testing.T) {
	e, _ := newEngine(t, 10000)
	in := sell("1", 3, 100)
	in.StopLoss = f64(105)
	in.TakeProfit = f64(90)
	e.ApplyTrade(in)

	assert.Empty(t, e.CheckTriggers(PriceMap{"1": 104.99}))

	exits := e.CheckTriggers(PriceMap{"1": 105})
	require.Len(t, exits, 1)
	assert.Equal(t, Buy, exits[0].TransactionType)
	assert.Equal(t, ReasonStopLoss, exits[0].Reason)
	assert.InDelta(t, -15, *exits[0].RealizedPnl, 1e-9)
}

func TestEngineCheckTriggersSkipsMissingQuotes(t *testing.T) {
	e, _ := newEngine(t, 10000)
	a := buy("1", 1, 100)
	a.StopLoss = f64(95)
	b := buy("2", 1, 100)
	b.StopLoss = f64(95)
	e.ApplyTrade(a)
	e.ApplyTrade(b)

	exits := e.CheckTriggers(PriceMap{"2": 90})
	require.Len(t, exits, 1)
	assert.Equal(t, "2", exits[0].InstrumentID)

	st := e.Snapshot()
	require.Len(t, st.Positions, 1)
	assert.Equal(t, "1", st.Positions[0].InstrumentID)

	assert.Empty(t, e.CheckTriggers(nil))
}

func TestEngineSummaryAndEquity(t *testing.T) {
	e, j := newEngine(t, 10000)
	e.ApplyTrade(buy("1", 10, 100))
	e.ApplyTrade(sell("1", 5, 120))

	prices := PriceMap{"1": 130}
	s := e.Summary(prices)
	assert.InDelta(t, 9600, s.Balance, 1e-9)
	assert.InDelta(t, 400, s.Invested, 1e-9)
	assert.InDelta(t, 150, s.Unrealized, 1e-9)
	assert.InDelta(t, 100, s.Realized, 1e-9)
	assert.InDelta(t, 9750, s.Equity, 1e-9)
	assert.Equal(t, 1, s.OpenPositions)

	require.NoError(t, e.RecordEquity(prices))
	require.Len(t, j.equity, 1)
	assert.InDelta(t, 9750, j.equity[0].Equity, 1e-9)
	assert.True(t, j.equity[0].Time.Equal(t0))
}

func TestEngineRestore(t *testing.T) {
	e, _ := newEngine(t, 10000)

	saved := applyAll(NewState(5000), buy("9", 2, 10))
	e.Restore(saved)
	saved.Positions[0].Quantity = 100

	st := e.Snapshot()
	assert.Equal(t, 4980.0, st.Wallet.Balance)
	assert.Equal(t, int64(2), st.Positions[0].Quantity)
}

func TestEngineConcurrentTrades(t *testing.T) {
	e, _ := newEngine(t, 1_000_000)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				e.ApplyTrade(buy("1", 1, 100))
			} else {
				e.ApplyTrade(sell("1", 1, 100))
			}
			e.CheckTriggers(PriceMap{"1": 100})
			e.Snapshot()
		}(i)
	}
	wg.Wait()

	st := e.Snapshot()
	assert.Len(t, st.Orders, 20)
	assert.Empty(t, st.Positions)
	assert.InDelta(t, 1_000_000, st.Wallet.Balance, 1e-6)
}
