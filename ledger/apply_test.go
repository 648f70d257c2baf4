package ledger

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 3, 9, 15, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func buy(instr string, qty int64, price float64) Intent {
	return Intent{
		InstrumentID:    instr,
		Symbol:          "SYM-" + instr,
		TransactionType: Buy,
		Quantity:        qty,
		Price:           price,
		ProductType:     Delivery,
		OrderType:       Market,
	}
}

func sell(instr string, qty int64, price float64) Intent {
	in := buy(instr, qty, price)
	in.TransactionType = Sell
	return in
}

// applyAll runs intents through Apply with sequential ids and timestamps.
func applyAll(st State, intents ...Intent) State {
	for i, in := range intents {
		st, _ = Apply(st, in, fmt.Sprintf("o%d", i), t0.Add(time.Duration(i)*time.Second))
	}
	return st
}

func TestApplyOpensPosition(t *testing.T) {
	t.Parallel()

	st, o := Apply(NewState(10000), buy("1", 10, 100), "o1", t0)

	require.Len(t, st.Positions, 1)
	p := st.Positions[0]
	assert.Equal(t, int64(10), p.Quantity)
	assert.Equal(t, 100.0, p.AvgPrice)
	assert.Equal(t, 9000.0, st.Wallet.Balance)
	assert.Equal(t, 10000.0, st.Wallet.InitialBalance)

	assert.Equal(t, "o1", o.ID)
	assert.Equal(t, Executed, o.Status)
	assert.Nil(t, o.RealizedPnl)
	assert.True(t, o.Timestamp.Equal(t0))
	assert.Equal(t, []Order{o}, st.Orders)
}

func TestApplyOpensShortOnSell(t *testing.T) {
	t.Parallel()

	st, o := Apply(NewState(1000), sell("1", 4, 50), "o1", t0)

	p, ok := st.Position("1")
	require.True(t, ok)
	assert.Equal(t, int64(-4), p.Quantity)
	assert.Equal(t, 50.0, p.AvgPrice)
	assert.Equal(t, 1200.0, st.Wallet.Balance)
	assert.Nil(t, o.RealizedPnl)
}

func TestApplyWeightedAverageCost(t *testing.T) {
	t.Parallel()

	st := applyAll(NewState(100000), buy("1", 10, 100), buy("1", 10, 120))

	p, ok := st.Position("1")
	require.True(t, ok)
	assert.Equal(t, int64(20), p.Quantity)
	assert.InDelta(t, 110, p.AvgPrice, 1e-9)
	assert.Nil(t, st.Orders[0].RealizedPnl)
}

func TestApplyShortAveraging(t *testing.T) {
	t.Parallel()

	st := applyAll(NewState(0), sell("1", 10, 100), sell("1", 30, 80))

	p, _ := st.Position("1")
	assert.Equal(t, int64(-40), p.Quantity)
	assert.InDelta(t, 85, p.AvgPrice, 1e-9)
}

func TestApplyPartialCloseKeepsAverage(t *testing.T) {
	t.Parallel()

	st := applyAll(NewState(10000), buy("1", 10, 100), sell("1", 4, 130))

	p, _ := st.Position("1")
	assert.Equal(t, int64(6), p.Quantity)
	assert.Equal(t, 100.0, p.AvgPrice)
	require.NotNil(t, st.Orders[0].RealizedPnl)
	assert.InDelta(t, 120, *st.Orders[0].RealizedPnl, 1e-9)
}

func TestApplyFullClose(t *testing.T) {
	t.Parallel()

	st := applyAll(NewState(10000), buy("1", 5, 200), sell("1", 5, 210))

	_, ok := st.Position("1")
	assert.False(t, ok)
	assert.Empty(t, st.Positions)
	require.NotNil(t, st.Orders[0].RealizedPnl)
	assert.InDelta(t, 50, *st.Orders[0].RealizedPnl, 1e-9)
	assert.InDelta(t, 10050, st.Wallet.Balance, 1e-9)
}

func TestApplyFlipLongToShort(t *testing.T) {
	t.Parallel()

	st := applyAll(NewState(10000), buy("1", 10, 100), sell("1", 15, 90))

	p, ok := st.Position("1")
	require.True(t, ok)
	assert.Equal(t, int64(-5), p.Quantity)
	assert.Equal(t, 90.0, p.AvgPrice)
	require.NotNil(t, st.Orders[0].RealizedPnl)
	assert.InDelta(t, -100, *st.Orders[0].RealizedPnl, 1e-9)
}

func TestApplyFlipShortToLong(t *testing.T) {
	t.Parallel()

	st := applyAll(NewState(10000), sell("1", 10, 100), buy("1", 12, 95))

	p, _ := st.Position("1")
	assert.Equal(t, int64(2), p.Quantity)
	assert.Equal(t, 95.0, p.AvgPrice)
	assert.InDelta(t, 50, *st.Orders[0].RealizedPnl, 1e-9)
}

func TestApplyTriggersOnlyReplacedWhenSupplied(t *testing.T) {
	t.Parallel()

	open := buy("1", 10, 100)
	open.StopLoss = f64(90)
	open.TakeProfit = f64(120)

	add := buy("1", 5, 101)
	add.StopLoss = f64(0)

	st := applyAll(NewState(10000), open, add)
	p, _ := st.Position("1")
	require.NotNil(t, p.StopLoss)
	require.NotNil(t, p.TakeProfit)
	assert.Equal(t, 90.0, *p.StopLoss)
	assert.Equal(t, 120.0, *p.TakeProfit)

	move := sell("1", 1, 102)
	move.StopLoss = f64(95)
	st = applyAll(st, move)
	p, _ = st.Position("1")
	assert.Equal(t, 95.0, *p.StopLoss)
	assert.Equal(t, 120.0, *p.TakeProfit)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := buy("1", 10, 100)
	in.StopLoss = f64(90)
	before := applyAll(NewState(10000), in)
	frozen := before.Clone()

	after := applyAll(before, sell("1", 10, 95), buy("2", 1, 1))

	assert.Equal(t, frozen, before)
	assert.NotEqual(t, before, after)
}

func TestApplyOrderLogNewestFirst(t *testing.T) {
	t.Parallel()

	st := applyAll(NewState(100000), buy("1", 1, 10), buy("2", 1, 20), sell("1", 1, 11))

	require.Len(t, st.Orders, 3)
	assert.Equal(t, "o2", st.Orders[0].ID)
	assert.Equal(t, "o1", st.Orders[1].ID)
	assert.Equal(t, "o0", st.Orders[2].ID)
}

func TestApplyDefaultsOrderTypeAndKeepsSymbol(t *testing.T) {
	t.Parallel()

	st := applyAll(NewState(1000), buy("1", 1, 10))
	in := sell("1", 1, 12)
	in.OrderType = ""
	in.Symbol = ""

	_, o := Apply(st, in, "x", t0)
	assert.Equal(t, Market, o.OrderType)
	assert.Equal(t, "SYM-1", o.Symbol)
}

// Random trade sequences against a few instruments must conserve cash and
// never leave zero or duplicate positions behind.
func TestApplyInvariantsRandomSequences(t *testing.T) {
	t.Parallel()

	rnd := rand.New(rand.NewSource(99))
	instruments := []string{"a", "b", "c"}

	for run := 0; run < 50; run++ {
		st := NewState(1_000_000)
		cash := st.Wallet.InitialBalance

		for i := 0; i < 100; i++ {
			instr := instruments[rnd.Intn(len(instruments))]
			qty := int64(rnd.Intn(20) + 1)
			price := float64(rnd.Intn(10000)+1) / 10

			in := buy(instr, qty, price)
			if rnd.Intn(2) == 0 {
				in.TransactionType = Sell
				cash += price * float64(qty)
			} else {
				cash -= price * float64(qty)
			}

			var net int64
			if p, ok := st.Position(instr); ok {
				net = p.Quantity
			}
			if in.TransactionType == Buy {
				net += qty
			} else {
				net -= qty
			}

			st, _ = Apply(st, in, fmt.Sprintf("%d-%d", run, i), t0)

			assert.InDelta(t, cash, st.Wallet.Balance, 1e-6)

			seen := map[string]bool{}
			for _, p := range st.Positions {
				assert.False(t, seen[p.InstrumentID], "duplicate position %s", p.InstrumentID)
				seen[p.InstrumentID] = true
				assert.NotZero(t, p.Quantity)
				assert.Greater(t, p.AvgPrice, 0.0)
			}

			p, ok := st.Position(instr)
			if net == 0 {
				assert.False(t, ok)
			} else {
				require.True(t, ok)
				assert.Equal(t, net, p.Quantity)
			}
		}
		assert.Len(t, st.Orders, 100)
	}
}
