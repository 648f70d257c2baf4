package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/pkg/id"
	"github.com/sirupsen/logrus"
)

// Engine owns the book and serializes every change to it. Each call
// replaces the whole State under the lock, so readers never see a wallet
// that disagrees with the positions or the order log.
type Engine struct {
	mu       sync.Mutex
	state    State
	journal  journal.Journal
	log      *logrus.Logger
	now      func() time.Time
	listener ExitListener
}

// ExitListener is told about every automatic stop-loss/take-profit exit.
// It is called after the engine lock is released, so it may call back into
// the engine.
type ExitListener interface {
	OnPositionExited(order Order)
}

func NewEngine(st State, j journal.Journal, logger *logrus.Logger) *Engine {
	if j == nil {
		j = journal.Nop{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		state:   st.Clone(),
		journal: j,
		log:     logger,
		now:     time.Now,
	}
}

func (e *Engine) SetExitListener(l ExitListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

// SetClock replaces the time source used to stamp orders.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Snapshot returns a copy of the current book.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Restore replaces the book, e.g. with a saved session.
func (e *Engine) Restore(st State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = st.Clone()
}

// ApplyTrade books a validated intent and returns the new book.
func (e *Engine) ApplyTrade(in Intent) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.applyLocked(in)
	return e.state.Clone()
}

// ClearOrderLog empties the order history. Wallet and positions are kept.
func (e *Engine) ClearOrderLog() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.state.Orders)
	e.state.Orders = []Order{}
	e.log.WithField("orders", n).Info("order log cleared")
	return e.state.Clone()
}

// ResetWallet starts a new session with balance: positions and orders are
// dropped.
func (e *Engine) ResetWallet(balance float64) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = NewState(balance)
	e.log.WithField("balance", balance).Info("wallet reset")
	return e.state.Clone()
}

// ExitPosition closes the position in one instrument at its latest price.
func (e *Engine) ExitPosition(instrumentID string, prices PriceSource) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.state.Position(instrumentID)
	if !ok {
		return e.state.Clone(), fmt.Errorf("exit %q: %w", instrumentID, ErrNoPosition)
	}
	e.applyLocked(closingIntent(p, MarkPrice(p, prices), Delivery, ReasonExit))
	return e.state.Clone(), nil
}

// SquareOff closes every open position at its latest price.
func (e *Engine) SquareOff(prices PriceSource) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	open := make([]Position, len(e.state.Positions))
	copy(open, e.state.Positions)
	for _, p := range open {
		e.applyLocked(closingIntent(p, MarkPrice(p, prices), Delivery, ReasonSquareOff))
	}
	if len(open) > 0 {
		e.log.WithField("positions", len(open)).Info("square-off complete")
	}
	return e.state.Clone()
}

// CheckTriggers evaluates stop-loss and take-profit levels against prices
// and books the resulting exits, all in one update. It returns the exit
// orders in the order they were applied.
func (e *Engine) CheckTriggers(prices PriceSource) []Order {
	e.mu.Lock()

	var exits []Order
	for _, in := range EvaluateTriggers(e.state.Positions, prices) {
		o := e.applyLocked(in)
		e.log.WithFields(logrus.Fields{
			"symbol": o.Symbol,
			"price":  o.Price,
			"reason": o.Reason,
		}).Info("position auto-exited")
		exits = append(exits, o)
	}
	listener := e.listener

	e.mu.Unlock()

	if listener != nil {
		for _, o := range exits {
			listener.OnPositionExited(o)
		}
	}
	return exits
}

// Summary values the current book at prices.
func (e *Engine) Summary(prices PriceSource) Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Summarize(e.state, prices)
}

// RecordEquity writes an equity snapshot of the current book to the journal.
func (e *Engine) RecordEquity(prices PriceSource) error {
	e.mu.Lock()
	s := Summarize(e.state, prices)
	ts := e.now()
	e.mu.Unlock()

	return e.journal.RecordEquity(journal.EquitySnapshot{
		Time:       ts,
		Balance:    s.Balance,
		Invested:   s.Invested,
		Unrealized: s.Unrealized,
		Equity:     s.Equity,
	})
}

func (e *Engine) applyLocked(in Intent) Order {
	if in.Reason == "" {
		in.Reason = ReasonManual
	}
	ts := e.now()
	next, order := Apply(e.state, in, id.NewAt(ts), ts)
	e.state = next

	fields := logrus.Fields{
		"order_id": order.ID,
		"symbol":   order.Symbol,
		"side":     order.TransactionType,
		"qty":      order.Quantity,
		"price":    order.Price,
		"balance":  next.Wallet.Balance,
	}
	if order.RealizedPnl != nil {
		fields["realized_pnl"] = *order.RealizedPnl
	}
	e.log.WithFields(fields).Debug("order executed")

	if err := e.journal.RecordOrder(toRecord(order)); err != nil {
		e.log.WithError(err).WithField("order_id", order.ID).Warn("journal order")
	}
	return order
}

func toRecord(o Order) journal.OrderRecord {
	return journal.OrderRecord{
		OrderID:      o.ID,
		InstrumentID: o.InstrumentID,
		Symbol:       o.Symbol,
		Side:         string(o.TransactionType),
		OrderType:    string(o.OrderType),
		ProductType:  string(o.ProductType),
		Quantity:     o.Quantity,
		Price:        o.Price,
		RealizedPL:   o.RealizedPnl,
		Time:         o.Timestamp,
		Reason:       o.Reason,
	}
}
