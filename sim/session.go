// Package sim drives a paper-trading session: it moves simulated prices,
// re-anchors them to real quotes, fires stop-loss/take-profit exits and saves
// the session between runs.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rustyeddy/papertrader/feed"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/store"
	"github.com/sirupsen/logrus"
)

// Options configures a Session. Only Balance is needed for a fresh session;
// nil collaborators are simply not used.
type Options struct {
	Balance    float64
	Volatility float64
	Seed       int64
	Feed       feed.PriceFeed
	Store      *store.FileStore
	Journal    journal.Journal
	Logger     *logrus.Logger
}

// Session owns the instrument registry and the ledger engine for one
// paper-trading account.
type Session struct {
	Registry *market.Registry
	Engine   *ledger.Engine

	feed       feed.PriceFeed
	store      *store.FileStore
	log        *logrus.Logger
	volatility float64

	mu       sync.Mutex // guards rnd and holdings
	rnd      *rand.Rand
	holdings []ledger.Position
}

// New builds a session from a saved document.
func New(doc store.Document, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	vol := opts.Volatility
	if vol <= 0 {
		vol = market.DefaultVolatility
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Session{
		Registry:   market.NewRegistry(doc.Watchlist...),
		Engine:     ledger.NewEngine(doc.State(), opts.Journal, logger),
		feed:       opts.Feed,
		store:      opts.Store,
		log:        logger,
		volatility: vol,
		rnd:        rand.New(rand.NewSource(seed)),
		holdings:   append([]ledger.Position{}, doc.Holdings...),
	}
}

// Open loads the saved session from opts.Store, or starts a fresh one with
// opts.Balance and the default watchlist when nothing has been saved yet.
func Open(opts Options) (*Session, error) {
	if opts.Store == nil {
		return New(store.NewDocument(opts.Balance, market.DefaultInstruments()), opts), nil
	}

	doc, err := opts.Store.Load()
	switch {
	case errors.Is(err, store.ErrNotFound):
		doc = store.NewDocument(opts.Balance, market.DefaultInstruments())
		if opts.Logger != nil {
			opts.Logger.WithField("path", opts.Store.Path).Info("starting new session")
		}
	case err != nil:
		return nil, fmt.Errorf("open session: %w", err)
	}
	return New(doc, opts), nil
}

// Step advances every simulated price by one tick, books any stop-loss or
// take-profit exits at the new prices and journals an equity snapshot.
func (s *Session) Step() []ledger.Order {
	s.mu.Lock()
	s.Registry.TickAll(s.volatility, s.rnd)
	s.mu.Unlock()

	exits := s.Engine.CheckTriggers(s.Registry)
	if err := s.Engine.RecordEquity(s.Registry); err != nil {
		s.log.WithError(err).Warn("journal equity")
	}
	return exits
}

// Sync re-anchors prices to the external feed and then checks triggers.
// A failed fetch leaves every price as it was; the error is logged and
// returned.
func (s *Session) Sync(ctx context.Context) (int, []ledger.Order, error) {
	if s.feed == nil {
		return 0, nil, nil
	}

	symbols := s.Registry.Symbols()
	quotes, err := s.feed.FetchPrices(ctx, symbols)
	if err != nil {
		s.log.WithError(err).WithField("symbols", len(symbols)).Warn("price sync failed, keeping simulated prices")
		return 0, nil, fmt.Errorf("sync prices: %w", err)
	}

	n := s.Registry.ApplyQuotes(quotes)
	s.log.WithFields(logrus.Fields{"quotes": len(quotes), "updated": n}).Info("prices synced")

	return n, s.Engine.CheckTriggers(s.Registry), nil
}

// Run ticks every interval and syncs with the feed every syncEvery (zero
// disables syncing) until ctx is done. The session is saved after every tick
// and once more on the way out.
func (s *Session) Run(ctx context.Context, interval, syncEvery time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var syncC <-chan time.Time
	if syncEvery > 0 && s.feed != nil {
		st := time.NewTicker(syncEvery)
		defer st.Stop()
		syncC = st.C
	}

	s.log.WithFields(logrus.Fields{
		"interval":    interval,
		"instruments": s.Registry.Len(),
	}).Info("session started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("session stopping")
			return s.Save()
		case <-ticker.C:
			s.Step()
			if err := s.Save(); err != nil {
				s.log.WithError(err).Error("save session")
			}
		case <-syncC:
			_, _, _ = s.Sync(ctx)
		}
	}
}

// Document captures the whole session for saving.
func (s *Session) Document() store.Document {
	s.mu.Lock()
	holdings := append([]ledger.Position{}, s.holdings...)
	s.mu.Unlock()

	doc := store.Document{Holdings: holdings}
	return doc.WithState(s.Engine.Snapshot(), s.Registry.List())
}

// Save writes the session to its store. Sessions without a store are not
// persisted.
func (s *Session) Save() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(s.Document()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// AddInstrument lists a custom symbol at a random starting price.
func (s *Session) AddInstrument(symbol string, ex market.Exchange) (market.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, err := s.Registry.AddSymbol(symbol, ex, s.rnd)
	if err != nil {
		return market.Instrument{}, err
	}
	s.log.WithFields(logrus.Fields{"symbol": inst.Symbol, "exchange": inst.Exchange, "price": inst.Price}).Info("instrument added")
	return inst, nil
}

// Intent builds a trade request for a listed instrument at its current
// price. Zero stop-loss or take-profit means none.
func (s *Session) Intent(instrumentID string, side ledger.TransactionType, qty int64, product ledger.ProductType, sl, tp float64) (ledger.Intent, error) {
	inst, err := s.Registry.Get(instrumentID)
	if err != nil {
		return ledger.Intent{}, err
	}
	in := ledger.Intent{
		InstrumentID:    inst.ID,
		Symbol:          inst.Symbol,
		TransactionType: side,
		Quantity:        qty,
		Price:           inst.Price,
		ProductType:     product,
		OrderType:       ledger.Market,
	}
	if sl > 0 {
		in.StopLoss = &sl
	}
	if tp > 0 {
		in.TakeProfit = &tp
	}
	return in, nil
}

// Trade validates in, checks the wallet can pay for it and books it.
func (s *Session) Trade(in ledger.Intent) (ledger.State, error) {
	if err := ledger.ValidateIntent(in); err != nil {
		return ledger.State{}, err
	}
	if err := ledger.CheckFunds(s.Engine.Snapshot().Wallet, in); err != nil {
		return ledger.State{}, err
	}
	return s.Engine.ApplyTrade(in), nil
}
