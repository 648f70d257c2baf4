package market

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/rustyeddy/papertrader/pkg/id"
)

var (
	ErrNotFound     = errors.New("instrument not found")
	ErrDuplicate    = errors.New("instrument already listed")
	ErrInvalidPrice = errors.New("instrument price must be positive")
)

// Registry is the watchlist: the current tradable set, in display order,
// with the latest price of each listing.
type Registry struct {
	mu    sync.RWMutex
	list  []Instrument
	byID  map[string]int
	byKey map[string]int
}

func NewRegistry(insts ...Instrument) *Registry {
	r := &Registry{}
	r.Replace(insts)
	return r
}

// Replace swaps the whole set, e.g. after loading a saved watchlist.
// Later duplicates of an id or (symbol, exchange) pair are dropped.
func (r *Registry) Replace(insts []Instrument) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.list = make([]Instrument, 0, len(insts))
	seen := map[string]bool{}
	for _, inst := range insts {
		if seen[inst.ID] || seen[inst.Key()] {
			continue
		}
		seen[inst.ID] = true
		seen[inst.Key()] = true
		inst.OpenPrice = inst.SessionOpen()
		r.list = append(r.list, inst)
	}
	r.reindexLocked()
}

func (r *Registry) reindexLocked() {
	r.byID = make(map[string]int, len(r.list))
	r.byKey = make(map[string]int, len(r.list))
	for i, inst := range r.list {
		r.byID[inst.ID] = i
		r.byKey[inst.Key()] = i
	}
}

// Add appends inst to the set.
func (r *Registry) Add(inst Instrument) error {
	if inst.Price <= 0 {
		return fmt.Errorf("add %s: %w", inst.Symbol, ErrInvalidPrice)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[inst.ID]; ok {
		return fmt.Errorf("add %s: id %q: %w", inst.Symbol, inst.ID, ErrDuplicate)
	}
	if _, ok := r.byKey[inst.Key()]; ok {
		return fmt.Errorf("add %s: %w", inst.Key(), ErrDuplicate)
	}
	inst.OpenPrice = inst.SessionOpen()
	r.list = append(r.list, inst)
	r.reindexLocked()
	return nil
}

// AddSymbol lists a custom instrument at the top of the set with a random
// starting price between 100 and 5099 and no session change.
func (r *Registry) AddSymbol(symbol string, ex Exchange, rnd *rand.Rand) (Instrument, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Instrument{}, errors.New("add symbol: empty symbol")
	}

	price := float64(rnd.Intn(5000) + 100)
	inst := Instrument{
		ID:        id.New(),
		Symbol:    symbol,
		Name:      symbol + " (Custom)",
		Exchange:  ex,
		Price:     price,
		OpenPrice: price,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byKey[inst.Key()]; ok {
		return Instrument{}, fmt.Errorf("add %s: %w", inst.Key(), ErrDuplicate)
	}
	r.list = append([]Instrument{inst}, r.list...)
	r.reindexLocked()
	return inst, nil
}

func (r *Registry) Get(instrumentID string) (Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byID[instrumentID]
	if !ok {
		return Instrument{}, fmt.Errorf("%q: %w", instrumentID, ErrNotFound)
	}
	return r.list[i], nil
}

func (r *Registry) Find(symbol string, ex Exchange) (Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byKey[Key(symbol, ex)]
	if !ok {
		return Instrument{}, fmt.Errorf("%s: %w", Key(symbol, ex), ErrNotFound)
	}
	return r.list[i], nil
}

// List returns a copy of the set in display order.
func (r *Registry) List() []Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Instrument, len(r.list))
	copy(out, r.list)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.list)
}

// Symbols returns each distinct symbol once, in display order.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]bool{}
	var out []string
	for _, inst := range r.list {
		if seen[inst.Symbol] {
			continue
		}
		seen[inst.Symbol] = true
		out = append(out, inst.Symbol)
	}
	return out
}

// Price returns the last traded price of an instrument.
func (r *Registry) Price(instrumentID string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byID[instrumentID]
	if !ok {
		return 0, false
	}
	return r.list[i].Price, true
}

// TickAll advances every instrument one random-walk step and returns the
// updated set.
func (r *Registry) TickAll(volatility float64, rnd *rand.Rand) []Instrument {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.list {
		r.list[i] = Tick(r.list[i], volatility, rnd)
	}
	out := make([]Instrument, len(r.list))
	copy(out, r.list)
	return out
}

// ApplyQuotes applies last traded prices keyed by symbol to every listing of
// that symbol. It returns the number of listings updated.
func (r *Registry) ApplyQuotes(quotes map[string]float64) int {
	if len(quotes) == 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for i, inst := range r.list {
		p, ok := quotes[inst.Symbol]
		if !ok {
			continue
		}
		updated := ApplyPrice(inst, p)
		if updated != inst {
			n++
		}
		r.list[i] = updated
	}
	return n
}
