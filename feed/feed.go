// Package feed holds the external collaborators of a paper-trading session:
// a source of real quotes used to re-anchor the simulated prices, and a
// source of market commentary.
package feed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// PriceFeed returns the latest traded price for each requested symbol it
// knows about. Symbols it has no quote for are left out of the result.
type PriceFeed interface {
	FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

var ErrMalformedQuote = errors.New("malformed quote")

var quoteLine = regexp.MustCompile(`^([A-Z0-9][A-Z0-9&_.-]*)\s*:\s*([0-9][0-9,]*(?:\.[0-9]+)?)$`)

// ParseQuotes reads a batch of "SYMBOL: PRICE" lines, e.g. "RELIANCE: 1,265.50".
// Blank lines are skipped. Any other line that does not match, or a price that
// is not positive, rejects the whole batch: a partially corrupt response never
// yields partial updates. A symbol repeated in the batch keeps its last price.
func ParseQuotes(body string) (map[string]float64, error) {
	out := map[string]float64{}
	for n, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		m := quoteLine.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("line %d %q: %w", n+1, line, ErrMalformedQuote)
		}
		price, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", ""), 64)
		if err != nil || price <= 0 || math.IsInf(price, 0) {
			return nil, fmt.Errorf("line %d price %q: %w", n+1, m[2], ErrMalformedQuote)
		}
		out[m[1]] = price
	}
	return out, nil
}

// StaticFeed serves fixed quotes. It is handy for tests and offline runs.
type StaticFeed map[string]float64

func (s StaticFeed) FetchPrices(_ context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if p, ok := s[sym]; ok {
			out[sym] = p
		}
	}
	return out, nil
}
