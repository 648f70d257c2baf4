// Package market holds the tradable instrument set and moves its prices,
// either by a bounded random walk or from externally sourced quotes.
package market

import (
	"fmt"
	"strings"
)

type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
)

// ParseExchange accepts an exchange name in any case.
func ParseExchange(s string) (Exchange, error) {
	switch Exchange(strings.ToUpper(strings.TrimSpace(s))) {
	case NSE:
		return NSE, nil
	case BSE:
		return BSE, nil
	}
	return "", fmt.Errorf("unknown exchange %q (want NSE or BSE)", s)
}

// Instrument is one exchange listing and its latest price.
//
// OpenPrice is the session-open reference that Change and ChangePercent are
// measured against. Documents written without it still load: SessionOpen
// derives it from Price and ChangePercent.
type Instrument struct {
	ID            string   `json:"id" yaml:"id"`
	Symbol        string   `json:"symbol" yaml:"symbol"`
	Name          string   `json:"name" yaml:"name"`
	Exchange      Exchange `json:"exchange" yaml:"exchange"`
	Price         float64  `json:"price" yaml:"price"`
	Change        float64  `json:"change" yaml:"change"`
	ChangePercent float64  `json:"changePercent" yaml:"changePercent"`
	OpenPrice     float64  `json:"openPrice,omitempty" yaml:"openPrice,omitempty"`
}

// SessionOpen returns the session-open price.
func (i Instrument) SessionOpen() float64 {
	if i.OpenPrice > 0 {
		return i.OpenPrice
	}
	f := 1 + i.ChangePercent/100
	if f <= 0 {
		return i.Price
	}
	return i.Price / f
}

// Key identifies a listing by symbol and venue.
func (i Instrument) Key() string {
	return Key(i.Symbol, i.Exchange)
}

func Key(symbol string, ex Exchange) string {
	return string(ex) + ":" + strings.ToUpper(symbol)
}
