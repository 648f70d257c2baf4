// Package journal keeps an append-only audit trail of executed orders and
// equity snapshots, separate from the saved session document.
package journal

import "time"

// OrderRecord is one executed order as written to the journal.
// RealizedPL is nil for orders that only opened or added to a position.
type OrderRecord struct {
	OrderID      string
	InstrumentID string
	Symbol       string
	Side         string
	OrderType    string
	ProductType  string
	Quantity     int64
	Price        float64
	RealizedPL   *float64
	Time         time.Time
	Reason       string
}

type EquitySnapshot struct {
	Time       time.Time
	Balance    float64
	Invested   float64
	Unrealized float64
	Equity     float64
}

type Journal interface {
	RecordOrder(OrderRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordOrder(OrderRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
