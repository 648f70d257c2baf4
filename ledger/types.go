// Package ledger is the paper-trading book: wallet balance, net positions per
// instrument and the executed-order log, updated together as one aggregate.
package ledger

import (
	"time"
)

type TransactionType string

const (
	Buy  TransactionType = "BUY"
	Sell TransactionType = "SELL"
)

type OrderType string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"
)

// ProductType is an accounting tag only; both products settle the same way.
type ProductType string

const (
	Delivery ProductType = "CNC"
	Intraday ProductType = "MIS"
)

// OrderStatus of a logged order. Orders fill immediately, so every order in
// the log is Executed.
type OrderStatus string

const Executed OrderStatus = "EXECUTED"

// Why an order was placed.
const (
	ReasonManual     = "manual"
	ReasonStopLoss   = "stop_loss"
	ReasonTakeProfit = "take_profit"
	ReasonExit       = "exit"
	ReasonSquareOff  = "square_off"
)

// Intent is a request to trade. Intents reaching the engine are expected to
// have passed ValidateIntent.
type Intent struct {
	InstrumentID    string          `json:"instrumentId" validate:"required"`
	Symbol          string          `json:"symbol" validate:"required"`
	TransactionType TransactionType `json:"transactionType" validate:"oneof=BUY SELL"`
	Quantity        int64           `json:"quantity" validate:"gt=0"`
	Price           float64         `json:"price" validate:"gt=0"`
	ProductType     ProductType     `json:"productType" validate:"oneof=CNC MIS"`
	OrderType       OrderType       `json:"orderType" validate:"oneof=MARKET LIMIT"`
	StopLoss        *float64        `json:"stopLoss,omitempty" validate:"omitempty,gte=0"`
	TakeProfit      *float64        `json:"takeProfit,omitempty" validate:"omitempty,gte=0"`
	Reason          string          `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Value is the cash that changes hands.
func (in Intent) Value() float64 {
	return in.Price * float64(in.Quantity)
}

// Order is an executed trade. Orders are never edited once logged.
// RealizedPnl is set only when the order reduced, closed or flipped a position.
type Order struct {
	ID              string          `json:"id" yaml:"id"`
	InstrumentID    string          `json:"instrumentId" yaml:"instrumentId"`
	Symbol          string          `json:"symbol" yaml:"symbol"`
	OrderType       OrderType       `json:"orderType" yaml:"orderType"`
	ProductType     ProductType     `json:"productType" yaml:"productType"`
	TransactionType TransactionType `json:"transactionType" yaml:"transactionType"`
	Quantity        int64           `json:"quantity" yaml:"quantity"`
	Price           float64         `json:"price" yaml:"price"`
	Status          OrderStatus     `json:"status" yaml:"status"`
	Timestamp       time.Time       `json:"timestamp" yaml:"timestamp"`
	RealizedPnl     *float64        `json:"realizedPnl,omitempty" yaml:"realizedPnl,omitempty"`
	Reason          string          `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Position is the net holding in one instrument. Quantity is signed:
// positive is long, negative is short. A zero-quantity position is never kept.
type Position struct {
	InstrumentID string   `json:"instrumentId" yaml:"instrumentId"`
	Symbol       string   `json:"symbol" yaml:"symbol"`
	Quantity     int64    `json:"quantity" yaml:"quantity"`
	AvgPrice     float64  `json:"avgPrice" yaml:"avgPrice"`
	StopLoss     *float64 `json:"stopLoss,omitempty" yaml:"stopLoss,omitempty"`
	TakeProfit   *float64 `json:"takeProfit,omitempty" yaml:"takeProfit,omitempty"`
}

func (p Position) Long() bool { return p.Quantity > 0 }

// Size is the unsigned quantity.
func (p Position) Size() int64 {
	if p.Quantity < 0 {
		return -p.Quantity
	}
	return p.Quantity
}

type Wallet struct {
	Balance        float64 `json:"balance" yaml:"balance"`
	InitialBalance float64 `json:"initialBalance" yaml:"initialBalance"`
}

// Invested is the cash that has left the wallet since the session started.
func (w Wallet) Invested() float64 {
	return w.InitialBalance - w.Balance
}

// State is one consistent snapshot of the book. Orders are newest first;
// positions keep the order they were opened in.
type State struct {
	Wallet    Wallet     `json:"wallet" yaml:"wallet"`
	Positions []Position `json:"positions" yaml:"positions"`
	Orders    []Order    `json:"orders" yaml:"orders"`
}

func NewState(balance float64) State {
	return State{
		Wallet:    Wallet{Balance: balance, InitialBalance: balance},
		Positions: []Position{},
		Orders:    []Order{},
	}
}

// Clone returns a deep copy that shares nothing with s.
func (s State) Clone() State {
	out := State{
		Wallet:    s.Wallet,
		Positions: make([]Position, len(s.Positions)),
		Orders:    make([]Order, len(s.Orders)),
	}
	for i, p := range s.Positions {
		p.StopLoss = clonePtr(p.StopLoss)
		p.TakeProfit = clonePtr(p.TakeProfit)
		out.Positions[i] = p
	}
	for i, o := range s.Orders {
		o.RealizedPnl = clonePtr(o.RealizedPnl)
		out.Orders[i] = o
	}
	return out
}

// Position looks up the open position in an instrument.
func (s State) Position(instrumentID string) (Position, bool) {
	if i := s.positionIndex(instrumentID); i >= 0 {
		return s.Positions[i], true
	}
	return Position{}, false
}

func (s State) positionIndex(instrumentID string) int {
	for i, p := range s.Positions {
		if p.InstrumentID == instrumentID {
			return i
		}
	}
	return -1
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
