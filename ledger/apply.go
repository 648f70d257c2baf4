package ledger

import (
	"math"
	"time"
)

// Apply books one trade against st and returns the resulting state and the
// logged order. st is not modified.
//
// A trade against the opposite side of an open position realizes P/L on the
// overlapping quantity. If it is larger than the position, the remainder opens
// a new position on the other side at the trade price. Trades on the same side
// re-average the entry price by size. The wallet is debited for buys and
// credited for sells at price * quantity; funds are not checked here.
func Apply(st State, in Intent, orderID string, ts time.Time) (State, Order) {
	next := st.Clone()

	delta := in.Quantity
	if in.TransactionType == Sell {
		delta = -delta
	}

	var realized *float64
	symbol := in.Symbol

	if i := next.positionIndex(in.InstrumentID); i < 0 {
		next.Positions = append(next.Positions, Position{
			InstrumentID: in.InstrumentID,
			Symbol:       in.Symbol,
			Quantity:     delta,
			AvgPrice:     in.Price,
			StopLoss:     trigger(in.StopLoss),
			TakeProfit:   trigger(in.TakeProfit),
		})
	} else {
		p := next.Positions[i]
		if symbol == "" {
			symbol = p.Symbol
		}

		reducing := (p.Quantity > 0) != (delta > 0)
		if reducing {
			closed := min(p.Size(), in.Quantity)
			var pnl float64
			if p.Long() {
				pnl = (in.Price - p.AvgPrice) * float64(closed)
			} else {
				pnl = (p.AvgPrice - in.Price) * float64(closed)
			}
			realized = &pnl
		}

		qty := p.Quantity + delta
		switch {
		case qty == 0:
			next.Positions = append(next.Positions[:i], next.Positions[i+1:]...)
		case !reducing:
			p.AvgPrice = (math.Abs(p.AvgPrice*float64(p.Quantity)) + in.Value()) / math.Abs(float64(qty))
		case (qty > 0) != p.Long():
			// Flipped through zero: the remainder is a fresh entry.
			p.AvgPrice = in.Price
		}

		if qty != 0 {
			p.Quantity = qty
			if sl := trigger(in.StopLoss); sl != nil {
				p.StopLoss = sl
			}
			if tp := trigger(in.TakeProfit); tp != nil {
				p.TakeProfit = tp
			}
			next.Positions[i] = p
		}
	}

	orderType := in.OrderType
	if orderType == "" {
		orderType = Market
	}

	order := Order{
		ID:              orderID,
		InstrumentID:    in.InstrumentID,
		Symbol:          symbol,
		OrderType:       orderType,
		ProductType:     in.ProductType,
		TransactionType: in.TransactionType,
		Quantity:        in.Quantity,
		Price:           in.Price,
		Status:          Executed,
		Timestamp:       ts,
		RealizedPnl:     realized,
		Reason:          in.Reason,
	}
	next.Orders = append([]Order{order}, next.Orders...)

	if in.TransactionType == Buy {
		next.Wallet.Balance -= in.Value()
	} else {
		next.Wallet.Balance += in.Value()
	}

	return next, order
}

// trigger normalizes an optional trigger price: unset and non-positive
// values mean "no trigger".
func trigger(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	c := *v
	return &c
}
