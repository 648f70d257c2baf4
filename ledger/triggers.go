package ledger

func hitStopLoss(p Position, price float64) bool {
	if p.StopLoss == nil {
		return false
	}
	if p.Long() {
		return price <= *p.StopLoss
	}
	return price >= *p.StopLoss
}

func hitTakeProfit(p Position, price float64) bool {
	if p.TakeProfit == nil {
		return false
	}
	if p.Long() {
		return price >= *p.TakeProfit
	}
	return price <= *p.TakeProfit
}

// EvaluateTriggers returns one market exit per position whose stop-loss or
// take-profit has been crossed at its latest price, in position order. When
// both have been crossed the exit is tagged as a stop-loss. Positions without
// a latest price or without any trigger are skipped.
func EvaluateTriggers(positions []Position, prices PriceSource) []Intent {
	if prices == nil {
		return nil
	}
	var out []Intent
	for _, p := range positions {
		if p.StopLoss == nil && p.TakeProfit == nil {
			continue
		}
		price, ok := prices.Price(p.InstrumentID)
		if !ok {
			continue
		}

		reason := ""
		if hitTakeProfit(p, price) {
			reason = ReasonTakeProfit
		}
		if hitStopLoss(p, price) {
			reason = ReasonStopLoss
		}
		if reason == "" {
			continue
		}
		out = append(out, closingIntent(p, price, Intraday, reason))
	}
	return out
}

// closingIntent flattens p at price.
func closingIntent(p Position, price float64, product ProductType, reason string) Intent {
	side := Sell
	if !p.Long() {
		side = Buy
	}
	return Intent{
		InstrumentID:    p.InstrumentID,
		Symbol:          p.Symbol,
		TransactionType: side,
		Quantity:        p.Size(),
		Price:           price,
		ProductType:     product,
		OrderType:       Market,
		Reason:          reason,
	}
}
