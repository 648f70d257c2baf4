package ledger

// PriceSource reports the latest traded price of an instrument.
// market.Registry satisfies it.
type PriceSource interface {
	Price(instrumentID string) (float64, bool)
}

// PriceMap is a fixed set of prices keyed by instrument id.
type PriceMap map[string]float64

func (m PriceMap) Price(instrumentID string) (float64, bool) {
	p, ok := m[instrumentID]
	return p, ok
}

// MarkPrice is the latest price of p's instrument, or its entry price when
// no quote is available.
func MarkPrice(p Position, prices PriceSource) float64 {
	if prices != nil {
		if ltp, ok := prices.Price(p.InstrumentID); ok {
			return ltp
		}
	}
	return p.AvgPrice
}

// PositionPnl is the mark-to-market P/L of one position.
func PositionPnl(p Position, prices PriceSource) float64 {
	return (MarkPrice(p, prices) - p.AvgPrice) * float64(p.Quantity)
}

// UnrealizedPnl sums mark-to-market P/L over positions.
func UnrealizedPnl(positions []Position, prices PriceSource) float64 {
	var total float64
	for _, p := range positions {
		total += PositionPnl(p, prices)
	}
	return total
}

func TotalEquity(w Wallet, unrealized float64) float64 {
	return w.Balance + unrealized
}

// RealizedPnl sums realized P/L across the order log.
func RealizedPnl(orders []Order) float64 {
	var total float64
	for _, o := range orders {
		if o.RealizedPnl != nil {
			total += *o.RealizedPnl
		}
	}
	return total
}

type Summary struct {
	Balance        float64 `json:"balance"`
	InitialBalance float64 `json:"initialBalance"`
	Invested       float64 `json:"invested"`
	Unrealized     float64 `json:"unrealizedPnl"`
	Realized       float64 `json:"realizedPnl"`
	Equity         float64 `json:"equity"`
	OpenPositions  int     `json:"openPositions"`
}

// Summarize values st at the given prices. It is recomputed on every call.
func Summarize(st State, prices PriceSource) Summary {
	upnl := UnrealizedPnl(st.Positions, prices)
	return Summary{
		Balance:        st.Wallet.Balance,
		InitialBalance: st.Wallet.InitialBalance,
		Invested:       st.Wallet.Invested(),
		Unrealized:     upnl,
		Realized:       RealizedPnl(st.Orders),
		Equity:         TotalEquity(st.Wallet, upnl),
		OpenPositions:  len(st.Positions),
	}
}
