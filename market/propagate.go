package market

import (
	"math"
	"math/rand"
)

const (
	// MinPrice is the floor a random walk can push a price down to.
	MinPrice = 0.01

	// DefaultVolatility is the per-tick amplitude of the random walk as a
	// fraction of price.
	DefaultVolatility = 0.0015
)

// Tick moves inst by a bounded random step:
//
//	newPrice = max(MinPrice, price + U(-0.5, 0.5) * price * volatility)
//
// and recomputes Change and ChangePercent against the session open.
func Tick(inst Instrument, volatility float64, rnd *rand.Rand) Instrument {
	delta := (rnd.Float64() - 0.5) * inst.Price * volatility
	return reprice(inst, math.Max(MinPrice, inst.Price+delta))
}

// ApplyPrice sets an externally sourced price. Prices that are not finite
// and positive leave the instrument unchanged.
func ApplyPrice(inst Instrument, price float64) Instrument {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return inst
	}
	return reprice(inst, price)
}

func reprice(inst Instrument, price float64) Instrument {
	open := inst.SessionOpen()
	inst.OpenPrice = open
	inst.Price = price
	inst.Change = price - open
	if open > 0 {
		inst.ChangePercent = inst.Change / open * 100
	} else {
		inst.ChangePercent = 0
	}
	return inst
}
