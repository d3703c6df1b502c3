package services

import (
	"math/rand/v2"
	"sync"
)

// PriceOracle supplies a current price per symbol for leaderboard
// valuation. Prices may vary between calls; no determinism is promised.
type PriceOracle interface {
	Price(symbol string) int64
}

// SimulatedOracle is a stand-in price feed: each symbol starts from a
// seeded base price and drifts by a bounded random step on every tick.
// Prices never fall below 1.
type SimulatedOracle struct {
	mu     sync.Mutex
	prices map[string]int64
}

func NewSimulatedOracle(basePrices map[string]int64) *SimulatedOracle {
	prices := make(map[string]int64, len(basePrices))
	for symbol, price := range basePrices {
		if price < 1 {
			price = 1
		}
		prices[symbol] = price
	}
	return &SimulatedOracle{prices: prices}
}

func (o *SimulatedOracle) Price(symbol string) int64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	price, ok := o.prices[symbol]
	if !ok {
		return 0
	}
	return price
}

// Tick applies one random-walk step to every symbol, at most ±5% of the
// current price.
func (o *SimulatedOracle) Tick() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for symbol, price := range o.prices {
		step := price / 20
		if step < 1 {
			step = 1
		}
		price += rand.Int64N(2*step+1) - step
		if price < 1 {
			price = 1
		}
		o.prices[symbol] = price
	}
}
