package swap

import (
	"context"
	"sync"
)

// FixedRateAdapter simulates an exchange router that fills swaps at
// configured integer rates. It backs development mode and unit tests; rates
// map "IN->OUT" pairs to a numerator/denominator pair.
type FixedRateAdapter struct {
	mu    sync.RWMutex
	rates map[string]rate
	err   error
}

type rate struct {
	num uint64
	den uint64
}

// NewFixedRateAdapter constructs an adapter that fills every pair one-for-one
// until specific rates are set.
func NewFixedRateAdapter() *FixedRateAdapter {
	return &FixedRateAdapter{rates: make(map[string]rate)}
}

// SetRate configures the fill rate for a pair: amountOut = amountIn*num/den.
func (a *FixedRateAdapter) SetRate(assetIn, assetOut string, num, den uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if den == 0 {
		den = 1
	}
	a.rates[assetIn+"->"+assetOut] = rate{num: num, den: den}
}

// Fail makes every subsequent swap return the given error.
func (a *FixedRateAdapter) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// Swap fills the request at the configured rate.
func (a *FixedRateAdapter) Swap(_ context.Context, req Request) (uint64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.err != nil {
		return 0, a.err
	}
	r, ok := a.rates[req.AssetIn+"->"+req.AssetOut]
	if !ok {
		r = rate{num: 1, den: 1}
	}
	return req.AmountIn / r.den * r.num, nil
}
