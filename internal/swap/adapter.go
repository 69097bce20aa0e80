package swap

import (
	"context"
	"errors"
	"time"
)

// ErrRouteUnavailable occurs when the router cannot serve the requested
// route at all (as opposed to serving it at a poor rate).
var ErrRouteUnavailable = errors.New("swap route unavailable")

// Request describes a swap the vault wants executed against the external
// exchange router.
type Request struct {
	AssetIn  string
	AmountIn uint64
	AssetOut string
	MinOut   uint64
	Route    []string
	Deadline time.Time
}

// Adapter is the capability interface to an external exchange router. The
// returned amount is what the router actually delivered; the vault credits
// exactly that, never the caller's estimate.
type Adapter interface {
	Swap(ctx context.Context, req Request) (amountOut uint64, err error)
}
