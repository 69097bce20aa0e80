package event

import (
	"context"
	"log/slog"
	"time"
)

// Record kinds emitted by the ledger for external indexing and notification.
// The core never consumes its own events.
const (
	KindDeposit               = "deposit"
	KindSwapDeposit           = "swap_deposit"
	KindOffchainCredit        = "offchain_credit"
	KindWithdraw              = "withdraw"
	KindLinkCreated           = "link_created"
	KindLinkClaimed           = "link_claimed"
	KindLinkRefunded          = "link_refunded"
	KindSubscriptionCreated   = "subscription_created"
	KindSubscriptionCharged   = "subscription_charged"
	KindSubscriptionCancelled = "subscription_cancelled"
	KindLendingDeposit        = "lending_deposit"
	KindLendingWithdraw       = "lending_withdraw"
	KindAssetAllowed          = "asset_allowed"
	KindAssetRevoked          = "asset_revoked"
	KindOperatorSet           = "operator_set"
	KindFeeSet                = "fee_set"
)

// Event describes one ledger record. Counterparty carries the second party
// where one exists: withdrawal destination, merchant, claimant.
type Event struct {
	Kind         string
	Account      string
	Counterparty string
	Asset        string
	Amount       uint64
	Fee          uint64
	Reference    string
	At           time.Time
}

// Emitter delivers ledger records to downstream systems.
type Emitter interface {
	Emit(ctx context.Context, e Event) error
}

// LogEmitter writes events to the structured logger. It is the development
// fallback when no stream backend is configured.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter constructs a logging emitter.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit writes the event to the structured logger.
func (e *LogEmitter) Emit(_ context.Context, ev Event) error {
	if e == nil || e.logger == nil {
		return nil
	}
	e.logger.Info("ledger event",
		slog.String("kind", ev.Kind),
		slog.String("account", ev.Account),
		slog.String("counterparty", ev.Counterparty),
		slog.String("asset", ev.Asset),
		slog.Uint64("amount", ev.Amount),
		slog.Uint64("fee", ev.Fee),
		slog.String("reference", ev.Reference),
	)
	return nil
}
