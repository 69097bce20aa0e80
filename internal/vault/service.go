package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stablevault/stablevault/internal/admin"
	"github.com/stablevault/stablevault/internal/asset"
	"github.com/stablevault/stablevault/internal/event"
	"github.com/stablevault/stablevault/internal/ledger"
	"github.com/stablevault/stablevault/internal/lending"
	"github.com/stablevault/stablevault/internal/swap"
	"github.com/stablevault/stablevault/internal/token"
)

var (
	// ErrSlippageExceeded occurs when the swap router returns less than the
	// caller's minimum acceptable output.
	ErrSlippageExceeded = errors.New("slippage exceeded")

	// ErrDeadlineExpired occurs when a swap deposit is evaluated after its
	// caller-specified deadline.
	ErrDeadlineExpired = errors.New("deadline expired")

	// ErrTransferFailed occurs when the underlying asset rail rejects a
	// movement in or out of custody.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrInsolvent occurs when a lending deposit would reduce on-hand
	// custody below the sum of user balances for the asset.
	ErrInsolvent = errors.New("lending would breach solvency")

	// ErrUnknownAdapter occurs when an admin names a lending adapter that
	// was never registered.
	ErrUnknownAdapter = errors.New("unknown lending adapter")
)

// Service is the custodial balance ledger. Every mutating operation is
// serialized behind a single mutex so balance reads, adapter calls and the
// resulting posting observe a consistent state (no partial visibility).
type Service struct {
	mu      sync.Mutex
	store   ledger.Store
	assets  asset.Registry
	admin   admin.Repository
	mover   token.Mover
	swapper swap.Adapter
	lenders map[string]lending.Adapter
	emitter event.Emitter
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires the vault with its collaborators.
func NewService(store ledger.Store, assets asset.Registry, adminRepo admin.Repository, mover token.Mover, swapper swap.Adapter, emitter event.Emitter, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		assets:  assets,
		admin:   adminRepo,
		mover:   mover,
		swapper: swapper,
		lenders: make(map[string]lending.Adapter),
		emitter: emitter,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RegisterLendingAdapter makes a yield venue addressable by admin operations.
func (s *Service) RegisterLendingAdapter(name string, adapter lending.Adapter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lenders[name] = adapter
}

// SetClock overrides the service clock; used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// BalanceOf returns the custody balance for (account, asset).
func (s *Service) BalanceOf(ctx context.Context, account, assetCode string) (uint64, error) {
	return s.store.Balance(ctx, account, assetCode)
}

// ListAssets returns every allow-listed asset code.
func (s *Service) ListAssets(ctx context.Context) ([]string, error) {
	return s.assets.List(ctx)
}

// DepositStable pulls amount of an allow-listed asset from the account's
// side of the rail into custody and credits the balance.
func (s *Service) DepositStable(ctx context.Context, account, assetCode string, amount uint64) (uint64, error) {
	if err := validAmount(amount); err != nil {
		return 0, err
	}
	if err := s.requireAllowed(ctx, assetCode); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	receipt, err := s.mover.Pull(ctx, account, assetCode, amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	if err := s.store.Apply(ctx, ledger.Posting{
		Kind:      event.KindDeposit,
		Reference: receipt.Reference,
		Credits:   []ledger.Leg{{Account: account, Asset: assetCode, Amount: amount}},
		Inflows:   []ledger.Flow{{Asset: assetCode, Amount: amount}},
	}); err != nil {
		return 0, err
	}

	s.emit(ctx, event.Event{
		Kind:      event.KindDeposit,
		Account:   account,
		Asset:     assetCode,
		Amount:    amount,
		Reference: receipt.Reference,
		At:        s.now(),
	})
	return s.store.Balance(ctx, account, assetCode)
}

// DepositAndSwap pulls assetIn, swaps it along route and credits exactly the
// amount the router delivered, never the caller's estimate.
func (s *Service) DepositAndSwap(ctx context.Context, account, assetIn string, amountIn uint64, assetOut string, minOut uint64, route []string, deadline time.Time) (uint64, error) {
	if err := validAmount(amountIn); err != nil {
		return 0, err
	}
	if err := s.requireAllowed(ctx, assetOut); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.now().Before(deadline) {
		return 0, ErrDeadlineExpired
	}

	receipt, err := s.mover.Pull(ctx, account, assetIn, amountIn)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	amountOut, err := s.swapper.Swap(ctx, swap.Request{
		AssetIn:  assetIn,
		AmountIn: amountIn,
		AssetOut: assetOut,
		MinOut:   minOut,
		Route:    route,
		Deadline: deadline,
	})
	if err != nil {
		s.returnPulled(ctx, account, assetIn, amountIn)
		return 0, fmt.Errorf("swap: %w", err)
	}
	if amountOut < minOut || amountOut == 0 {
		s.returnPulled(ctx, account, assetIn, amountIn)
		return 0, ErrSlippageExceeded
	}

	if err := s.store.Apply(ctx, ledger.Posting{
		Kind:      event.KindSwapDeposit,
		Reference: receipt.Reference,
		Credits:   []ledger.Leg{{Account: account, Asset: assetOut, Amount: amountOut}},
		Inflows:   []ledger.Flow{{Asset: assetOut, Amount: amountOut}},
	}); err != nil {
		return 0, err
	}

	s.emit(ctx, event.Event{
		Kind:      event.KindSwapDeposit,
		Account:   account,
		Asset:     assetOut,
		Amount:    amountOut,
		Reference: receipt.Reference,
		At:        s.now(),
	})
	return amountOut, nil
}

// WithdrawResult reports how a withdrawal split between recipient and fee.
type WithdrawResult struct {
	Net uint64
	Fee uint64
}

// Withdraw debits the gross amount from the account, pushes amount-fee out
// to the destination and credits the fee to the configured recipient. The
// fee comes out of the withdrawn amount, not on top of it.
func (s *Service) Withdraw(ctx context.Context, account, assetCode string, amount uint64, to string) (WithdrawResult, error) {
	if err := validAmount(amount); err != nil {
		return WithdrawResult{}, err
	}
	if err := s.requireAllowed(ctx, assetCode); err != nil {
		return WithdrawResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.store.Balance(ctx, account, assetCode)
	if err != nil {
		return WithdrawResult{}, err
	}
	if balance < amount {
		return WithdrawResult{}, ledger.ErrInsufficientBalance
	}

	feeCfg, err := s.admin.Fee(ctx)
	if err != nil {
		return WithdrawResult{}, err
	}
	fee := feeFor(amount, feeCfg.Bps)
	net := amount - fee

	// At a 100% fee nothing leaves custody; the whole amount becomes fee.
	reference := uuid.NewString()
	if net > 0 {
		receipt, err := s.mover.Push(ctx, to, assetCode, net)
		if err != nil {
			return WithdrawResult{}, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		reference = receipt.Reference
	}

	posting := ledger.Posting{
		Kind:      event.KindWithdraw,
		Reference: reference,
		Debits:    []ledger.Leg{{Account: account, Asset: assetCode, Amount: amount}},
	}
	if net > 0 {
		posting.Outflows = []ledger.Flow{{Asset: assetCode, Amount: net}}
	}
	if fee > 0 && feeCfg.Recipient != "" {
		posting.Credits = []ledger.Leg{{Account: feeCfg.Recipient, Asset: assetCode, Amount: fee}}
	}
	if err := s.store.Apply(ctx, posting); err != nil {
		return WithdrawResult{}, err
	}

	s.emit(ctx, event.Event{
		Kind:         event.KindWithdraw,
		Account:      account,
		Counterparty: to,
		Asset:        assetCode,
		Amount:       amount,
		Fee:          fee,
		Reference:    reference,
		At:           s.now(),
	})
	return WithdrawResult{Net: net, Fee: fee}, nil
}

// CreditOffchain credits a balance with no underlying rail movement. It is
// gated on the operator capability and treated as the operator attesting
// that backing funds reached the custodian off-chain.
func (s *Service) CreditOffchain(ctx context.Context, operator, account, assetCode string, amount uint64) (uint64, error) {
	if err := validAmount(amount); err != nil {
		return 0, err
	}
	ok, err := s.admin.IsOperator(ctx, operator)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, admin.ErrUnauthorized
	}
	if err := s.requireAllowed(ctx, assetCode); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reference := uuid.NewString()
	if err := s.store.Apply(ctx, ledger.Posting{
		Kind:      event.KindOffchainCredit,
		Reference: reference,
		Credits:   []ledger.Leg{{Account: account, Asset: assetCode, Amount: amount}},
		Inflows:   []ledger.Flow{{Asset: assetCode, Amount: amount}},
	}); err != nil {
		return 0, err
	}

	s.audit(ctx, "credit_offchain", operator,
		slog.String("account", account),
		slog.String("asset", assetCode),
		slog.Uint64("amount", amount))
	s.emit(ctx, event.Event{
		Kind:      event.KindOffchainCredit,
		Account:   account,
		Asset:     assetCode,
		Amount:    amount,
		Reference: reference,
		At:        s.now(),
	})
	return s.store.Balance(ctx, account, assetCode)
}

// PullForSubscription moves a recurring charge from subscriber to merchant
// net of the platform fee. Insufficient balance is reported as ok=false
// rather than an error so the biller can retry the same cycle later. Only
// the subscription biller holds a reference to this capability.
func (s *Service) PullForSubscription(ctx context.Context, subscriber, assetCode string, amount uint64, merchant string) (bool, error) {
	if err := validAmount(amount); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	feeCfg, err := s.admin.Fee(ctx)
	if err != nil {
		return false, err
	}
	fee := feeFor(amount, feeCfg.Bps)

	posting := ledger.Posting{
		Kind:      event.KindSubscriptionCharged,
		Reference: uuid.NewString(),
		Debits:    []ledger.Leg{{Account: subscriber, Asset: assetCode, Amount: amount}},
	}
	if net := amount - fee; net > 0 {
		posting.Credits = append(posting.Credits, ledger.Leg{Account: merchant, Asset: assetCode, Amount: net})
	}
	if fee > 0 && feeCfg.Recipient != "" {
		posting.Credits = append(posting.Credits, ledger.Leg{Account: feeCfg.Recipient, Asset: assetCode, Amount: fee})
	}

	if err := s.store.Apply(ctx, posting); err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// EscrowLock moves link funds from the creator into the escrow account at
// link creation time; the funds are custody-held, not merely reserved. Only
// the payment-link escrow holds a reference to this capability.
func (s *Service) EscrowLock(ctx context.Context, creator, assetCode string, amount uint64, reference string) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	if err := s.requireAllowed(ctx, assetCode); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Apply(ctx, ledger.Posting{
		Kind:      event.KindLinkCreated,
		Reference: reference,
		Debits:    []ledger.Leg{{Account: creator, Asset: assetCode, Amount: amount}},
		Credits:   []ledger.Leg{{Account: ledger.EscrowAccount, Asset: assetCode, Amount: amount}},
	})
}

// EscrowRelease moves escrowed link funds to the recipient (claimant on
// claim, creator on refund). The asset is not re-checked against the
// allow-list: funds already in custody stay claimable even if the asset was
// revoked after the link was created.
func (s *Service) EscrowRelease(ctx context.Context, to, assetCode string, amount uint64, reference string) error {
	if err := validAmount(amount); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Apply(ctx, ledger.Posting{
		Kind:      event.KindLinkClaimed,
		Reference: reference,
		Debits:    []ledger.Leg{{Account: ledger.EscrowAccount, Asset: assetCode, Amount: amount}},
		Credits:   []ledger.Leg{{Account: to, Asset: assetCode, Amount: amount}},
	})
}

func (s *Service) requireAllowed(ctx context.Context, assetCode string) error {
	ok, err := s.assets.IsAllowed(ctx, assetCode)
	if err != nil {
		return err
	}
	if !ok {
		return asset.ErrNotAllowed
	}
	return nil
}

// returnPulled pushes already-pulled funds back to the account when a swap
// does not complete, so a failed swap leaves no stranded custody.
func (s *Service) returnPulled(ctx context.Context, account, assetCode string, amount uint64) {
	if _, err := s.mover.Push(ctx, account, assetCode, amount); err != nil && s.logger != nil {
		s.logger.Error("returning pulled funds failed",
			slog.String("account", account),
			slog.String("asset", assetCode),
			slog.Uint64("amount", amount),
			slog.Any("error", err))
	}
}

func (s *Service) emit(ctx context.Context, ev event.Event) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(ctx, ev); err != nil && s.logger != nil {
		s.logger.Warn("emit event", slog.String("kind", ev.Kind), slog.Any("error", err))
	}
}

func (s *Service) audit(_ context.Context, op, actor string, attrs ...any) {
	if s.logger == nil {
		return
	}
	all := append([]any{slog.String("op", op), slog.String("actor", actor)}, attrs...)
	s.logger.Info("admin operation", all...)
}

func validAmount(amount uint64) error {
	if amount == 0 || amount > ledger.MaxAmount {
		return fmt.Errorf("amount must be positive: %w", ledger.ErrArithmetic)
	}
	return nil
}

// feeFor computes floor(amount*bps/10000) without intermediate overflow.
func feeFor(amount, bps uint64) uint64 {
	if bps == 0 {
		return 0
	}
	hi, lo := bits.Mul64(amount, bps)
	fee, _ := bits.Div64(hi, lo, 10000)
	return fee
}
