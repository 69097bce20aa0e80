package vault

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stablevault/stablevault/internal/admin"
	"github.com/stablevault/stablevault/internal/event"
	"github.com/stablevault/stablevault/internal/ledger"
)

// Administrative operations. Each is gated on the administrator capability
// and audit-logged with the acting account.

// AllowAsset adds an asset to the custody allow-list.
func (s *Service) AllowAsset(ctx context.Context, caller, assetCode string) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if assetCode == "" {
		return fmt.Errorf("asset code is required")
	}
	if err := s.assets.Allow(ctx, assetCode); err != nil {
		return err
	}
	s.audit(ctx, "allow_asset", caller, slog.String("asset", assetCode))
	s.emit(ctx, event.Event{Kind: event.KindAssetAllowed, Account: caller, Asset: assetCode, At: s.now()})
	return nil
}

// RevokeAsset removes an asset from the allow-list. Existing balances stay
// withdrawable only once the asset is re-allowed; escrowed link funds remain
// claimable regardless.
func (s *Service) RevokeAsset(ctx context.Context, caller, assetCode string) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if err := s.assets.Revoke(ctx, assetCode); err != nil {
		return err
	}
	s.audit(ctx, "revoke_asset", caller, slog.String("asset", assetCode))
	s.emit(ctx, event.Event{Kind: event.KindAssetRevoked, Account: caller, Asset: assetCode, At: s.now()})
	return nil
}

// SetOperator grants or revokes the off-chain credit capability.
func (s *Service) SetOperator(ctx context.Context, caller, account string, enabled bool) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if err := s.admin.SetOperator(ctx, account, enabled); err != nil {
		return err
	}
	s.audit(ctx, "set_operator", caller, slog.String("operator", account), slog.Bool("enabled", enabled))
	s.emit(ctx, event.Event{Kind: event.KindOperatorSet, Account: caller, Counterparty: account, At: s.now()})
	return nil
}

// SetFee replaces the platform fee configuration.
func (s *Service) SetFee(ctx context.Context, caller string, bps uint64, recipient string) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if bps > admin.MaxFeeBps {
		return fmt.Errorf("fee bps %d exceeds %d", bps, admin.MaxFeeBps)
	}
	if err := s.admin.SetFee(ctx, admin.FeeConfig{Bps: bps, Recipient: recipient}); err != nil {
		return err
	}
	s.audit(ctx, "set_fee", caller, slog.Uint64("bps", bps), slog.String("recipient", recipient))
	s.emit(ctx, event.Event{Kind: event.KindFeeSet, Account: caller, Counterparty: recipient, Amount: bps, At: s.now()})
	return nil
}

// DepositToLending moves surplus custody to a registered yield venue. It may
// only spend the excess of on-hand holdings over the sum of user balances:
// funds earmarked to users are never lent out.
func (s *Service) DepositToLending(ctx context.Context, caller, adapterName, assetCode string, amount uint64) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if err := validAmount(amount); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	adapter, ok := s.lenders[adapterName]
	if !ok {
		return ErrUnknownAdapter
	}

	holdings, err := s.store.Holdings(ctx, assetCode)
	if err != nil {
		return err
	}
	owed, err := s.store.Owed(ctx, assetCode)
	if err != nil {
		return err
	}
	required := owed + amount
	if required < owed {
		return ledger.ErrArithmetic
	}
	if holdings < required {
		return ErrInsolvent
	}

	receipt, err := adapter.Deposit(ctx, assetCode, amount)
	if err != nil {
		return fmt.Errorf("lending deposit: %w", err)
	}

	if err := s.store.Apply(ctx, ledger.Posting{
		Kind:      event.KindLendingDeposit,
		Reference: receipt.Reference,
		Outflows:  []ledger.Flow{{Asset: assetCode, Amount: amount}},
	}); err != nil {
		return err
	}

	s.audit(ctx, "deposit_to_lending", caller,
		slog.String("adapter", adapterName),
		slog.String("asset", assetCode),
		slog.Uint64("amount", amount))
	s.emit(ctx, event.Event{
		Kind:         event.KindLendingDeposit,
		Account:      caller,
		Counterparty: adapterName,
		Asset:        assetCode,
		Amount:       amount,
		Reference:    receipt.Reference,
		At:           s.now(),
	})
	return nil
}

// WithdrawFromLending recalls funds from a yield venue back into on-hand
// custody. Holdings rise by what the venue actually returned, which may be
// less than requested.
func (s *Service) WithdrawFromLending(ctx context.Context, caller, adapterName, assetCode string, amount uint64) (uint64, error) {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return 0, err
	}
	if err := validAmount(amount); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	adapter, ok := s.lenders[adapterName]
	if !ok {
		return 0, ErrUnknownAdapter
	}

	returned, err := adapter.Withdraw(ctx, assetCode, amount)
	if err != nil {
		return 0, fmt.Errorf("lending withdraw: %w", err)
	}
	if returned > 0 {
		if err := s.store.Apply(ctx, ledger.Posting{
			Kind:    event.KindLendingWithdraw,
			Inflows: []ledger.Flow{{Asset: assetCode, Amount: returned}},
		}); err != nil {
			return 0, err
		}
	}

	s.audit(ctx, "withdraw_from_lending", caller,
		slog.String("adapter", adapterName),
		slog.String("asset", assetCode),
		slog.Uint64("requested", amount),
		slog.Uint64("returned", returned))
	s.emit(ctx, event.Event{
		Kind:         event.KindLendingWithdraw,
		Account:      caller,
		Counterparty: adapterName,
		Asset:        assetCode,
		Amount:       returned,
		At:           s.now(),
	})
	return returned, nil
}

func (s *Service) requireAdmin(ctx context.Context, caller string) error {
	ok, err := s.admin.IsAdmin(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return admin.ErrUnauthorized
	}
	return nil
}
