package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stablevault/stablevault/internal/admin"
	"github.com/stablevault/stablevault/internal/asset"
	"github.com/stablevault/stablevault/internal/event"
)

// Puller is the narrow slice of the vault the biller may use. The vault
// owns the fee computation; a pull that fails on balance reports ok=false
// instead of an error so the biller can retry the cycle later.
type Puller interface {
	PullForSubscription(ctx context.Context, subscriber, asset string, amount uint64, merchant string) (bool, error)
}

// Service owns the subscription state machine and the charge schedule.
// AttemptCharge is deliberately permissionless: any keeper may trigger a
// due charge, and holds no privilege over the funds by doing so.
type Service struct {
	mu      sync.Mutex
	repo    Repository
	puller  Puller
	assets  asset.Registry
	admins  admin.Repository
	emitter event.Emitter
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires the biller with its collaborators.
func NewService(repo Repository, puller Puller, assets asset.Registry, admins admin.Repository, emitter event.Emitter, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		puller:  puller,
		assets:  assets,
		admins:  admins,
		emitter: emitter,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the service clock; used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateInput captures the data required to open a subscription.
type CreateInput struct {
	Subscriber string
	Merchant   string
	Asset      string
	Amount     uint64
	Period     time.Duration
}

// Create stores a new active subscription with the first charge due one
// period from now.
func (s *Service) Create(ctx context.Context, input CreateInput) (Subscription, error) {
	if input.Amount == 0 {
		return Subscription{}, fmt.Errorf("amount must be positive")
	}
	if input.Period <= 0 {
		return Subscription{}, fmt.Errorf("period must be positive")
	}
	if input.Merchant == "" {
		return Subscription{}, fmt.Errorf("merchant is required")
	}
	allowed, err := s.assets.IsAllowed(ctx, input.Asset)
	if err != nil {
		return Subscription{}, err
	}
	if !allowed {
		return Subscription{}, asset.ErrNotAllowed
	}

	now := s.now()
	sub := Subscription{
		ID:         uuid.NewString(),
		Subscriber: input.Subscriber,
		Merchant:   input.Merchant,
		Asset:      input.Asset,
		Amount:     input.Amount,
		Period:     input.Period,
		NextDue:    now.Add(input.Period),
		Active:     true,
		CreatedAt:  now,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return Subscription{}, err
	}

	s.emit(ctx, event.Event{
		Kind:         event.KindSubscriptionCreated,
		Account:      sub.Subscriber,
		Counterparty: sub.Merchant,
		Asset:        sub.Asset,
		Amount:       sub.Amount,
		Reference:    sub.ID,
		At:           now,
	})
	return sub, nil
}

// Cancel deactivates a subscription. Only the subscriber or an
// administrator may cancel; cancelling an already-cancelled subscription is
// a no-op.
func (s *Service) Cancel(ctx context.Context, id, caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if caller != sub.Subscriber {
		isAdmin, err := s.admins.IsAdmin(ctx, caller)
		if err != nil {
			return err
		}
		if !isAdmin {
			return admin.ErrUnauthorized
		}
	}
	if !sub.Active {
		return nil
	}

	sub.Active = false
	if err := s.repo.Update(ctx, sub); err != nil {
		return err
	}

	s.emit(ctx, event.Event{
		Kind:         event.KindSubscriptionCancelled,
		Account:      sub.Subscriber,
		Counterparty: sub.Merchant,
		Asset:        sub.Asset,
		Amount:       sub.Amount,
		Reference:    sub.ID,
		At:           s.now(),
	})
	return nil
}

// AttemptCharge pulls one due cycle from the subscriber. A successful
// charge advances NextDue by exactly one period rather than resetting from
// now, so a late keeper does not drift the billing cadence. An unfunded
// subscriber yields (false, nil) with the schedule untouched, letting the
// same cycle be retried later.
func (s *Service) AttemptCharge(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if !sub.Active {
		return false, ErrNotActive
	}
	if s.now().Before(sub.NextDue) {
		return false, ErrNotDue
	}

	ok, err := s.puller.PullForSubscription(ctx, sub.Subscriber, sub.Asset, sub.Amount, sub.Merchant)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	sub.NextDue = sub.NextDue.Add(sub.Period)
	if err := s.repo.Update(ctx, sub); err != nil {
		return false, err
	}

	s.emit(ctx, event.Event{
		Kind:         event.KindSubscriptionCharged,
		Account:      sub.Subscriber,
		Counterparty: sub.Merchant,
		Asset:        sub.Asset,
		Amount:       sub.Amount,
		Reference:    sub.ID,
		At:           s.now(),
	})
	return true, nil
}

// Due reports whether a charge attempt would currently pass the schedule
// check; side-effect free, for external keepers deciding when to call.
func (s *Service) Due(ctx context.Context, id string) (bool, error) {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return sub.Due(s.now()), nil
}

// Get returns subscription metadata; side-effect free.
func (s *Service) Get(ctx context.Context, id string) (Subscription, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) emit(ctx context.Context, ev event.Event) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(ctx, ev); err != nil && s.logger != nil {
		s.logger.Warn("emit event", slog.String("kind", ev.Kind), slog.Any("error", err))
	}
}
