package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stablevault/stablevault/internal/admin"
	"github.com/stablevault/stablevault/internal/asset"
	"github.com/stablevault/stablevault/internal/event"
	"github.com/stablevault/stablevault/internal/ledger"
	"github.com/stablevault/stablevault/internal/logging"
	"github.com/stablevault/stablevault/internal/swap"
	"github.com/stablevault/stablevault/internal/token"
	"github.com/stablevault/stablevault/internal/vault"
)

const adminAccount = "acct:admin"

type billerFixture struct {
	store   ledger.Store
	vault   *vault.Service
	emitter *event.MemoryEmitter
	svc     *Service
}

func newBillerFixture(t *testing.T) billerFixture {
	t.Helper()
	ctx := context.Background()

	store := ledger.NewInMemory()
	registry := asset.NewMemoryRegistry()
	if err := registry.Allow(ctx, "USDC"); err != nil {
		t.Fatalf("allow USDC: %v", err)
	}
	admins := admin.NewMemoryRepository(adminAccount)
	vaultSvc := vault.NewService(store, registry, admins,
		token.StaticMover{}, swap.NewFixedRateAdapter(), event.NewMemoryEmitter(), logging.Discard())

	emitter := event.NewMemoryEmitter()
	svc := NewService(NewMemoryRepository(), vaultSvc, registry, admins, emitter, logging.Discard())
	return billerFixture{store: store, vault: vaultSvc, emitter: emitter, svc: svc}
}

func TestCreateSubscriptionSchedulesFirstCharge(t *testing.T) {
	f := newBillerFixture(t)
	ctx := context.Background()

	now := time.Now().UTC()
	f.svc.SetClock(func() time.Time { return now })

	sub, err := f.svc.Create(ctx, CreateInput{
		Subscriber: "acct:alice",
		Merchant:   "acct:merchant",
		Asset:      "USDC",
		Amount:     300,
		Period:     time.Second,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !sub.Active {
		t.Fatal("expected active subscription")
	}
	if !sub.NextDue.Equal(now.Add(time.Second)) {
		t.Fatalf("expected first due one period out, got %v", sub.NextDue)
	}
}

func TestCreateSubscriptionValidation(t *testing.T) {
	f := newBillerFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, CreateInput{
		Subscriber: "acct:alice", Merchant: "acct:merchant", Asset: "DOGE", Amount: 300, Period: time.Second,
	}); !errors.Is(err, asset.ErrNotAllowed) {
		t.Fatalf("expected asset not allowed, got %v", err)
	}

	if _, err := f.svc.Create(ctx, CreateInput{
		Subscriber: "acct:alice", Merchant: "acct:merchant", Asset: "USDC", Amount: 300,
	}); err == nil {
		t.Fatal("expected zero period to be rejected")
	}
}

func TestAttemptChargePaysMerchantNetOfFee(t *testing.T) {
	f := newBillerFixture(t)
	ctx := context.Background()

	ledger.SeedBalance(f.store, "acct:alice", "USDC", 1_000)
	if err := f.vault.SetFee(ctx, adminAccount, 100, "acct:operator"); err != nil {
		t.Fatalf("set fee: %v", err)
	}

	now := time.Now().UTC()
	f.svc.SetClock(func() time.Time { return now })

	sub, err := f.svc.Create(ctx, CreateInput{
		Subscriber: "acct:alice", Merchant: "acct:merchant", Asset: "USDC", Amount: 300, Period: time.Second,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// not yet due
	if _, err := f.svc.AttemptCharge(ctx, sub.ID); !errors.Is(err, ErrNotDue) {
		t.Fatalf("expected not due, got %v", err)
	}

	f.svc.SetClock(func() time.Time { return now.Add(2 * time.Second) })

	ok, err := f.svc.AttemptCharge(ctx, sub.ID)
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if !ok {
		t.Fatal("expected charge to succeed")
	}

	merchant, _ := f.store.Balance(ctx, "acct:merchant", "USDC")
	if merchant != 297 {
		t.Fatalf("expected merchant 297, got %d", merchant)
	}
	operator, _ := f.store.Balance(ctx, "acct:operator", "USDC")
	if operator != 3 {
		t.Fatalf("expected fee recipient 3, got %d", operator)
	}
	alice, _ := f.store.Balance(ctx, "acct:alice", "USDC")
	if alice != 700 {
		t.Fatalf("expected subscriber 700, got %d", alice)
	}
}

func TestAttemptChargeKeepsFixedCadence(t *testing.T) {
	f := newBillerFixture(t)
	ctx := context.Background()

	ledger.SeedBalance(f.store, "acct:alice", "USDC", 10_000)

	now := time.Now().UTC()
	f.svc.SetClock(func() time.Time { return now })

	sub, err := f.svc.Create(ctx, CreateInput{
		Subscriber: "acct:alice", Merchant: "acct:merchant", Asset: "USDC", Amount: 300, Period: time.Second,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	firstDue := sub.NextDue

	// keeper shows up very late; cadence must not drift to now+period
	f.svc.SetClock(func() time.Time { return now.Add(10 * time.Second) })

	for i := 0; i < 3; i++ {
		ok, err := f.svc.AttemptCharge(ctx, sub.ID)
		if err != nil {
			t.Fatalf("charge %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("charge %d soft-failed", i)
		}
	}

	charged, err := f.svc.Get(ctx, sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := firstDue.Add(3 * time.Second)
	if !charged.NextDue.Equal(want) {
		t.Fatalf("expected next due %v, got %v", want, charged.NextDue)
	}
}

func TestAttemptChargeSoftFailsWithoutFunds(t *testing.T) {
	f := newBillerFixture(t)
	ctx := context.Background()

	now := time.Now().UTC()
	f.svc.SetClock(func() time.Time { return now })

	sub, err := f.svc.Create(ctx, CreateInput{
		Subscriber: "acct:alice", Merchant: "acct:merchant", Asset: "USDC", Amount: 300, Period: time.Second,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	f.svc.SetClock(func() time.Time { return now.Add(2 * time.Second) })

	ok, err := f.svc.AttemptCharge(ctx, sub.ID)
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if ok {
		t.Fatal("expected soft failure on empty balance")
	}

	unchanged, _ := f.svc.Get(ctx, sub.ID)
	if !unchanged.NextDue.Equal(sub.NextDue) {
		t.Fatalf("soft failure must not advance schedule: %v", unchanged.NextDue)
	}

	// fund and retry the same cycle
	ledger.SeedBalance(f.store, "acct:alice", "USDC", 1_000)
	ok, err = f.svc.AttemptCharge(ctx, sub.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !ok {
		t.Fatal("expected retry to succeed")
	}
}

func TestCancelAuthorizationAndIdempotence(t *testing.T) {
	f := newBillerFixture(t)
	ctx := context.Background()

	sub, err := f.svc.Create(ctx, CreateInput{
		Subscriber: "acct:alice", Merchant: "acct:merchant", Asset: "USDC", Amount: 300, Period: time.Second,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.Cancel(ctx, sub.ID, "acct:mallory"); !errors.Is(err, admin.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := f.svc.Cancel(ctx, sub.ID, "acct:alice"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// cancelling again is a no-op, not an error
	if err := f.svc.Cancel(ctx, sub.ID, "acct:alice"); err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	// administrators may also cancel
	if err := f.svc.Cancel(ctx, sub.ID, adminAccount); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}

	if _, err := f.svc.AttemptCharge(ctx, sub.ID); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected not active, got %v", err)
	}
}

func TestDueIsPureQuery(t *testing.T) {
	f := newBillerFixture(t)
	ctx := context.Background()

	now := time.Now().UTC()
	f.svc.SetClock(func() time.Time { return now })

	sub, err := f.svc.Create(ctx, CreateInput{
		Subscriber: "acct:alice", Merchant: "acct:merchant", Asset: "USDC", Amount: 300, Period: time.Minute,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	due, err := f.svc.Due(ctx, sub.ID)
	if err != nil || due {
		t.Fatalf("expected not due, got due=%v err=%v", due, err)
	}

	f.svc.SetClock(func() time.Time { return now.Add(2 * time.Minute) })
	due, err = f.svc.Due(ctx, sub.ID)
	if err != nil || !due {
		t.Fatalf("expected due, got due=%v err=%v", due, err)
	}

	if _, err := f.svc.Due(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
