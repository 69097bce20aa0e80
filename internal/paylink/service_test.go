package paylink

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

type linkFixture struct {
	store ledger.Store
	svc   *Service
}

func newLinkFixture(t *testing.T) linkFixture {
	t.Helper()
	ctx := context.Background()

	store := ledger.NewInMemory()
	registry := asset.NewMemoryRegistry()
	if err := registry.Allow(ctx, "USDC"); err != nil {
		t.Fatalf("allow USDC: %v", err)
	}
	vaultSvc := vault.NewService(store, registry, admin.NewMemoryRepository("acct:admin"),
		token.StaticMover{}, swap.NewFixedRateAdapter(), event.NewMemoryEmitter(), logging.Discard())

	svc := NewService(NewMemoryRepository(), vaultSvc, event.NewMemoryEmitter(), logging.Discard())
	return linkFixture{store: store, svc: svc}
}

func TestCreateDebitsCreatorIntoEscrow(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	ledger.SeedBalance(f.store, "acct:alice", "USDC", 200)

	link, err := f.svc.Create(ctx, CreateInput{
		Creator:    "acct:alice",
		Asset:      "USDC",
		Amount:     25,
		SecretHash: HashSecret("s3cr3t"),
		Expiry:     time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if link.ID == "" {
		t.Fatal("expected generated link id")
	}

	alice, _ := f.store.Balance(ctx, "acct:alice", "USDC")
	if alice != 175 {
		t.Fatalf("creator should be debited at creation, got %d", alice)
	}
	escrowed, _ := f.store.Balance(ctx, ledger.EscrowAccount, "USDC")
	if escrowed != 25 {
		t.Fatalf("expected 25 in escrow, got %d", escrowed)
	}
}

func TestCreateRequiresSufficientBalance(t *testing.T) {
	f := newLinkFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{
		Creator:    "acct:alice",
		Asset:      "USDC",
		Amount:     25,
		SecretHash: HashSecret("s3cr3t"),
		Expiry:     time.Now().Add(time.Hour),
	})
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestCreateRejectsPastExpiryAndDuplicateID(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	ledger.SeedBalance(f.store, "acct:alice", "USDC", 200)

	if _, err := f.svc.Create(ctx, CreateInput{
		Creator:    "acct:alice",
		Asset:      "USDC",
		Amount:     25,
		SecretHash: HashSecret("s3cr3t"),
		Expiry:     time.Now().Add(-time.Minute),
	}); err == nil {
		t.Fatal("expected past expiry to be rejected")
	}

	input := CreateInput{
		ID:         "link-1",
		Creator:    "acct:alice",
		Asset:      "USDC",
		Amount:     25,
		SecretHash: HashSecret("s3cr3t"),
		Expiry:     time.Now().Add(time.Hour),
	}
	if _, err := f.svc.Create(ctx, input); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Create(ctx, input); !errors.Is(err, ErrExists) {
		t.Fatalf("expected duplicate id rejection, got %v", err)
	}
}

func TestClaimReleasesEscrowOnce(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	ledger.SeedBalance(f.store, "acct:alice", "USDC", 200)

	link, err := f.svc.Create(ctx, CreateInput{
		Creator:    "acct:alice",
		Asset:      "USDC",
		Amount:     25,
		SecretHash: HashSecret("s3cr3t"),
		Expiry:     time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	claimed, err := f.svc.Claim(ctx, link.ID, "s3cr3t", "acct:bob")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !claimed.Claimed || claimed.ClaimedBy != "acct:bob" {
		t.Fatalf("unexpected claim state: %+v", claimed)
	}

	bob, _ := f.store.Balance(ctx, "acct:bob", "USDC")
	if bob != 25 {
		t.Fatalf("expected claimant balance 25, got %d", bob)
	}

	if _, err := f.svc.Claim(ctx, link.ID, "s3cr3t", "acct:carol"); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected already claimed, got %v", err)
	}
}

func TestClaimWrongSecret(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	ledger.SeedBalance(f.store, "acct:alice", "USDC", 200)

	link, err := f.svc.Create(ctx, CreateInput{
		Creator:    "acct:alice",
		Asset:      "USDC",
		Amount:     25,
		SecretHash: HashSecret("s3cr3t"),
		Expiry:     time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Claim(ctx, link.ID, "guess", "acct:bob"); !errors.Is(err, ErrInvalidSecret) {
		t.Fatalf("expected invalid secret, got %v", err)
	}

	bob, _ := f.store.Balance(ctx, "acct:bob", "USDC")
	if bob != 0 {
		t.Fatalf("wrong secret must not move funds, got %d", bob)
	}
}

func TestClaimAfterExpiryFailsEvenWithCorrectSecret(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	ledger.SeedBalance(f.store, "acct:alice", "USDC", 200)

	now := time.Now().UTC()
	f.svc.SetClock(func() time.Time { return now })

	link, err := f.svc.Create(ctx, CreateInput{
		Creator:    "acct:alice",
		Asset:      "USDC",
		Amount:     25,
		SecretHash: HashSecret("s3cr3t"),
		Expiry:     now.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	f.svc.SetClock(func() time.Time { return now.Add(2 * time.Minute) })

	if _, err := f.svc.Claim(ctx, link.ID, "s3cr3t", "acct:bob"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestClaimUnknownLink(t *testing.T) {
	f := newLinkFixture(t)

	if _, err := f.svc.Claim(context.Background(), "nope", "s3cr3t", "acct:bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRefundReturnsExpiredLinkFundsToCreator(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	ledger.SeedBalance(f.store, "acct:alice", "USDC", 200)

	now := time.Now().UTC()
	f.svc.SetClock(func() time.Time { return now })

	link, err := f.svc.Create(ctx, CreateInput{
		Creator:    "acct:alice",
		Asset:      "USDC",
		Amount:     25,
		SecretHash: HashSecret("s3cr3t"),
		Expiry:     now.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// not yet expired
	if _, err := f.svc.Refund(ctx, link.ID, "acct:alice"); !errors.Is(err, ErrNotExpired) {
		t.Fatalf("expected not expired, got %v", err)
	}

	f.svc.SetClock(func() time.Time { return now.Add(2 * time.Minute) })

	// only the creator may reclaim
	if _, err := f.svc.Refund(ctx, link.ID, "acct:bob"); !errors.Is(err, admin.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	refunded, err := f.svc.Refund(ctx, link.ID, "acct:alice")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if !refunded.Refunded {
		t.Fatalf("expected refunded link, got %+v", refunded)
	}

	alice, _ := f.store.Balance(ctx, "acct:alice", "USDC")
	if alice != 200 {
		t.Fatalf("expected creator made whole, got %d", alice)
	}

	if _, err := f.svc.Refund(ctx, link.ID, "acct:alice"); !errors.Is(err, ErrAlreadyRefunded) {
		t.Fatalf("expected already refunded, got %v", err)
	}
	if _, err := f.svc.Claim(ctx, link.ID, "s3cr3t", "acct:bob"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected refunded link to be unclaimable, got %v", err)
	}
}

func TestHashSecretMatchesPrefixedDigests(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	ledger.SeedBalance(f.store, "acct:alice", "USDC", 200)

	link, err := f.svc.Create(ctx, CreateInput{
		Creator:    "acct:alice",
		Asset:      "USDC",
		Amount:     25,
		SecretHash: "0x" + HashSecret("s3cr3t"),
		Expiry:     time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create with 0x digest: %v", err)
	}

	if _, err := f.svc.Claim(ctx, link.ID, "s3cr3t", "acct:bob"); err != nil {
		t.Fatalf("claim: %v", err)
	}
}
