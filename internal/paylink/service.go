package paylink

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stablevault/stablevault/internal/admin"
	"github.com/stablevault/stablevault/internal/event"
)

// Escrow is the narrow slice of the vault the link escrow may use: it moves
// funds between the creator, the escrow account and the claimant without
// ever bypassing the ledger's invariants.
type Escrow interface {
	EscrowLock(ctx context.Context, creator, asset string, amount uint64, reference string) error
	EscrowRelease(ctx context.Context, to, asset string, amount uint64, reference string) error
}

// Service owns the payment-link state machine:
// Created -> Claimed (terminal) or Created -> expired -> Refunded (terminal).
type Service struct {
	mu      sync.Mutex
	repo    Repository
	escrow  Escrow
	emitter event.Emitter
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires the link escrow with its collaborators.
func NewService(repo Repository, escrow Escrow, emitter event.Emitter, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		escrow:  escrow,
		emitter: emitter,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the service clock; used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateInput captures the data required to create a link. An empty ID gets
// a generated one.
type CreateInput struct {
	ID         string
	Creator    string
	Asset      string
	Amount     uint64
	SecretHash string
	Expiry     time.Time
}

// Create debits the creator and locks the funds in escrow behind the secret
// hash. The debit happens now, not at claim time.
func (s *Service) Create(ctx context.Context, input CreateInput) (Link, error) {
	if input.Amount == 0 {
		return Link{}, fmt.Errorf("amount must be positive")
	}
	hash, ok := NormalizeHash(input.SecretHash)
	if !ok {
		return Link{}, fmt.Errorf("secret hash must be 32 hex-encoded bytes")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.now().Before(input.Expiry) {
		return Link{}, fmt.Errorf("expiry must be in the future")
	}

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := s.repo.Get(ctx, id); err == nil {
		return Link{}, ErrExists
	} else if err != ErrNotFound {
		return Link{}, err
	}

	if err := s.escrow.EscrowLock(ctx, input.Creator, input.Asset, input.Amount, id); err != nil {
		return Link{}, err
	}

	link := Link{
		ID:         id,
		Creator:    input.Creator,
		Asset:      input.Asset,
		Amount:     input.Amount,
		SecretHash: hash,
		Expiry:     input.Expiry.UTC(),
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, link); err != nil {
		// The escrow leg applied but the record did not; hand the funds back
		// so nothing is stranded.
		if relErr := s.escrow.EscrowRelease(ctx, input.Creator, input.Asset, input.Amount, id); relErr != nil && s.logger != nil {
			s.logger.Error("escrow unwind failed", slog.String("link_id", id), slog.Any("error", relErr))
		}
		return Link{}, err
	}

	s.emit(ctx, event.Event{
		Kind:      event.KindLinkCreated,
		Account:   input.Creator,
		Asset:     input.Asset,
		Amount:    input.Amount,
		Reference: id,
		At:        s.now(),
	})
	return link, nil
}

// Claim releases the escrowed funds to the claimant when the secret matches
// the lock. A link is claimable at most once and only before expiry; the
// distinct error kinds let the caller present different messaging per case.
func (s *Service) Claim(ctx context.Context, id, secret, claimant string) (Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.repo.Get(ctx, id)
	if err != nil {
		return Link{}, err
	}
	if link.Refunded || !s.now().Before(link.Expiry) {
		return Link{}, ErrExpired
	}
	if link.Claimed {
		return Link{}, ErrAlreadyClaimed
	}
	if !secretMatches(secret, link.SecretHash) {
		return Link{}, ErrInvalidSecret
	}

	if err := s.repo.MarkClaimed(ctx, id, claimant); err != nil {
		return Link{}, err
	}
	if err := s.escrow.EscrowRelease(ctx, claimant, link.Asset, link.Amount, id); err != nil {
		return Link{}, err
	}

	link.Claimed = true
	link.ClaimedBy = claimant

	s.emit(ctx, event.Event{
		Kind:         event.KindLinkClaimed,
		Account:      link.Creator,
		Counterparty: claimant,
		Asset:        link.Asset,
		Amount:       link.Amount,
		Reference:    id,
		At:           s.now(),
	})
	return link, nil
}

// Refund returns escrowed funds of an expired, unclaimed link to its
// creator. Only the creator may reclaim, and only after expiry.
func (s *Service) Refund(ctx context.Context, id, caller string) (Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.repo.Get(ctx, id)
	if err != nil {
		return Link{}, err
	}
	if caller != link.Creator {
		return Link{}, admin.ErrUnauthorized
	}
	if link.Claimed {
		return Link{}, ErrAlreadyClaimed
	}
	if link.Refunded {
		return Link{}, ErrAlreadyRefunded
	}
	if s.now().Before(link.Expiry) {
		return Link{}, ErrNotExpired
	}

	if err := s.repo.MarkRefunded(ctx, id); err != nil {
		return Link{}, err
	}
	if err := s.escrow.EscrowRelease(ctx, link.Creator, link.Asset, link.Amount, id); err != nil {
		return Link{}, err
	}

	link.Refunded = true

	s.emit(ctx, event.Event{
		Kind:      event.KindLinkRefunded,
		Account:   link.Creator,
		Asset:     link.Asset,
		Amount:    link.Amount,
		Reference: id,
		At:        s.now(),
	})
	return link, nil
}

// Get returns link metadata; side-effect free.
func (s *Service) Get(ctx context.Context, id string) (Link, error) {
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

func secretMatches(secret, storedHash string) bool {
	stored, err := hex.DecodeString(storedHash)
	if err != nil {
		return false
	}
	computed, err := hex.DecodeString(HashSecret(secret))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(stored, computed) == 1
}
