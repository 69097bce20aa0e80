package event

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestStreamEmitterAppendsToStream(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	emitter := NewStreamEmitter(client, "")
	ctx := context.Background()

	ev := Event{
		Kind:         KindWithdraw,
		Account:      "acct:alice",
		Counterparty: "0xdest",
		Asset:        "USDC",
		Amount:       99,
		Fee:          1,
		Reference:    "w-1",
		At:           time.Now().UTC(),
	}
	if err := emitter.Emit(ctx, ev); err != nil {
		t.Fatalf("emit: %v", err)
	}

	entries, err := client.XRange(ctx, DefaultStream, "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	got := entries[0].Values
	if got["kind"] != KindWithdraw {
		t.Fatalf("expected kind %q, got %v", KindWithdraw, got["kind"])
	}
	if got["amount"] != "99" || got["fee"] != "1" {
		t.Fatalf("unexpected amounts: %v", got)
	}
	if got["reference"] != "w-1" {
		t.Fatalf("unexpected reference: %v", got["reference"])
	}
}

func TestMemoryEmitterRecordsInOrder(t *testing.T) {
	emitter := NewMemoryEmitter()
	ctx := context.Background()

	kinds := []string{KindDeposit, KindWithdraw, KindLinkClaimed}
	for _, kind := range kinds {
		if err := emitter.Emit(ctx, Event{Kind: kind}); err != nil {
			t.Fatalf("emit %s: %v", kind, err)
		}
	}

	events := emitter.Events()
	if len(events) != len(kinds) {
		t.Fatalf("expected %d events, got %d", len(kinds), len(events))
	}
	for i, kind := range kinds {
		if events[i].Kind != kind {
			t.Fatalf("event %d: expected %s, got %s", i, kind, events[i].Kind)
		}
	}
}
