package event

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStream is the Redis stream ledger records are appended to.
const DefaultStream = "ledger:events"

// StreamEmitter appends events to a Redis stream so indexers and the
// notification layer can consume them without polling the API.
type StreamEmitter struct {
	client *redis.Client
	stream string
}

// NewStreamEmitter constructs a Redis stream emitter. An empty stream name
// falls back to DefaultStream.
func NewStreamEmitter(client *redis.Client, stream string) *StreamEmitter {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamEmitter{client: client, stream: stream}
}

// Emit appends the event to the stream.
func (e *StreamEmitter) Emit(ctx context.Context, ev Event) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return e.client.XAdd(ctx, &redis.XAddArgs{
		Stream: e.stream,
		Values: map[string]interface{}{
			"kind":         ev.Kind,
			"account":      ev.Account,
			"counterparty": ev.Counterparty,
			"asset":        ev.Asset,
			"amount":       strconv.FormatUint(ev.Amount, 10),
			"fee":          strconv.FormatUint(ev.Fee, 10),
			"reference":    ev.Reference,
			"at":           at.Format(time.RFC3339Nano),
		},
	}).Err()
}
