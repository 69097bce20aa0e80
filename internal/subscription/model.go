package subscription

import "time"

// Subscription is a recurring pull agreement between a subscriber and a
// merchant. The state machine has two states: active and cancelled;
// cancellation is terminal and there is no paused state.
type Subscription struct {
	ID         string
	Subscriber string
	Merchant   string
	Asset      string
	Amount     uint64
	Period     time.Duration
	NextDue    time.Time
	Active     bool
	CreatedAt  time.Time
}

// Due reports whether the subscription is chargeable at the given instant.
func (s Subscription) Due(now time.Time) bool {
	return s.Active && !now.Before(s.NextDue)
}
