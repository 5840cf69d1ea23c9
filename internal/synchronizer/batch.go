package synchronizer

import (
	"fmt"

	"github.com/sandwichfarm/nostr-observatory/internal/model"
)

// EventBatch accumulates events received from one relay's subscription
// up to a fixed limit, per spec §4.8's "EventBatch is bounded by
// filter.limit" semantics.
type EventBatch struct {
	limit  int
	events []model.Event
}

// NewEventBatch builds an EventBatch bounded at limit.
func NewEventBatch(limit int) *EventBatch {
	return &EventBatch{limit: limit}
}

// Append adds ev to the batch. Appending to a full batch is an error —
// the fetch loop must flush first, per spec §4.8.
func (b *EventBatch) Append(ev model.Event) error {
	if b.Full() {
		return fmt.Errorf("event batch is full (limit %d): flush before appending", b.limit)
	}
	b.events = append(b.events, ev)
	return nil
}

// Full reports whether the batch has reached its limit.
func (b *EventBatch) Full() bool { return b.limit > 0 && len(b.events) >= b.limit }

// Empty reports whether the batch holds no events.
func (b *EventBatch) Empty() bool { return len(b.events) == 0 }

// Events returns the accumulated events.
func (b *EventBatch) Events() []model.Event { return b.events }

// OldestCreatedAt returns the minimum created_at among the batch's
// events, used to advance the window's lower bound after a flush.
func (b *EventBatch) OldestCreatedAt() (int64, bool) {
	if b.Empty() {
		return 0, false
	}
	oldest := b.events[0].CreatedAt
	for _, ev := range b.events[1:] {
		if ev.CreatedAt < oldest {
			oldest = ev.CreatedAt
		}
	}
	return oldest, true
}

// Reset clears the batch for reuse after a flush.
func (b *EventBatch) Reset() { b.events = nil }
