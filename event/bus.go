// file: event/bus.go

package event

import (
	"context"
	"sync"

	"staff-identity-api/logger"
)

// Subscriber consumes domain events. Implementations type-switch over
// the closed variant set and ignore kinds they do not handle.
type Subscriber interface {
	Handle(ctx context.Context, ev Event) error
}

// Bus dispatches domain events in-process and synchronously, after the
// publishing unit of work has committed. Subscribers that need storage
// open their own unit of work; a subscriber failure is logged and does
// not stop delivery to the remaining subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Subscriber
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a subscriber for all event kinds.
func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, s)
}

// Publish delivers one event to every subscriber.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.Handle(ctx, ev); err != nil {
			logger.Log.WithError(err).WithField("staff_account_id", ev.StaffID()).
				Error("Event subscriber failed")
		}
	}
}

// PublishAll delivers a batch of events in order.
func (b *Bus) PublishAll(ctx context.Context, events []Event) {
	for _, ev := range events {
		b.Publish(ctx, ev)
	}
}
