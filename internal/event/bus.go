package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// HandlerFunc handles a delivered event.
type HandlerFunc func(ctx context.Context, ev Event) error

// Subscription is an active registration on a Bus.
type Subscription struct {
	id      string
	pattern Topic
	handler HandlerFunc
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Pattern returns the subscribed topic pattern.
func (s *Subscription) Pattern() Topic { return s.pattern }

// Stats holds bus counters.
type Stats struct {
	EventsPublished   uint64
	EventsDelivered   uint64
	HandlerErrors     uint64
	HandlerPanics     uint64
	ActiveSubscribers int
}

// Bus delivers events synchronously to matching subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs []*Subscription

	eventsPublished atomic.Uint64
	eventsDelivered atomic.Uint64
	handlerErrors   atomic.Uint64
	handlerPanics   atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for events whose topic matches pattern.
// This method is safe to call concurrently.
func (b *Bus) Subscribe(pattern Topic, fn HandlerFunc) (*Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, ErrInvalidTopic
	}

	sub := &Subscription{id: uuid.NewString(), pattern: pattern, handler: fn}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub, nil
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return ErrSubscriptionNotFound
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// Publish delivers ev to every matching subscriber in the caller's goroutine.
// All handlers run even if some fail; their errors are joined.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if !ev.Topic.IsValid() {
		return ErrInvalidTopic
	}

	b.mu.RLock()
	var matched []*Subscription
	for _, s := range b.subs {
		if ev.Topic.Matches(s.pattern) {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	b.eventsPublished.Add(1)

	var errs []error
	for _, s := range matched {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := b.deliver(ctx, s, ev); err != nil {
			errs = append(errs, &HandlerError{SubscriptionID: s.id, Topic: ev.Topic, Err: err})
			continue
		}
		b.eventsDelivered.Add(1)
	}
	return errors.Join(errs...)
}

// deliver runs a single handler with panic recovery.
func (b *Bus) deliver(ctx context.Context, s *Subscription, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerPanics.Add(1)
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()

	if err := s.handler(ctx, ev); err != nil {
		b.handlerErrors.Add(1)
		return err
	}
	return nil
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	active := len(b.subs)
	b.mu.RUnlock()

	return Stats{
		EventsPublished:   b.eventsPublished.Load(),
		EventsDelivered:   b.eventsDelivered.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		ActiveSubscribers: active,
	}
}
