// Package event provides a small synchronous publish/subscribe bus used to
// fan out history lifecycle notifications.
//
// Topics are dot separated ("history.executed"). Subscription patterns may
// use "*" to match exactly one segment and "**" to match zero or more:
//
//	bus := event.NewBus()
//	sub, _ := bus.Subscribe("history.*", func(ctx context.Context, ev event.Event) error {
//	    log.Printf("%s: %v", ev.Topic, ev.Payload)
//	    return nil
//	})
//	defer bus.Unsubscribe(sub)
//
//	_ = bus.Publish(ctx, event.New(event.TopicHistoryExecuted, entry, "app"))
//
// Handlers run in the publisher's goroutine in subscription order. A
// panicking handler is recovered and reported as ErrHandlerPanic.
package event
