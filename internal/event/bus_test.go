package event

import (
	"context"
	"errors"
	"testing"
)

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		topic   Topic
		pattern Topic
		want    bool
	}{
		{"history.executed", "history.executed", true},
		{"history.executed", "history.undone", false},
		{"history.executed", "history.*", true},
		{"history.executed", "*.executed", true},
		{"history.executed", "*", false},
		{"history.executed", "**", true},
		{"history.executed", "history.**", true},
		{"history", "history.**", true},
		{"history.a.b", "history.*", false},
		{"history.a.b", "history.**.b", true},
		{"config.reloaded", "history.**", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.topic)+"~"+string(tt.pattern), func(t *testing.T) {
			if got := tt.topic.Matches(tt.pattern); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopicIsValid(t *testing.T) {
	valid := []Topic{"a", "a.b", "history.*"}
	invalid := []Topic{"", ".a", "a.", "a..b"}

	for _, tp := range valid {
		if !tp.IsValid() {
			t.Errorf("%q should be valid", tp)
		}
	}
	for _, tp := range invalid {
		if tp.IsValid() {
			t.Errorf("%q should be invalid", tp)
		}
	}
}

func TestBusPublishDelivers(t *testing.T) {
	bus := NewBus()
	var got []Topic

	_, err := bus.Subscribe("history.*", func(_ context.Context, ev Event) error {
		got = append(got, ev.Topic)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	_ = bus.Publish(ctx, New(TopicHistoryExecuted, nil, "test"))
	_ = bus.Publish(ctx, New(TopicConfigReloaded, nil, "test"))
	_ = bus.Publish(ctx, New(TopicHistoryUndone, nil, "test"))

	if len(got) != 2 || got[0] != TopicHistoryExecuted || got[1] != TopicHistoryUndone {
		t.Errorf("delivered %v", got)
	}

	stats := bus.Stats()
	if stats.EventsPublished != 3 || stats.EventsDelivered != 2 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestBusSubscribeValidation(t *testing.T) {
	bus := NewBus()
	if _, err := bus.Subscribe("history.*", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("nil handler error = %v", err)
	}
	if _, err := bus.Subscribe("", func(context.Context, Event) error { return nil }); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v", err)
	}
	if err := bus.Publish(context.Background(), Event{}); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish(empty) error = %v", err)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	sub, _ := bus.Subscribe("**", func(context.Context, Event) error {
		calls++
		return nil
	})

	if err := bus.Unsubscribe(sub); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if err := bus.Unsubscribe(sub); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("second Unsubscribe() error = %v", err)
	}

	_ = bus.Publish(context.Background(), New(TopicHistoryCleared, nil, "test"))
	if calls != 0 {
		t.Error("handler called after unsubscribe")
	}
	if bus.Stats().ActiveSubscribers != 0 {
		t.Error("subscriber count not updated")
	}
}

func TestBusHandlerErrorsAndPanics(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")
	reached := false

	_, _ = bus.Subscribe("history.*", func(context.Context, Event) error { return boom })
	_, _ = bus.Subscribe("history.*", func(context.Context, Event) error { panic("bad") })
	_, _ = bus.Subscribe("history.*", func(context.Context, Event) error {
		reached = true
		return nil
	})

	err := bus.Publish(context.Background(), New(TopicHistoryFailed, nil, "test"))
	if !errors.Is(err, boom) {
		t.Errorf("Publish() error = %v, want boom", err)
	}
	if !errors.Is(err, ErrHandlerPanic) {
		t.Errorf("Publish() error = %v, want ErrHandlerPanic", err)
	}
	var herr *HandlerError
	if !errors.As(err, &herr) || herr.Topic != TopicHistoryFailed {
		t.Errorf("error should carry a HandlerError, got %v", err)
	}
	if !reached {
		t.Error("later handlers should still run")
	}

	stats := bus.Stats()
	if stats.HandlerErrors != 1 || stats.HandlerPanics != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestNewEventMetadata(t *testing.T) {
	ev := New(TopicHistoryExecuted, 42, "history")
	if ev.Metadata.ID == "" || ev.Metadata.Timestamp.IsZero() || ev.Metadata.Source != "history" {
		t.Errorf("metadata = %+v", ev.Metadata)
	}
	if ev.Payload != 42 {
		t.Errorf("Payload = %v", ev.Payload)
	}
}
