package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Subscription is an active Pub/Sub subscription to a session's records.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan StoredEntry
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of mirrored records.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan StoredEntry {
	return s.events
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors - malformed messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe follows records mirrored under session, which may differ from
// the sink's own session. The subscription is confirmed by the server
// before Subscribe returns, so nothing published afterwards is missed.
//
// Delivery is at-most-once: a subscriber that falls behind Redis' output
// buffer loses messages.
func (s *RedisSink) Subscribe(ctx context.Context, session string) (*Subscription, error) {
	if err := ValidateSessionID(session); err != nil {
		return nil, err
	}
	pubsub := s.rdb.Subscribe(ctx, RecordEventsChannel(session))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	eventsChan := make(chan StoredEntry, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var entry StoredEntry
				if err := json.Unmarshal([]byte(msg.Payload), &entry); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal record event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- entry:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
