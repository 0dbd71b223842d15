package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const rideFeedChannel = "rides:events"

// RideEventKind identifies a ride lifecycle event on the feed.
type RideEventKind string

const (
	RideEventCreated       RideEventKind = "ride_created"
	RideEventStatusChanged RideEventKind = "ride_status_changed"
)

// RideEvent is the change notification published on every ride
// mutation. Driver and passenger clients subscribed to the feed
// re-read their view of the store when one arrives; the event itself
// carries enough to decide relevance without a read.
type RideEvent struct {
	Kind        RideEventKind `json:"event"`
	RideID      string        `json:"ride_id"`
	FromStatus  string        `json:"from_state,omitempty"`
	ToStatus    string        `json:"to_state"`
	DriverID    string        `json:"driver_id,omitempty"`
	PassengerID string        `json:"passenger_id"`
}

// RideFeed is a pub/sub change feed over ride documents.
type RideFeed struct {
	client *redis.Client
}

// NewRideFeed creates a new RideFeed.
func NewRideFeed(client *redis.Client) *RideFeed {
	return &RideFeed{client: client}
}

// Publish emits an event to all subscribers. Failures are returned to
// the caller but must not roll back the store write that produced the
// event; the feed is a notification channel, not the source of truth.
func (f *RideFeed) Publish(ctx context.Context, event RideEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, rideFeedChannel, payload).Err()
}

// Subscribe returns a channel of ride events. The channel closes when
// ctx is cancelled. Events that fail to decode are dropped.
func (f *RideFeed) Subscribe(ctx context.Context) (<-chan RideEvent, error) {
	sub := f.client.Subscribe(ctx, rideFeedChannel)

	// Force the subscription to be established before returning.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	events := make(chan RideEvent)
	go func() {
		defer sub.Close()
		forwardEvents(ctx, sub.Channel(), events)
	}()

	return events, nil
}

// forwardEvents decodes raw feed messages onto events until ctx is
// cancelled or msgs closes, then closes events. Payloads that fail to
// decode are dropped.
func forwardEvents(ctx context.Context, msgs <-chan *redis.Message, events chan<- RideEvent) {
	defer close(events)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var event RideEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
