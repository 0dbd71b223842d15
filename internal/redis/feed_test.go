package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestForwardEvents_DecodesPublishedPayload(t *testing.T) {
	msgs := make(chan *redis.Message, 1)
	events := make(chan RideEvent)
	go forwardEvents(context.Background(), msgs, events)

	msgs <- &redis.Message{Payload: `{"event":"ride_created","ride_id":"ride-1","to_state":"pendiente","passenger_id":"passenger-1"}`}
	close(msgs)

	event, ok := <-events
	if !ok {
		t.Fatal("expected an event before the stream closed")
	}
	if event.Kind != RideEventCreated {
		t.Errorf("expected %s, got %s", RideEventCreated, event.Kind)
	}
	if event.RideID != "ride-1" || event.ToStatus != "pendiente" {
		t.Errorf("unexpected event: %+v", event)
	}

	if _, ok := <-events; ok {
		t.Error("expected events closed after msgs closed")
	}
}

func TestForwardEvents_DropsUndecodablePayload(t *testing.T) {
	msgs := make(chan *redis.Message, 2)
	events := make(chan RideEvent)
	go forwardEvents(context.Background(), msgs, events)

	msgs <- &redis.Message{Payload: `{not json`}
	msgs <- &redis.Message{Payload: `{"event":"ride_status_changed","ride_id":"ride-2","from_state":"pendiente","to_state":"aceptado","passenger_id":"passenger-1"}`}
	close(msgs)

	// The bad payload is skipped; the next good one still arrives.
	event, ok := <-events
	if !ok {
		t.Fatal("expected the valid event to survive the bad one")
	}
	if event.RideID != "ride-2" || event.Kind != RideEventStatusChanged {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestForwardEvents_ContextCancelClosesStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan *redis.Message)
	events := make(chan RideEvent)
	go forwardEvents(ctx, msgs, events)

	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected no event, only a closed stream")
		}
	case <-time.After(time.Second):
		t.Fatal("expected events closed after cancel")
	}
}
