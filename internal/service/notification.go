package service

import (
	"context"
	"log"

	"taxirural/internal/domain"
	"taxirural/internal/redis"
)

// Dispatcher receives ride lifecycle events. Delivery, retry and
// formatting are the consumer's responsibility; the engine only emits.
type Dispatcher interface {
	RideCreated(ctx context.Context, ride *domain.Ride)
	RideStatusChanged(ctx context.Context, ride *domain.Ride, from domain.RideStatus)
}

// FeedDispatcher publishes lifecycle events on the redis ride feed,
// where driver and passenger clients (and the push-delivery service)
// pick them up. Publish failures are logged and dropped: events are
// notifications, never part of the transition itself.
type FeedDispatcher struct {
	feed redis.RideFeedInterface
}

// NewFeedDispatcher creates a new FeedDispatcher.
func NewFeedDispatcher(feed redis.RideFeedInterface) *FeedDispatcher {
	return &FeedDispatcher{feed: feed}
}

// RideCreated emits a ride_created event.
func (d *FeedDispatcher) RideCreated(ctx context.Context, ride *domain.Ride) {
	event := redis.RideEvent{
		Kind:        redis.RideEventCreated,
		RideID:      ride.ID,
		ToStatus:    string(ride.Status),
		PassengerID: ride.PassengerID,
	}
	if err := d.feed.Publish(ctx, event); err != nil {
		log.Printf("ride feed publish failed: ride=%s event=%s err=%v", ride.ID, event.Kind, err)
	}
}

// RideStatusChanged emits a ride_status_changed event.
func (d *FeedDispatcher) RideStatusChanged(ctx context.Context, ride *domain.Ride, from domain.RideStatus) {
	event := redis.RideEvent{
		Kind:        redis.RideEventStatusChanged,
		RideID:      ride.ID,
		FromStatus:  string(from),
		ToStatus:    string(ride.Status),
		DriverID:    ride.DriverID,
		PassengerID: ride.PassengerID,
	}
	if err := d.feed.Publish(ctx, event); err != nil {
		log.Printf("ride feed publish failed: ride=%s event=%s err=%v", ride.ID, event.Kind, err)
	}
}

// Ensure FeedDispatcher implements Dispatcher.
var _ Dispatcher = (*FeedDispatcher)(nil)
