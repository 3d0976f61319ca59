package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/roomhub/bookings/pkg/logger"
)

// Publisher is this service's only event surface: it emits lifecycle
// events and never consumes any. Subscribers live in downstream services.
type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NoopPublisher drops events; used when NATS is disabled and in tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NoopPublisher) Close() error                                       { return nil }

// Event subjects
const (
	BookingCreated   = "booking.created"
	BookingCancelled = "booking.cancelled"
	RoomCreated      = "room.created"
)

// Event payloads
type BookingCreatedEvent struct {
	BookingID      int64     `json:"booking_id"`
	RoomID         int64     `json:"room_id"`
	Title          string    `json:"title"`
	OrganizerEmail string    `json:"organizer_email"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	CreatedAt      time.Time `json:"created_at"`
}

type BookingCancelledEvent struct {
	BookingID      int64     `json:"booking_id"`
	RoomID         int64     `json:"room_id"`
	OrganizerEmail string    `json:"organizer_email"`
	CancelledAt    time.Time `json:"cancelled_at"`
}

type RoomCreatedEvent struct {
	RoomID   int64  `json:"room_id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}
