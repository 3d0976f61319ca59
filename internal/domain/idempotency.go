package domain

import "time"

// IdempotencyStatus is the explicit lifecycle of a keyed request:
// absent -> in_progress -> completed. There is no reclaim path for a stale
// in_progress record; an uncommitted writer's rollback removes its own row.
type IdempotencyStatus string

const (
	IdempotencyInProgress IdempotencyStatus = "in_progress"
	IdempotencyCompleted  IdempotencyStatus = "completed"
)

// IdempotencyRecord serializes duplicate submissions per
// (OrganizerEmail, Key); the storage layer enforces uniqueness on the pair.
type IdempotencyRecord struct {
	ID             int64
	OrganizerEmail string
	Key            string
	Status         IdempotencyStatus
	BookingID      *int64
	CreatedAt      time.Time
}
