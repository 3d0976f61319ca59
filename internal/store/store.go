// Package store defines the transactional storage contract the booking core
// runs against. Overlap and idempotency are both enforced inside the store
// (exclusion and uniqueness guarantees) rather than by in-process locking;
// implementations surface those violations as the sentinel errors below.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/roomhub/bookings/internal/domain"
)

var (
	// ErrNotFound reports a missing row on any single-row lookup.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicateIdempotencyKey reports a uniqueness violation on
	// (organizer_email, idempotency_key).
	ErrDuplicateIdempotencyKey = errors.New("store: duplicate idempotency key")

	// ErrBookingOverlap reports an exclusion violation: the inserted range
	// overlaps an existing confirmed booking for the same room.
	ErrBookingOverlap = errors.New("store: booking overlaps confirmed booking")

	// ErrDuplicateRoomName reports a case-insensitive room name collision.
	ErrDuplicateRoomName = errors.New("store: duplicate room name")
)

// Store is the shared storage handle. Reads outside InTx observe a
// consistent-at-read-time snapshot and may run concurrently with writers.
type Store interface {
	// InTx runs fn inside one transaction: commit when fn returns nil,
	// rollback otherwise. The transaction is the only resource scope the
	// core ever holds and is released on every exit path.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetRoom(ctx context.Context, id int64) (*domain.Room, error)
	ListRooms(ctx context.Context, f domain.RoomFilter) ([]domain.Room, error)
	CreateRoom(ctx context.Context, req *domain.RoomCreateReq) (*domain.Room, error)

	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	ListBookings(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, int, error)

	// ConfirmedOverlapping returns confirmed bookings for one room whose
	// [start,end) range intersects [from,to).
	ConfirmedOverlapping(ctx context.Context, roomID int64, from, to time.Time) ([]domain.Booking, error)
}

// Tx is the per-transaction surface used by the booking transaction and the
// cancellation handler.
type Tx interface {
	GetRoom(ctx context.Context, id int64) (*domain.Room, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)

	// InsertBooking persists b and returns the stored row. A confirmed row
	// overlapping an existing confirmed booking for the same room fails
	// with ErrBookingOverlap.
	InsertBooking(ctx context.Context, b *domain.Booking) (*domain.Booking, error)

	// InsertIdempotencyKey atomically claims (email, key) with an
	// in_progress placeholder; an existing claim fails with
	// ErrDuplicateIdempotencyKey. This insert is the serialization point
	// for duplicate submissions. Losing the claim must leave the
	// surrounding transaction usable: the replay lookups run on the same
	// Tx right after.
	InsertIdempotencyKey(ctx context.Context, email, key string) (recordID int64, err error)

	GetIdempotencyRecord(ctx context.Context, email, key string) (*domain.IdempotencyRecord, error)

	// CompleteIdempotencyKey finalizes the placeholder with the committed
	// booking id; no observer may see completed without a linked booking.
	CompleteIdempotencyKey(ctx context.Context, recordID, bookingID int64) error

	// UpsertCompletedIdempotencyKey covers the defensive fallback where
	// creation proceeds without having claimed a fresh placeholder.
	UpsertCompletedIdempotencyKey(ctx context.Context, email, key string, bookingID int64) error

	// BookingByIdempotencyRecord resolves the booking linked to a
	// finalized record for (email, key), ErrNotFound when the record is
	// absent or unlinked.
	BookingByIdempotencyRecord(ctx context.Context, email, key string) (*domain.Booking, error)

	// BookingByKeyColumn looks a booking up directly by its stored
	// idempotency_key column, the last-resort replay path.
	BookingByKeyColumn(ctx context.Context, email, key string) (*domain.Booking, error)

	// MarkCancelled flips a booking to cancelled, stamping cancelled_at,
	// and returns the updated row.
	MarkCancelled(ctx context.Context, id int64) (*domain.Booking, error)
}
