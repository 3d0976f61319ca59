package memory

import (
	"context"

	"github.com/roomhub/bookings/internal/domain"
	"github.com/roomhub/bookings/internal/store"
)

// tx operates on the parent store directly; the store mutex is already held
// for the lifetime of InTx and the snapshot provides rollback.
type tx struct {
	s *Store
}

var _ store.Tx = (*tx)(nil)

func (t *tx) GetRoom(_ context.Context, id int64) (*domain.Room, error) {
	return t.s.getRoomLocked(id)
}

func (t *tx) GetBooking(_ context.Context, id int64) (*domain.Booking, error) {
	return t.s.getBookingLocked(id)
}

func (t *tx) InsertBooking(_ context.Context, b *domain.Booking) (*domain.Booking, error) {
	if b.Status == domain.BookingConfirmed {
		for _, existing := range t.s.bookings {
			if existing.RoomID != b.RoomID || existing.Status != domain.BookingConfirmed {
				continue
			}
			if b.StartTime.Before(existing.EndTime) && b.EndTime.After(existing.StartTime) {
				return nil, store.ErrBookingOverlap
			}
		}
	}

	t.s.nextBookingID++
	stored := *b
	stored.ID = t.s.nextBookingID
	stored.StartTime = b.StartTime.UTC()
	stored.EndTime = b.EndTime.UTC()
	stored.CreatedAt = t.s.now().UTC()
	t.s.bookings[stored.ID] = &stored

	cp := stored
	return &cp, nil
}

func (t *tx) InsertIdempotencyKey(_ context.Context, email, key string) (int64, error) {
	k := idemKey{email: email, key: key}
	if _, exists := t.s.records[k]; exists {
		return 0, store.ErrDuplicateIdempotencyKey
	}

	t.s.nextRecordID++
	t.s.records[k] = &domain.IdempotencyRecord{
		ID:             t.s.nextRecordID,
		OrganizerEmail: email,
		Key:            key,
		Status:         domain.IdempotencyInProgress,
		CreatedAt:      t.s.now().UTC(),
	}
	return t.s.nextRecordID, nil
}

func (t *tx) GetIdempotencyRecord(_ context.Context, email, key string) (*domain.IdempotencyRecord, error) {
	rec, ok := t.s.records[idemKey{email: email, key: key}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (t *tx) CompleteIdempotencyKey(_ context.Context, recordID, bookingID int64) error {
	for _, rec := range t.s.records {
		if rec.ID == recordID {
			id := bookingID
			rec.BookingID = &id
			rec.Status = domain.IdempotencyCompleted
			return nil
		}
	}
	return store.ErrNotFound
}

func (t *tx) UpsertCompletedIdempotencyKey(_ context.Context, email, key string, bookingID int64) error {
	k := idemKey{email: email, key: key}
	id := bookingID
	if rec, ok := t.s.records[k]; ok {
		rec.BookingID = &id
		rec.Status = domain.IdempotencyCompleted
		return nil
	}
	t.s.nextRecordID++
	t.s.records[k] = &domain.IdempotencyRecord{
		ID:             t.s.nextRecordID,
		OrganizerEmail: email,
		Key:            key,
		Status:         domain.IdempotencyCompleted,
		BookingID:      &id,
		CreatedAt:      t.s.now().UTC(),
	}
	return nil
}

func (t *tx) BookingByIdempotencyRecord(_ context.Context, email, key string) (*domain.Booking, error) {
	rec, ok := t.s.records[idemKey{email: email, key: key}]
	if !ok || rec.BookingID == nil {
		return nil, store.ErrNotFound
	}
	return t.s.getBookingLocked(*rec.BookingID)
}

func (t *tx) BookingByKeyColumn(_ context.Context, email, key string) (*domain.Booking, error) {
	for _, b := range t.s.bookings {
		if b.OrganizerEmail == email && b.IdempotencyKey != nil && *b.IdempotencyKey == key {
			cp := *b
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *tx) MarkCancelled(_ context.Context, id int64) (*domain.Booking, error) {
	b, ok := t.s.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	now := t.s.now().UTC()
	b.Status = domain.BookingCancelled
	b.CancelledAt = &now
	cp := *b
	return &cp, nil
}
