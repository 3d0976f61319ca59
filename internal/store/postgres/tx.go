package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/roomhub/bookings/internal/domain"
	"github.com/roomhub/bookings/internal/store"
)

const bookingCols = `id, room_id, title, organizer_email, start_time, end_time,
status, idempotency_key, cancelled_at, created_at`

type tx struct {
	q pgx.Tx
}

var _ store.Tx = (*tx)(nil)

func (t *tx) GetRoom(ctx context.Context, id int64) (*domain.Room, error) {
	return getRoom(ctx, t.q, id)
}

func (t *tx) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return getBooking(ctx, t.q, id)
}

func (t *tx) InsertBooking(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	const q = `INSERT INTO bookings (room_id, title, organizer_email, start_time, end_time, status, idempotency_key)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + bookingCols

	row := t.q.QueryRow(ctx, q,
		b.RoomID, b.Title, b.OrganizerEmail, b.StartTime, b.EndTime, b.Status, b.IdempotencyKey)
	created, err := scanBooking(row)
	if err != nil {
		return nil, translate(err)
	}
	return created, nil
}

// InsertIdempotencyKey claims (email, key) without ever raising a
// constraint error: a raised 23505 would abort the surrounding transaction
// and make the replay lookups that follow impossible. ON CONFLICT DO
// NOTHING keeps the transaction live; the zero-row result is the lost race.
func (t *tx) InsertIdempotencyKey(ctx context.Context, email, key string) (int64, error) {
	const q = `INSERT INTO idempotency_keys (organizer_email, idempotency_key, status)
VALUES ($1, $2, 'in_progress')
ON CONFLICT (organizer_email, idempotency_key) DO NOTHING
RETURNING id`

	var id int64
	err := t.q.QueryRow(ctx, q, email, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, store.ErrDuplicateIdempotencyKey
	}
	if err != nil {
		return 0, translate(err)
	}
	return id, nil
}

func (t *tx) GetIdempotencyRecord(ctx context.Context, email, key string) (*domain.IdempotencyRecord, error) {
	const q = `SELECT id, organizer_email, idempotency_key, status, booking_id, created_at
FROM idempotency_keys WHERE organizer_email = $1 AND idempotency_key = $2`

	var rec domain.IdempotencyRecord
	err := t.q.QueryRow(ctx, q, email, key).
		Scan(&rec.ID, &rec.OrganizerEmail, &rec.Key, &rec.Status, &rec.BookingID, &rec.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (t *tx) CompleteIdempotencyKey(ctx context.Context, recordID, bookingID int64) error {
	const q = `UPDATE idempotency_keys SET booking_id = $1, status = 'completed' WHERE id = $2`
	_, err := t.q.Exec(ctx, q, bookingID, recordID)
	return translate(err)
}

func (t *tx) UpsertCompletedIdempotencyKey(ctx context.Context, email, key string, bookingID int64) error {
	const q = `INSERT INTO idempotency_keys (organizer_email, idempotency_key, booking_id, status)
VALUES ($1, $2, $3, 'completed')
ON CONFLICT (organizer_email, idempotency_key)
DO UPDATE SET booking_id = EXCLUDED.booking_id, status = 'completed'`
	_, err := t.q.Exec(ctx, q, email, key, bookingID)
	return translate(err)
}

func (t *tx) BookingByIdempotencyRecord(ctx context.Context, email, key string) (*domain.Booking, error) {
	const q = `SELECT b.id, b.room_id, b.title, b.organizer_email, b.start_time, b.end_time,
b.status, b.idempotency_key, b.cancelled_at, b.created_at
FROM idempotency_keys ik
JOIN bookings b ON ik.booking_id = b.id
WHERE ik.organizer_email = $1 AND ik.idempotency_key = $2`

	b, err := scanBooking(t.q.QueryRow(ctx, q, email, key))
	if err != nil {
		return nil, translate(err)
	}
	return b, nil
}

func (t *tx) BookingByKeyColumn(ctx context.Context, email, key string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings
WHERE idempotency_key = $1 AND organizer_email = $2`

	b, err := scanBooking(t.q.QueryRow(ctx, q, key, email))
	if err != nil {
		return nil, translate(err)
	}
	return b, nil
}

func (t *tx) MarkCancelled(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `UPDATE bookings SET status = 'cancelled', cancelled_at = now()
WHERE id = $1
RETURNING ` + bookingCols

	b, err := scanBooking(t.q.QueryRow(ctx, q, id))
	if err != nil {
		return nil, translate(err)
	}
	return b, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.RoomID, &b.Title, &b.OrganizerEmail, &b.StartTime, &b.EndTime,
		&b.Status, &b.IdempotencyKey, &b.CancelledAt, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
	return &b, nil
}
