// Package postgres backs the store contract with pgx. Overlap prevention is
// pushed down to the no_overlap_confirmed_bookings exclusion constraint and
// idempotency serialization to the unique index on
// (organizer_email, idempotency_key); see migrations/001_init.sql.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roomhub/bookings/internal/domain"
	"github.com/roomhub/bookings/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ store.Store = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer pgtx.Rollback(ctx) //nolint:errcheck

	if err := fn(&tx{q: pgtx}); err != nil {
		return err
	}
	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const roomCols = `id, name, capacity, floor, amenities, timezone, created_at`

func (s *Store) GetRoom(ctx context.Context, id int64) (*domain.Room, error) {
	return getRoom(ctx, s.pool, id)
}

func (s *Store) ListRooms(ctx context.Context, f domain.RoomFilter) ([]domain.Room, error) {
	q := `SELECT ` + roomCols + ` FROM rooms`
	args := []any{}
	clauses := []string{}
	if f.MinCapacity > 0 {
		args = append(args, f.MinCapacity)
		clauses = append(clauses, fmt.Sprintf("capacity >= $%d", len(args)))
	}
	if f.Amenity != "" {
		args = append(args, f.Amenity)
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(amenities)", len(args)))
	}
	for i, c := range clauses {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	q += " ORDER BY id"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		var r domain.Room
		if err := rows.Scan(&r.ID, &r.Name, &r.Capacity, &r.Floor, &r.Amenities, &r.Timezone, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CreateRoom(ctx context.Context, req *domain.RoomCreateReq) (*domain.Room, error) {
	const q = `INSERT INTO rooms (name, capacity, floor, amenities, timezone)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + roomCols

	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}
	amenities := req.Amenities
	if amenities == nil {
		amenities = []string{}
	}

	var r domain.Room
	err := s.pool.QueryRow(ctx, q, req.Name, req.Capacity, req.Floor, amenities, tz).
		Scan(&r.ID, &r.Name, &r.Capacity, &r.Floor, &r.Amenities, &r.Timezone, &r.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return getBooking(ctx, s.pool, id)
}

func (s *Store) ListBookings(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, int, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	where := ""
	args := []any{}
	appendClause := func(expr string, v any) {
		args = append(args, v)
		c := fmt.Sprintf(expr, len(args))
		if where == "" {
			where = " WHERE " + c
		} else {
			where += " AND " + c
		}
	}
	if f.RoomID != nil {
		appendClause("room_id = $%d", *f.RoomID)
	}
	if f.From != nil {
		appendClause("end_time >= $%d", *f.From)
	}
	if f.To != nil {
		appendClause("start_time <= $%d", *f.To)
	}

	q := `SELECT ` + bookingCols + ` FROM bookings` + where +
		fmt.Sprintf(" ORDER BY start_time LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	rows, err := s.pool.Query(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]domain.Booking, 0, limit)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) ConfirmedOverlapping(ctx context.Context, roomID int64, from, to time.Time) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings
WHERE room_id = $1 AND status = 'confirmed' AND NOT (end_time <= $2 OR start_time >= $3)
ORDER BY start_time`

	rows, err := s.pool.Query(ctx, q, roomID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so single-row
// lookups can be shared between the pool and transaction paths.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getRoom(ctx context.Context, q querier, id int64) (*domain.Room, error) {
	var r domain.Room
	err := q.QueryRow(ctx, `SELECT `+roomCols+` FROM rooms WHERE id = $1`, id).
		Scan(&r.ID, &r.Name, &r.Capacity, &r.Floor, &r.Amenities, &r.Timezone, &r.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func getBooking(ctx context.Context, q querier, id int64) (*domain.Booking, error) {
	row := q.QueryRow(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, translate(err)
	}
	return b, nil
}

// translate maps driver failures onto the store sentinels; anything
// unrecognized propagates unchanged for the service to classify.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23P01" || pgErr.ConstraintName == "no_overlap_confirmed_bookings":
			return store.ErrBookingOverlap
		case pgErr.Code == "23505" && pgErr.ConstraintName == "idempotency_keys_organizer_email_idempotency_key_key":
			return store.ErrDuplicateIdempotencyKey
		case pgErr.Code == "23505" && pgErr.ConstraintName == "rooms_name_lower_key":
			return store.ErrDuplicateRoomName
		}
	}
	return err
}
