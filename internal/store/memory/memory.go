// Package memory backs the store contract with mutex-guarded maps. The lock
// is held for the whole of InTx, which stands in for the relational
// engine's exclusion and uniqueness guarantees: the check-then-insert
// sequence can never interleave with another writer. A snapshot taken at
// begin restores state on rollback.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roomhub/bookings/internal/domain"
	"github.com/roomhub/bookings/internal/store"
)

type idemKey struct {
	email string
	key   string
}

type Store struct {
	mu sync.Mutex

	rooms    map[int64]*domain.Room
	bookings map[int64]*domain.Booking
	records  map[idemKey]*domain.IdempotencyRecord

	nextRoomID    int64
	nextBookingID int64
	nextRecordID  int64

	now func() time.Time
}

func New() *Store {
	return &Store{
		rooms:    make(map[int64]*domain.Room),
		bookings: make(map[int64]*domain.Booking),
		records:  make(map[idemKey]*domain.IdempotencyRecord),
		now:      time.Now,
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&tx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshotState struct {
	rooms    map[int64]*domain.Room
	bookings map[int64]*domain.Booking
	records  map[idemKey]*domain.IdempotencyRecord

	nextRoomID, nextBookingID, nextRecordID int64
}

func (s *Store) snapshot() snapshotState {
	snap := snapshotState{
		rooms:         make(map[int64]*domain.Room, len(s.rooms)),
		bookings:      make(map[int64]*domain.Booking, len(s.bookings)),
		records:       make(map[idemKey]*domain.IdempotencyRecord, len(s.records)),
		nextRoomID:    s.nextRoomID,
		nextBookingID: s.nextBookingID,
		nextRecordID:  s.nextRecordID,
	}
	for id, r := range s.rooms {
		cp := *r
		snap.rooms[id] = &cp
	}
	for id, b := range s.bookings {
		cp := *b
		snap.bookings[id] = &cp
	}
	for k, rec := range s.records {
		cp := *rec
		snap.records[k] = &cp
	}
	return snap
}

func (s *Store) restore(snap snapshotState) {
	s.rooms = snap.rooms
	s.bookings = snap.bookings
	s.records = snap.records
	s.nextRoomID = snap.nextRoomID
	s.nextBookingID = snap.nextBookingID
	s.nextRecordID = snap.nextRecordID
}

// SeedIdempotencyRecord installs rec verbatim; fixture hook for tests that
// need lifecycle states the transactional surface cannot produce directly.
func (s *Store) SeedIdempotencyRecord(rec domain.IdempotencyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == 0 {
		s.nextRecordID++
		rec.ID = s.nextRecordID
	}
	s.records[idemKey{email: rec.OrganizerEmail, key: rec.Key}] = &rec
}

func (s *Store) GetRoom(ctx context.Context, id int64) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getRoomLocked(id)
}

func (s *Store) getRoomLocked(id int64) (*domain.Room, error) {
	r, ok := s.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListRooms(_ context.Context, f domain.RoomFilter) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Room
	for _, r := range s.rooms {
		if f.MinCapacity > 0 && r.Capacity < f.MinCapacity {
			continue
		}
		if f.Amenity != "" && !contains(r.Amenities, f.Amenity) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateRoom(_ context.Context, req *domain.RoomCreateReq) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rooms {
		if strings.EqualFold(r.Name, req.Name) {
			return nil, store.ErrDuplicateRoomName
		}
	}

	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}
	amenities := req.Amenities
	if amenities == nil {
		amenities = []string{}
	}

	s.nextRoomID++
	r := &domain.Room{
		ID:        s.nextRoomID,
		Name:      req.Name,
		Capacity:  req.Capacity,
		Floor:     req.Floor,
		Amenities: amenities,
		Timezone:  tz,
		CreatedAt: s.now().UTC(),
	}
	s.rooms[r.ID] = r
	cp := *r
	return &cp, nil
}

func (s *Store) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getBookingLocked(id)
}

func (s *Store) getBookingLocked(id int64) (*domain.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) ListBookings(_ context.Context, f domain.BookingFilter) ([]domain.Booking, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var matched []domain.Booking
	for _, b := range s.bookings {
		if f.RoomID != nil && b.RoomID != *f.RoomID {
			continue
		}
		if f.From != nil && b.EndTime.Before(*f.From) {
			continue
		}
		if f.To != nil && b.StartTime.After(*f.To) {
			continue
		}
		matched = append(matched, *b)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartTime.Before(matched[j].StartTime) })

	total := len(matched)
	if offset >= total {
		return []domain.Booking{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *Store) ConfirmedOverlapping(_ context.Context, roomID int64, from, to time.Time) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Booking
	for _, b := range s.bookings {
		if b.RoomID != roomID || b.Status != domain.BookingConfirmed {
			continue
		}
		if b.StartTime.Before(to) && b.EndTime.After(from) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func contains(set []string, want string) bool {
	for _, s := range set {
		if s == want {
			return true
		}
	}
	return false
}
