package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roomhub/bookings/internal/domain"
	"github.com/roomhub/bookings/internal/store"
)

func seedRoom(t *testing.T, s *Store, name string) *domain.Room {
	t.Helper()
	room, err := s.CreateRoom(context.Background(), &domain.RoomCreateReq{Name: name, Capacity: 4})
	if err != nil {
		t.Fatalf("seed room: %v", err)
	}
	return room
}

func confirmedAt(roomID int64, startHour, endHour int) *domain.Booking {
	return &domain.Booking{
		RoomID:         roomID,
		Title:          "sync",
		OrganizerEmail: "bo@example.com",
		StartTime:      time.Date(2025, 12, 9, startHour, 0, 0, 0, time.UTC),
		EndTime:        time.Date(2025, 12, 9, endHour, 0, 0, 0, time.UTC),
		Status:         domain.BookingConfirmed,
	}
}

func TestInsertBookingOverlapSentinel(t *testing.T) {
	s := New()
	room := seedRoom(t, s, "Onyx")
	ctx := context.Background()

	err := s.InTx(ctx, func(tx store.Tx) error {
		_, err := tx.InsertBooking(ctx, confirmedAt(room.ID, 10, 11))
		return err
	})
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}

	err = s.InTx(ctx, func(tx store.Tx) error {
		_, err := tx.InsertBooking(ctx, confirmedAt(room.ID, 10, 12))
		return err
	})
	if !errors.Is(err, store.ErrBookingOverlap) {
		t.Errorf("overlapping insert error = %v, want ErrBookingOverlap", err)
	}

	// Cancelled rows do not participate in the exclusion.
	err = s.InTx(ctx, func(tx store.Tx) error {
		b := confirmedAt(room.ID, 13, 14)
		b.Status = domain.BookingCancelled
		if _, err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		_, err := tx.InsertBooking(ctx, confirmedAt(room.ID, 13, 14))
		return err
	})
	if err != nil {
		t.Errorf("insert over cancelled row: %v", err)
	}
}

func TestInsertIdempotencyKeyDuplicateSentinel(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.InsertIdempotencyKey(ctx, "bo@example.com", "k1"); err != nil {
			return err
		}
		_, err := tx.InsertIdempotencyKey(ctx, "bo@example.com", "k1")
		return err
	})
	if !errors.Is(err, store.ErrDuplicateIdempotencyKey) {
		t.Errorf("duplicate key error = %v, want ErrDuplicateIdempotencyKey", err)
	}

	// Same key under a different organizer is a distinct pair.
	err = s.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.InsertIdempotencyKey(ctx, "bo@example.com", "k2"); err != nil {
			return err
		}
		_, err := tx.InsertIdempotencyKey(ctx, "cy@example.com", "k2")
		return err
	})
	if err != nil {
		t.Errorf("distinct pair insert: %v", err)
	}
}

func TestInTxRollbackRestoresState(t *testing.T) {
	s := New()
	room := seedRoom(t, s, "Pike")
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.InsertBooking(ctx, confirmedAt(room.ID, 10, 11)); err != nil {
			return err
		}
		if _, err := tx.InsertIdempotencyKey(ctx, "bo@example.com", "k1"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx error = %v, want boom", err)
	}

	if _, total, err := s.ListBookings(ctx, domain.BookingFilter{}); err != nil || total != 0 {
		t.Errorf("bookings after rollback = %d (err %v), want 0", total, err)
	}

	// The key must be insertable again.
	err = s.InTx(ctx, func(tx store.Tx) error {
		_, err := tx.InsertIdempotencyKey(ctx, "bo@example.com", "k1")
		return err
	})
	if err != nil {
		t.Errorf("reinsert after rollback: %v", err)
	}
}

func TestCreateRoomDuplicateNameCaseInsensitive(t *testing.T) {
	s := New()
	seedRoom(t, s, "Quartz")

	_, err := s.CreateRoom(context.Background(), &domain.RoomCreateReq{Name: "QUARTZ", Capacity: 4})
	if !errors.Is(err, store.ErrDuplicateRoomName) {
		t.Errorf("duplicate name error = %v, want ErrDuplicateRoomName", err)
	}
}

func TestListRoomsOrderedAndFiltered(t *testing.T) {
	s := New()
	ctx := context.Background()

	small := seedRoom(t, s, "Ash")
	_, err := s.CreateRoom(ctx, &domain.RoomCreateReq{Name: "Birch", Capacity: 12, Amenities: []string{"projector"}})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	rooms, err := s.ListRooms(ctx, domain.RoomFilter{})
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(rooms) != 2 || rooms[0].ID != small.ID {
		t.Errorf("rooms = %+v, want ordered by id starting at %d", rooms, small.ID)
	}

	rooms, err = s.ListRooms(ctx, domain.RoomFilter{MinCapacity: 10})
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != "Birch" {
		t.Errorf("capacity filter returned %+v", rooms)
	}

	rooms, err = s.ListRooms(ctx, domain.RoomFilter{Amenity: "projector"})
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != "Birch" {
		t.Errorf("amenity filter returned %+v", rooms)
	}
}

func TestListBookingsPagination(t *testing.T) {
	s := New()
	room := seedRoom(t, s, "Vale")
	ctx := context.Background()

	for hour := 8; hour < 12; hour++ {
		err := s.InTx(ctx, func(tx store.Tx) error {
			_, err := tx.InsertBooking(ctx, confirmedAt(room.ID, hour, hour+1))
			return err
		})
		if err != nil {
			t.Fatalf("insert hour %d: %v", hour, err)
		}
	}

	items, total, err := s.ListBookings(ctx, domain.BookingFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
	if len(items) != 2 {
		t.Fatalf("page size = %d, want 2", len(items))
	}
	if items[0].StartTime.Hour() != 9 || items[1].StartTime.Hour() != 10 {
		t.Errorf("page out of order: %v, %v", items[0].StartTime, items[1].StartTime)
	}
}
