package service

import (
	"context"
	"errors"
	"time"

	"github.com/roomhub/bookings/internal/domain"
	"github.com/roomhub/bookings/internal/store"
	"github.com/roomhub/bookings/pkg/events"
	"github.com/roomhub/bookings/pkg/logger"
)

// RoomService is the room directory; the booking core only ever reads rooms.
type RoomService interface {
	Create(ctx context.Context, req *domain.RoomCreateReq) (*domain.Room, error)
	List(ctx context.Context, f domain.RoomFilter) ([]domain.Room, error)
}

type roomService struct {
	store store.Store
	bus   events.Publisher
}

func NewRoomService(st store.Store, bus events.Publisher) RoomService {
	return &roomService{store: st, bus: bus}
}

func (s *roomService) Create(ctx context.Context, req *domain.RoomCreateReq) (*domain.Room, error) {
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return nil, domain.Errorf(domain.KindInvalidRange, "unknown timezone %q", req.Timezone)
		}
	}

	room, err := s.store.CreateRoom(ctx, req)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateRoomName) {
			return nil, domain.E(domain.KindConflict, "room name must be unique (case-insensitive)")
		}
		return nil, classify(err)
	}

	event := events.RoomCreatedEvent{RoomID: room.ID, Name: room.Name, Timezone: room.Timezone}
	if err := s.bus.Publish(ctx, events.RoomCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish room created event", "error", err, "room_id", room.ID)
	}

	return room, nil
}

func (s *roomService) List(ctx context.Context, f domain.RoomFilter) ([]domain.Room, error) {
	rooms, err := s.store.ListRooms(ctx, f)
	if err != nil {
		return nil, classify(err)
	}
	return rooms, nil
}
