package service

import (
	"context"
	"errors"
	"time"

	"github.com/roomhub/bookings/internal/domain"
	"github.com/roomhub/bookings/internal/rules"
	"github.com/roomhub/bookings/internal/store"
	"github.com/roomhub/bookings/internal/timeparse"
	"github.com/roomhub/bookings/pkg/events"
	"github.com/roomhub/bookings/pkg/logger"
)

type BookingService interface {
	Create(ctx context.Context, req *domain.CreateBookingReq) (*domain.Booking, error)
	Get(ctx context.Context, id int64) (*domain.Booking, error)
	List(ctx context.Context, f domain.BookingFilter) (*domain.BookingPage, error)
	Cancel(ctx context.Context, id int64) (*domain.Booking, error)
	RoomUtilization(ctx context.Context, from, to string) ([]domain.RoomUtilization, error)
}

type bookingService struct {
	store store.Store
	bus   events.Publisher
	now   func() time.Time
}

func NewBookingService(st store.Store, bus events.Publisher) BookingService {
	return &bookingService{
		store: st,
		bus:   bus,
		now:   time.Now,
	}
}

// Create runs the whole booking creation as one atomic unit: room lookup,
// time parsing, policy validation, the idempotency gate, the insert guarded
// by the overlap exclusion, and record finalization. Any failure after the
// placeholder insert rolls the whole transaction back, except the replay
// short-circuits which commit and return an existing booking untouched.
func (s *bookingService) Create(ctx context.Context, req *domain.CreateBookingReq) (*domain.Booking, error) {
	status := domain.BookingStatus(req.Status)
	if status == "" {
		status = domain.BookingConfirmed
	}

	var (
		out     *domain.Booking
		created bool
	)
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		room, err := tx.GetRoom(ctx, req.RoomID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.E(domain.KindNotFound, "unknown room")
			}
			return err
		}
		loc := room.Location()

		start, err := timeparse.Parse(req.StartTime, loc)
		if err != nil {
			return invalidTime()
		}
		end, err := timeparse.Parse(req.EndTime, loc)
		if err != nil {
			return invalidTime()
		}

		if err := rules.Validate(start, end); err != nil {
			return err
		}

		// Idempotency gate: the placeholder insert is the serialization
		// point; losing the race routes into a replay branch and never
		// blocks on the winner.
		var recordID int64
		if req.IdempotencyKey != "" {
			recordID, err = tx.InsertIdempotencyKey(ctx, req.OrganizerEmail, req.IdempotencyKey)
			if errors.Is(err, store.ErrDuplicateIdempotencyKey) {
				replay, rerr := s.resolveDuplicateKey(ctx, tx, req.OrganizerEmail, req.IdempotencyKey)
				if rerr != nil {
					return rerr
				}
				if replay != nil {
					out = replay
					return nil // commit, no booking mutation
				}
				// Completed-but-unlinked record with no booking either:
				// proceed with normal creation.
				recordID = 0
			} else if err != nil {
				return err
			}
		}

		var key *string
		if req.IdempotencyKey != "" {
			key = &req.IdempotencyKey
		}
		booking, err := tx.InsertBooking(ctx, &domain.Booking{
			RoomID:         req.RoomID,
			Title:          req.Title,
			OrganizerEmail: req.OrganizerEmail,
			StartTime:      start.UTC(),
			EndTime:        end.UTC(),
			Status:         status,
			IdempotencyKey: key,
		})
		if err != nil {
			if errors.Is(err, store.ErrBookingOverlap) {
				return domain.E(domain.KindOverlapConflict, "booking overlaps with existing confirmed booking")
			}
			return err
		}

		// Finalize in the same atomic scope as the placeholder: nobody may
		// observe completed without a linked booking.
		if recordID != 0 {
			if err := tx.CompleteIdempotencyKey(ctx, recordID, booking.ID); err != nil {
				return err
			}
		} else if req.IdempotencyKey != "" {
			if err := tx.UpsertCompletedIdempotencyKey(ctx, req.OrganizerEmail, req.IdempotencyKey, booking.ID); err != nil {
				return err
			}
		}

		out = booking
		created = true
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if created {
		event := events.BookingCreatedEvent{
			BookingID:      out.ID,
			RoomID:         out.RoomID,
			Title:          out.Title,
			OrganizerEmail: out.OrganizerEmail,
			StartTime:      out.StartTime,
			EndTime:        out.EndTime,
			CreatedAt:      out.CreatedAt,
		}
		if err := s.bus.Publish(ctx, events.BookingCreated, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish booking created event", "error", err, "booking_id", out.ID)
		}
	}

	return out, nil
}

// resolveDuplicateKey handles a lost race on the idempotency pair. It
// returns a booking to replay, an error to surface, or (nil, nil) to fall
// through to normal creation.
func (s *bookingService) resolveDuplicateKey(ctx context.Context, tx store.Tx, email, key string) (*domain.Booking, error) {
	linked, err := tx.BookingByIdempotencyRecord(ctx, email, key)
	if err == nil {
		return linked, nil // idempotent replay, no re-validation
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	rec, err := tx.GetIdempotencyRecord(ctx, email, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	switch rec.Status {
	case domain.IdempotencyInProgress:
		return nil, domain.E(domain.KindIdempotencyInProgress, "idempotent request already in progress")
	case domain.IdempotencyCompleted:
		// Defensive fallback: completed record without a link.
		b, err := tx.BookingByKeyColumn(ctx, email, key)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func (s *bookingService) Get(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.E(domain.KindNotFound, "booking not found")
		}
		return nil, classify(err)
	}
	return b, nil
}

func (s *bookingService) List(ctx context.Context, f domain.BookingFilter) (*domain.BookingPage, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	items, total, err := s.store.ListBookings(ctx, f)
	if err != nil {
		return nil, classify(err)
	}
	return &domain.BookingPage{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// Cancel is an idempotent one-way transition: cancelling a cancelled
// booking returns it unchanged.
func (s *bookingService) Cancel(ctx context.Context, id int64) (*domain.Booking, error) {
	var (
		out     *domain.Booking
		flipped bool
	)
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		booking, err := tx.GetBooking(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.E(domain.KindNotFound, "booking not found")
			}
			return err
		}

		if booking.Status == domain.BookingCancelled {
			out = booking
			return nil
		}

		cancelled, err := tx.MarkCancelled(ctx, id)
		if err != nil {
			return err
		}
		out = cancelled
		flipped = true
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if flipped {
		event := events.BookingCancelledEvent{
			BookingID:      out.ID,
			RoomID:         out.RoomID,
			OrganizerEmail: out.OrganizerEmail,
			CancelledAt:    s.now().UTC(),
		}
		if err := s.bus.Publish(ctx, events.BookingCancelled, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish booking cancelled event", "error", err, "booking_id", out.ID)
		}
	}

	return out, nil
}

func invalidTime() error {
	return domain.E(domain.KindInvalidTime,
		`invalid time format; use formats like "2025-12-13T10:00", "2025-12-13 10:00", "6 AM", "5:30PM", or "17:00"`)
}

// classify passes classified domain errors through and wraps everything
// else as an internal storage failure.
func classify(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	return domain.WrapStorage(err)
}
