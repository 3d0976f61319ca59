package service

import (
	"math"
	"time"

	"context"

	"github.com/roomhub/bookings/internal/domain"
	"github.com/roomhub/bookings/internal/rules"
)

// utilizationRangeLayouts accept the ISO shapes the report endpoint takes
// for its from/to bounds, interpreted in UTC.
var utilizationRangeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// RoomUtilization reports booked versus available business minutes per room
// over the half-open UTC range [from, to), rooms ordered by id. The read is
// lock-free and observes a consistent-at-read-time snapshot.
func (s *bookingService) RoomUtilization(ctx context.Context, from, to string) ([]domain.RoomUtilization, error) {
	fromDT, ok := parseUTCBound(from)
	if !ok {
		return nil, domain.E(domain.KindInvalidRange, "from and to must be valid ISO timestamps")
	}
	toDT, ok := parseUTCBound(to)
	if !ok {
		return nil, domain.E(domain.KindInvalidRange, "from and to must be valid ISO timestamps")
	}
	if !fromDT.Before(toDT) {
		return nil, domain.E(domain.KindInvalidRange, "from must be before to")
	}

	rooms, err := s.store.ListRooms(ctx, domain.RoomFilter{})
	if err != nil {
		return nil, classify(err)
	}

	report := make([]domain.RoomUtilization, 0, len(rooms))
	for _, room := range rooms {
		bookings, err := s.store.ConfirmedOverlapping(ctx, room.ID, fromDT, toDT)
		if err != nil {
			return nil, classify(err)
		}

		var bookedMinutes float64
		for _, b := range bookings {
			overlapStart := maxTime(b.StartTime, fromDT)
			overlapEnd := minTime(b.EndTime, toDT)
			if m := overlapEnd.Sub(overlapStart).Minutes(); m > 0 {
				bookedMinutes += m
			}
		}

		businessMinutes := businessMinutesBetween(fromDT, toDT, room.Location())
		utilization := 0.0
		if businessMinutes > 0 {
			utilization = bookedMinutes / businessMinutes
		}

		report = append(report, domain.RoomUtilization{
			RoomID:             room.ID,
			RoomName:           room.Name,
			TotalBookingHours:  round2(bookedMinutes / 60),
			UtilizationPercent: round4(utilization),
		})
	}
	return report, nil
}

func parseUTCBound(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range utilizationRangeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// businessMinutesBetween sums, over each UTC calendar day touching
// [from, to), the intersection of that day's Mon-Fri business window in loc
// with the range. Non-business days contribute zero.
func businessMinutesBetween(from, to time.Time, loc *time.Location) float64 {
	var total float64
	cursor := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	for cursor.Before(to) {
		local := cursor.In(loc)
		if wd := local.Weekday(); wd >= time.Monday && wd <= time.Friday {
			businessStart := time.Date(local.Year(), local.Month(), local.Day(),
				rules.BusinessStartHour, 0, 0, 0, loc).UTC()
			businessEnd := time.Date(local.Year(), local.Month(), local.Day(),
				rules.BusinessEndHour, 0, 0, 0, loc).UTC()

			start := maxTime(businessStart, from)
			end := minTime(businessEnd, to)
			if end.After(start) {
				total += end.Sub(start).Minutes()
			}
		}
		cursor = cursor.Add(24 * time.Hour)
	}
	return total
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
