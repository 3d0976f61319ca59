// Package rules enforces the booking policy window: Mon-Fri, 08:00-20:00 in
// the room's local time, with a bounded whole-minute duration.
package rules

import (
	"math"
	"time"

	"github.com/roomhub/bookings/internal/domain"
)

const (
	BusinessStartHour = 8
	BusinessEndHour   = 20

	MinDurationMinutes = 15
	MaxDurationMinutes = 240
)

// Validate runs the ordered, short-circuiting policy checks against
// room-local start and end. The first failing check determines the
// reported kind.
func Validate(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return domain.E(domain.KindInvalidTime, "invalid start or end time")
	}

	if !start.Before(end) {
		return domain.E(domain.KindInvalidRange, "startTime must be before endTime")
	}

	minutes := int(math.Round(end.Sub(start).Minutes()))
	if minutes < MinDurationMinutes || minutes > MaxDurationMinutes {
		return domain.Errorf(domain.KindInvalidDuration,
			"booking duration must be between %d and %d minutes", MinDurationMinutes, MaxDurationMinutes)
	}

	if !isBusinessDay(start.Weekday()) || !isBusinessDay(end.Weekday()) {
		return outsideBusinessHours()
	}

	// The window is evaluated against start's calendar date: the end must
	// not roll past that date's business-end boundary.
	businessStart := time.Date(start.Year(), start.Month(), start.Day(),
		BusinessStartHour, 0, 0, 0, start.Location())
	businessEnd := time.Date(start.Year(), start.Month(), start.Day(),
		BusinessEndHour, 0, 0, 0, start.Location())
	if start.Before(businessStart) || end.After(businessEnd) {
		return outsideBusinessHours()
	}

	return nil
}

func isBusinessDay(d time.Weekday) bool {
	return d >= time.Monday && d <= time.Friday
}

func outsideBusinessHours() error {
	return domain.Errorf(domain.KindOutsideBusinessHours,
		"bookings allowed Mon-Fri, %02d:00-%02d:00 in room local time", BusinessStartHour, BusinessEndHour)
}
