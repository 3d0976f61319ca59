package domain

import "time"

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingConfirmed, BookingCancelled:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

// Booking start/end are stored as UTC instants. Status only ever moves
// confirmed -> cancelled; rows are never deleted.
type Booking struct {
	ID             int64         `json:"id"`
	RoomID         int64         `json:"roomId"`
	Title          string        `json:"title"`
	OrganizerEmail string        `json:"organizerEmail"`
	StartTime      time.Time     `json:"startTime"`
	EndTime        time.Time     `json:"endTime"`
	Status         BookingStatus `json:"status"`
	IdempotencyKey *string       `json:"idempotencyKey"`
	CancelledAt    *time.Time    `json:"cancelledAt,omitempty"`
	CreatedAt      time.Time     `json:"-"`
}

// CreateBookingReq is the schema-validated creation request. Start and end
// stay raw strings here; the time parser owns their interpretation.
type CreateBookingReq struct {
	RoomID         int64  `json:"roomId" validate:"required"`
	Title          string `json:"title" validate:"required,min=1"`
	OrganizerEmail string `json:"organizerEmail" validate:"required,email"`
	StartTime      string `json:"startTime" validate:"required,min=1"`
	EndTime        string `json:"endTime" validate:"required,min=1"`
	Status         string `json:"status,omitempty" validate:"omitempty,oneof=confirmed cancelled"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

type BookingFilter struct {
	RoomID *int64
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

type BookingPage struct {
	Items  []Booking `json:"items"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

// RoomUtilization is one row of the utilization report.
type RoomUtilization struct {
	RoomID             int64   `json:"roomId"`
	RoomName           string  `json:"roomName"`
	TotalBookingHours  float64 `json:"totalBookingHours"`
	UtilizationPercent float64 `json:"utilizationPercent"`
}
