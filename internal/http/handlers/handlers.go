package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/roomhub/bookings/internal/service"
)

type Handlers struct {
	bookings service.BookingService
	rooms    service.RoomService
	validate *validator.Validate
}

func New(bookings service.BookingService, rooms service.RoomService) *Handlers {
	return &Handlers{
		bookings: bookings,
		rooms:    rooms,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			offset = v
		}
	}
	return limit, offset
}
