package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/roomhub/bookings/internal/domain"
	"github.com/roomhub/bookings/internal/http/response"
)

// CreateBooking handles POST /bookings. The Idempotency-Key header takes
// precedence over the body field.
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBookingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if key := r.Header.Get("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	if err := h.validate.Struct(&req); err != nil {
		response.BadRequest(w, validationMessage(err))
		return
	}

	booking, err := h.bookings.Create(r.Context(), &req)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, booking)
}

// ListBookings handles GET /bookings with roomId/from/to filters.
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := domain.BookingFilter{Limit: limit, Offset: offset}

	if raw := r.URL.Query().Get("roomId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(w, "roomId must be an integer")
			return
		}
		filter.RoomID = &id
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := parseQueryInstant(raw)
		if err != nil {
			response.BadRequest(w, "from must be a valid ISO timestamp")
			return
		}
		filter.From = &t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := parseQueryInstant(raw)
		if err != nil {
			response.BadRequest(w, "to must be a valid ISO timestamp")
			return
		}
		filter.To = &t
	}

	page, err := h.bookings.List(r.Context(), filter)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, page)
}

// GetBooking handles GET /bookings/{id}.
func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	booking, err := h.bookings.Get(r.Context(), id)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, booking)
}

// CancelBooking handles POST /bookings/{id}/cancel. Re-cancelling returns
// the unchanged booking, not an error.
func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	booking, err := h.bookings.Cancel(r.Context(), id)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, booking)
}

// RoomUtilization handles GET /reports/room-utilization?from=&to=.
func (h *Handlers) RoomUtilization(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		response.WriteError(w, http.StatusBadRequest, string(domain.KindInvalidRange),
			"from and to query parameters are required")
		return
	}

	report, err := h.bookings.RoomUtilization(r.Context(), from, to)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, report)
}

func bookingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "invalid booking id")
		return 0, false
	}
	return id, true
}

func parseQueryInstant(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		t, err := time.ParseInLocation(layout, raw, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		switch f.Tag() {
		case "required":
			return `"` + jsonField(f.Field()) + `" is required`
		case "email":
			return `"` + jsonField(f.Field()) + `" must be a valid email`
		case "oneof":
			return `"` + jsonField(f.Field()) + `" must be one of: ` + f.Param()
		default:
			return `"` + jsonField(f.Field()) + `" is invalid`
		}
	}
	return "invalid request"
}

func jsonField(field string) string {
	if field == "" {
		return field
	}
	return string(field[0]|0x20) + field[1:]
}
