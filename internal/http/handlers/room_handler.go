package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/roomhub/bookings/internal/domain"
	"github.com/roomhub/bookings/internal/http/response"
)

// CreateRoom handles POST /rooms.
func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req domain.RoomCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		response.BadRequest(w, validationMessage(err))
		return
	}

	room, err := h.rooms.Create(r.Context(), &req)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, room)
}

// ListRooms handles GET /rooms with minCapacity and amenity filters.
func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	var filter domain.RoomFilter
	if raw := r.URL.Query().Get("minCapacity"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			response.BadRequest(w, "minCapacity must be a non-negative integer")
			return
		}
		filter.MinCapacity = v
	}
	filter.Amenity = r.URL.Query().Get("amenity")

	rooms, err := h.rooms.List(r.Context(), filter)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	if rooms == nil {
		rooms = []domain.Room{}
	}
	response.WriteJSON(w, http.StatusOK, rooms)
}
