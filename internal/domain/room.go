package domain

import "time"

// Room is read by the booking core; it is only ever written through the
// room directory endpoints.
type Room struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	Floor     *int      `json:"floor,omitempty"`
	Amenities []string  `json:"amenities"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

// Location resolves the room's IANA timezone, falling back to UTC when the
// name is empty or unknown.
func (r *Room) Location() *time.Location {
	if r.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type RoomCreateReq struct {
	Name      string   `json:"name" validate:"required,min=1"`
	Capacity  int      `json:"capacity" validate:"required,min=1"`
	Floor     *int     `json:"floor,omitempty"`
	Amenities []string `json:"amenities,omitempty" validate:"omitempty,dive,min=1"`
	Timezone  string   `json:"timezone,omitempty"`
}

type RoomFilter struct {
	MinCapacity int
	Amenity     string
}
