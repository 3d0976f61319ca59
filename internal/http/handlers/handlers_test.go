package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/roomhub/bookings/internal/http/handlers"
	"github.com/roomhub/bookings/internal/http/response"
	"github.com/roomhub/bookings/internal/service"
	"github.com/roomhub/bookings/internal/store/memory"
	"github.com/roomhub/bookings/pkg/events"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := memory.New()
	bus := events.NoopPublisher{}
	h := handlers.New(service.NewBookingService(st, bus), service.NewRoomService(st, bus))

	r := chi.NewRouter()
	r.Post("/rooms", h.CreateRoom)
	r.Get("/rooms", h.ListRooms)
	r.Post("/bookings", h.CreateBooking)
	r.Get("/bookings", h.ListBookings)
	r.Get("/bookings/{id}", h.GetBooking)
	r.Post("/bookings/{id}/cancel", h.CancelBooking)
	r.Get("/reports/room-utilization", h.RoomUtilization)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any, header http.Header) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func createTestRoom(t *testing.T, srv *httptest.Server, name string) map[string]any {
	t.Helper()
	resp := postJSON(t, srv.URL+"/rooms", map[string]any{
		"name":     name,
		"capacity": 6,
		"timezone": "UTC",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room status = %d", resp.StatusCode)
	}
	var room map[string]any
	decodeBody(t, resp, &room)
	return room
}

func bookingPayload(roomID any, start, end string) map[string]any {
	return map[string]any{
		"roomId":         roomID,
		"title":          "retro",
		"organizerEmail": "dee@example.com",
		"startTime":      start,
		"endTime":        end,
	}
}

func TestCreateRoomEndpoint(t *testing.T) {
	srv := newTestServer(t)

	room := createTestRoom(t, srv, "Solstice")
	if room["name"] != "Solstice" {
		t.Errorf("room name = %v", room["name"])
	}
	if room["id"] == nil {
		t.Error("room id missing from response")
	}

	// Case-insensitive name collision.
	resp := postJSON(t, srv.URL+"/rooms", map[string]any{"name": "SOLSTICE", "capacity": 4}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate room status = %d, want 409", resp.StatusCode)
	}
	var errBody response.ErrorResponse
	decodeBody(t, resp, &errBody)
	if errBody.Error != "Conflict" {
		t.Errorf("error kind = %q, want Conflict", errBody.Error)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/rooms", map[string]any{"capacity": 4}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var errBody response.ErrorResponse
	decodeBody(t, resp, &errBody)
	if errBody.Message != `"name" is required` {
		t.Errorf("message = %q", errBody.Message)
	}
}

func TestCreateBookingEndpoint(t *testing.T) {
	srv := newTestServer(t)
	room := createTestRoom(t, srv, "Tidal")

	resp := postJSON(t, srv.URL+"/bookings",
		bookingPayload(room["id"], "2025-12-09T10:00", "2025-12-09T11:00"), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var booking map[string]any
	decodeBody(t, resp, &booking)
	if booking["status"] != "confirmed" {
		t.Errorf("status field = %v", booking["status"])
	}
	if booking["startTime"] != "2025-12-09T10:00:00Z" {
		t.Errorf("startTime = %v, want UTC instant", booking["startTime"])
	}
	if booking["organizerEmail"] != "dee@example.com" {
		t.Errorf("organizerEmail = %v", booking["organizerEmail"])
	}
}

func TestCreateBookingRejections(t *testing.T) {
	srv := newTestServer(t)
	room := createTestRoom(t, srv, "Umber")

	tests := []struct {
		name       string
		payload    map[string]any
		wantStatus int
		wantKind   string
	}{
		{
			name:       "unknown room",
			payload:    bookingPayload(9999, "2025-12-09T10:00", "2025-12-09T11:00"),
			wantStatus: http.StatusNotFound,
			wantKind:   "NotFound",
		},
		{
			name:       "unparsable time",
			payload:    bookingPayload(room["id"], "whenever", "2025-12-09T11:00"),
			wantStatus: http.StatusBadRequest,
			wantKind:   "InvalidTime",
		},
		{
			name:       "weekend",
			payload:    bookingPayload(room["id"], "2025-12-13T10:00", "2025-12-13T11:00"),
			wantStatus: http.StatusBadRequest,
			wantKind:   "OutsideBusinessHours",
		},
		{
			name:       "too long",
			payload:    bookingPayload(room["id"], "2025-12-09T08:00", "2025-12-09T13:00"),
			wantStatus: http.StatusBadRequest,
			wantKind:   "InvalidDuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/bookings", tt.payload, nil)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var errBody response.ErrorResponse
			decodeBody(t, resp, &errBody)
			if errBody.Error != tt.wantKind {
				t.Errorf("error kind = %q, want %q", errBody.Error, tt.wantKind)
			}
		})
	}
}

func TestCreateBookingMissingField(t *testing.T) {
	srv := newTestServer(t)
	room := createTestRoom(t, srv, "Vesper")

	payload := bookingPayload(room["id"], "2025-12-09T10:00", "2025-12-09T11:00")
	delete(payload, "organizerEmail")

	resp := postJSON(t, srv.URL+"/bookings", payload, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var errBody response.ErrorResponse
	decodeBody(t, resp, &errBody)
	if errBody.Message != `"organizerEmail" is required` {
		t.Errorf("message = %q", errBody.Message)
	}
}

func TestCreateBookingOverlapStatus(t *testing.T) {
	srv := newTestServer(t)
	room := createTestRoom(t, srv, "Wren")

	resp := postJSON(t, srv.URL+"/bookings",
		bookingPayload(room["id"], "2025-12-09T10:00", "2025-12-09T11:00"), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first booking status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/bookings",
		bookingPayload(room["id"], "2025-12-09T10:30", "2025-12-09T11:30"), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
	var errBody response.ErrorResponse
	decodeBody(t, resp, &errBody)
	if errBody.Error != "OverlapConflict" {
		t.Errorf("error kind = %q, want OverlapConflict", errBody.Error)
	}
}

func TestIdempotencyKeyHeaderReplay(t *testing.T) {
	srv := newTestServer(t)
	room := createTestRoom(t, srv, "Yarrow")

	header := http.Header{"Idempotency-Key": []string{"hdr-1"}}
	payload := bookingPayload(room["id"], "2025-12-09T10:00", "2025-12-09T11:00")

	resp := postJSON(t, srv.URL+"/bookings", payload, header)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first status = %d", resp.StatusCode)
	}
	var first map[string]any
	decodeBody(t, resp, &first)

	resp = postJSON(t, srv.URL+"/bookings", payload, header)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("replay status = %d", resp.StatusCode)
	}
	var second map[string]any
	decodeBody(t, resp, &second)

	if first["id"] != second["id"] {
		t.Errorf("replay id = %v, want %v", second["id"], first["id"])
	}
}

func TestGetAndCancelBookingEndpoints(t *testing.T) {
	srv := newTestServer(t)
	room := createTestRoom(t, srv, "Zephyr")

	resp := postJSON(t, srv.URL+"/bookings",
		bookingPayload(room["id"], "2025-12-09T10:00", "2025-12-09T11:00"), nil)
	var booking map[string]any
	decodeBody(t, resp, &booking)
	id := int64(booking["id"].(float64))

	getResp, err := http.Get(fmt.Sprintf("%s/bookings/%d", srv.URL, id))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if getResp.StatusCode != http.StatusOK {
		t.Errorf("get status = %d, want 200", getResp.StatusCode)
	}
	getResp.Body.Close()

	for i := 0; i < 2; i++ {
		cancelResp := postJSON(t, fmt.Sprintf("%s/bookings/%d/cancel", srv.URL, id), map[string]any{}, nil)
		if cancelResp.StatusCode != http.StatusOK {
			t.Fatalf("cancel attempt %d status = %d, want 200", i+1, cancelResp.StatusCode)
		}
		var cancelled map[string]any
		decodeBody(t, cancelResp, &cancelled)
		if cancelled["status"] != "cancelled" {
			t.Errorf("cancel attempt %d status field = %v", i+1, cancelled["status"])
		}
		if cancelled["cancelledAt"] == nil {
			t.Errorf("cancel attempt %d cancelledAt missing", i+1)
		}
	}
}

func TestGetBookingNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/bookings/404")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	var errBody response.ErrorResponse
	decodeBody(t, resp, &errBody)
	if errBody.Error != "NotFound" {
		t.Errorf("error kind = %q, want NotFound", errBody.Error)
	}
}

func TestListBookingsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	room := createTestRoom(t, srv, "Alder")
	other := createTestRoom(t, srv, "Bramble")

	for _, p := range []map[string]any{
		bookingPayload(room["id"], "2025-12-09T09:00", "2025-12-09T10:00"),
		bookingPayload(room["id"], "2025-12-09T11:00", "2025-12-09T12:00"),
		bookingPayload(other["id"], "2025-12-09T09:00", "2025-12-09T10:00"),
	} {
		resp := postJSON(t, srv.URL+"/bookings", p, nil)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed booking status = %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp, err := http.Get(fmt.Sprintf("%s/bookings?roomId=%v", srv.URL, room["id"]))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var page struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
	}
	decodeBody(t, resp, &page)
	if page.Total != 2 || len(page.Items) != 2 {
		t.Errorf("filtered page total = %d items = %d, want 2/2", page.Total, len(page.Items))
	}

	// Filter bounds accept the same ISO shapes as the report endpoint,
	// seconds included.
	resp, err = http.Get(fmt.Sprintf("%s/bookings?roomId=%v&from=2025-12-09T10:00:00&to=2025-12-09T13:00:00", srv.URL, room["id"]))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("seconds-layout bounds status = %d, want 200", resp.StatusCode)
	}
	decodeBody(t, resp, &page)
	if page.Total != 2 {
		t.Errorf("bounded page total = %d, want 2", page.Total)
	}

	resp, err = http.Get(srv.URL + "/bookings?roomId=abc")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad roomId status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoomUtilizationEndpoint(t *testing.T) {
	srv := newTestServer(t)
	room := createTestRoom(t, srv, "Cobalt")

	resp := postJSON(t, srv.URL+"/bookings",
		bookingPayload(room["id"], "2025-12-09T08:00", "2025-12-09T12:00"), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("seed booking status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	getResp, err := http.Get(srv.URL + "/reports/room-utilization?from=2025-12-09T08:00&to=2025-12-09T12:00")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", getResp.StatusCode)
	}
	var report []map[string]any
	decodeBody(t, getResp, &report)
	if len(report) != 1 {
		t.Fatalf("report rows = %d, want 1", len(report))
	}
	if report[0]["utilizationPercent"] != 1.0 {
		t.Errorf("utilizationPercent = %v, want 1", report[0]["utilizationPercent"])
	}
	if report[0]["totalBookingHours"] != 4.0 {
		t.Errorf("totalBookingHours = %v, want 4", report[0]["totalBookingHours"])
	}

	missing, err := http.Get(srv.URL + "/reports/room-utilization?from=2025-12-09T08:00")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if missing.StatusCode != http.StatusBadRequest {
		t.Errorf("missing to status = %d, want 400", missing.StatusCode)
	}
	var errBody response.ErrorResponse
	decodeBody(t, missing, &errBody)
	if errBody.Error != "InvalidRange" {
		t.Errorf("error kind = %q, want InvalidRange", errBody.Error)
	}
}

func TestListRoomsEmpty(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/rooms")
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var rooms []map[string]any
	decodeBody(t, resp, &rooms)
	if rooms == nil {
		t.Error("expected empty array, got null")
	}
	if len(rooms) != 0 {
		t.Errorf("rooms = %v, want empty", rooms)
	}
}

func TestCreateBookingInvalidJSON(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/bookings", "application/json", bytes.NewBufferString("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}
