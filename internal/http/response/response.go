package response

import (
	"encoding/json"
	"net/http"

	"github.com/roomhub/bookings/internal/domain"
	"github.com/roomhub/bookings/pkg/logger"
)

// ErrorResponse is the wire shape of every rejection: a stable kind plus a
// human-readable message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, statusCode int, kind, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: kind, Message: message})
}

// WriteDomainError maps a classified failure onto a transport status.
func WriteDomainError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	message := err.Error()
	if kind == domain.KindStorageError {
		message = "internal server error"
	}
	WriteError(w, statusFor(kind), string(kind), message)
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindOverlapConflict, domain.KindIdempotencyInProgress, domain.KindConflict:
		return http.StatusConflict
	case domain.KindInvalidTime, domain.KindInvalidRange, domain.KindInvalidDuration, domain.KindOutsideBusinessHours:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "InvalidInput", message)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, string(domain.KindNotFound), message)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, string(domain.KindStorageError), message)
}
