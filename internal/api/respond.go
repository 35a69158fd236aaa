package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/wrenchly/internal/booking/domain"
)

// Envelope is the uniform response shape: a success flag plus either a data
// payload or a human-readable message.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// WriteData writes a successful envelope.
func WriteData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// WriteError translates a ledger error into an HTTP status and failure
// envelope. Unknown errors become 500 without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrInvalidState):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrPricingUnavailable):
		status, message = http.StatusUnprocessableEntity, err.Error()
	}

	writeJSON(w, status, Envelope{Success: false, Message: message})
}

// WriteFailure writes a failure envelope with an explicit status.
func WriteFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
