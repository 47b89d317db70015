// Package routes wires the HTTP surface. Every response is wrapped in
// the success/message/payload envelope; taxonomy errors map to status
// codes via errs.Status.
package routes

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"rbeam/internal/core/errs"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to write response", slog.String("error", err.Error()))
	}
}

func writeOK(w http.ResponseWriter, payload any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Payload: payload})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errs.Status(err), envelope{Success: false, Message: err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", errs.ErrValue)
	}
	return nil
}
