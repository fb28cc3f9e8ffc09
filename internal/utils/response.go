package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// WriteJSON writes v as a JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("no se pudo escribir la respuesta JSON", "error", err)
	}
}

// WriteError writes a JSON error envelope. The cause goes into the body's
// details field; internal causes should be logged by the caller and passed
// here as nil.
func WriteError(w http.ResponseWriter, status int, message string, cause error) {
	body := map[string]string{"error": message}
	if cause != nil {
		body["details"] = cause.Error()
	}
	WriteJSON(w, status, body)
}
