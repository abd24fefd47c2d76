// Package handlers implements the JSON API endpoints. Handlers are grouped
// into structs (Auth, Users, Posts, Upload) that carry their dependencies.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the standard {"error": msg} body used across the API.
// Internal failure detail is logged by the caller, never sent to clients.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// slogError records an internal failure with its operation name.
func slogError(op string, err error) {
	slog.Error(op+" failed", "error", err)
}

// decodeJSON parses a request body into dst. Returns false after writing a
// 400 response when the body is malformed.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
