// Package httputil provides shared JSON response helpers for the monitor
// server's handlers.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/banshee-data/calibkit/internal/monitoring"
)

// WriteJSON writes data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		monitoring.Logf("httputil: encode json response: %v", err)
	}
}

// WriteJSONOK writes a successful JSON response (200 OK).
func WriteJSONOK(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteJSONError writes a JSON error body with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// MethodNotAllowed writes a 405 Method Not Allowed response.
func MethodNotAllowed(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusNotFound, msg)
}

// InternalServerError writes a 500 Internal Server Error response.
func InternalServerError(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusInternalServerError, msg)
}
