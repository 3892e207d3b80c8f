package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// BlockedUntilLayout renders block expiry as UTC RFC 3339 with milliseconds
const BlockedUntilLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error        string `json:"error"`                  // Human-readable message
	BlockedUntil string `json:"blockedUntil,omitempty"` // Set on 403 block replies
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Encoding errors are not exposed to the client
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteBlocked writes a 403 carrying the instant the block lifts
func WriteBlocked(w http.ResponseWriter, message string, until time.Time) {
	WriteJSON(w, http.StatusForbidden, ErrorResponse{
		Error:        message,
		BlockedUntil: FormatBlockedUntil(until),
	})
}

// FormatBlockedUntil formats t as e.g. 2026-10-21T10:00:00.000Z
func FormatBlockedUntil(t time.Time) string {
	return t.UTC().Format(BlockedUntilLayout)
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}
