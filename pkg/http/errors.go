package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// ErrorResponse is the JSON body of every failed API call
type ErrorResponse struct {
	Error       string `json:"error"`                 // Human-readable, deliberately generic
	LockedUntil *int64 `json:"lockedUntil,omitempty"` // Unix milliseconds, throttled logins only
}

// SuccessResponse is the JSON body of login and logout
type SuccessResponse struct {
	Success bool `json:"success"`
}

// WriteJSON writes v as a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Encoding errors are not surfaced to the client
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteSuccess writes {"success":true}
func WriteSuccess(w http.ResponseWriter) {
	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
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

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}

// WriteTooManyRequests writes a 429 carrying the lockout expiry and a Retry-After header.
// now is used only to compute Retry-After.
func WriteTooManyRequests(w http.ResponseWriter, message string, lockedUntil, now time.Time) {
	retryAfter := int(lockedUntil.Sub(now).Round(time.Second) / time.Second)
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	ms := lockedUntil.UnixMilli()
	WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Error:       message,
		LockedUntil: &ms,
	})
}
