package json

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/helsa/authfront/internal/log"
)

// ErrorResponse represents a standard JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteResponse writes a JSON response with the given status code
func WriteResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.LogError("Failed to encode JSON response: %v", err)
		return err
	}
	return nil
}

// Write writes a JSON response with 200 OK status
func Write(w http.ResponseWriter, data any) error {
	return WriteResponse(w, http.StatusOK, data)
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, statusCode int, error string, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}

	if err := WriteResponse(w, statusCode, response); err != nil {
		// Fallback to plain text error if JSON encoding fails
		http.Error(w, error+": "+message, statusCode)
	}
}

// WriteNullUser writes the 401 response the frontend treats as "not logged in".
// It is deliberately detail-free so verification failures are indistinguishable
// from a missing session.
func WriteNullUser(w http.ResponseWriter) {
	_ = WriteResponse(w, http.StatusUnauthorized, map[string]any{"user": nil})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message)
}

func WriteMethodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
}

func WriteInternalServerError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_server_error", message)
}

// WriteTooManyRequests writes a 429 with a Retry-After hint in seconds.
func WriteTooManyRequests(w http.ResponseWriter, retryAfterSeconds int64) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSeconds, 10))
	}
	WriteError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests, try again later")
}
