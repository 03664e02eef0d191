// Package httpx provides JSON request/response utilities for the API surface.
package httpx

import (
	"encoding/json"
	"net/http"
)

// SuccessBody is the affirmative response shape shared by the email endpoints.
type SuccessBody struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorBody carries a single user-facing error message.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Success sends a 200 with the success envelope.
func Success(w http.ResponseWriter, message string) {
	JSON(w, http.StatusOK, SuccessBody{Success: true, Message: message})
}

// Error sends an error envelope with the given status.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
