// Package httpx holds the JSON response and error mapping helpers shared by
// the HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ayush/task-manager/backend/internal/models"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the JSON body of every failed request. Detail is only
// filled in development mode.
type ErrorResponse struct {
	Message string `json:"message"`
	Detail  string `json:"error,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// DecodeJSON reads a single JSON document from the request body into dst.
// Malformed bodies come back as validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return models.NewValidationError("Request body is required")
		}
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

// Classify maps an error to its HTTP status and client-facing message.
func Classify(err error) (int, string) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Msg
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, models.ErrDuplicateUser):
		return http.StatusBadRequest, "User already exists"
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusBadRequest, "Invalid credentials"
	case errors.Is(err, models.ErrInvalidToken):
		return http.StatusUnauthorized, "Token is not valid"
	case errors.Is(err, models.ErrNotOwner):
		return http.StatusUnauthorized, "Not authorized"
	case errors.Is(err, models.ErrTaskNotFound):
		return http.StatusNotFound, "Task not found"
	case errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	}
	return http.StatusInternalServerError, "Server Error"
}

// Responder writes error responses. With Dev set, internal errors carry
// their detail back to the client.
type Responder struct {
	Dev bool
	Log *slog.Logger
}

func (rs *Responder) logger() *slog.Logger {
	if rs == nil || rs.Log == nil {
		return slog.Default()
	}
	return rs.Log
}

// Error classifies err, logs it and writes the {message} body.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := Classify(err)
	resp := ErrorResponse{Message: msg}

	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
		if rs != nil && rs.Dev {
			resp.Detail = err.Error()
		}
	}
	rs.logger().Log(r.Context(), level, "request failed",
		"request_id", chimw.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err.Error(),
		"error_type", fmt.Sprintf("%T", err))

	WriteJSON(w, status, resp)
}

// Message writes a bare {"message": msg} body.
func Message(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, models.MessageResponse{Message: msg})
}
