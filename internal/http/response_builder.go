// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for constructing JSON envelope
// responses. Every response, success or failure, carries the same
// {success, message, error, data} shape.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"trainingclub/internal/core"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building envelope responses.
type JSONResponseBuilder struct {
	statusCode int
	envelope   Envelope
	headers    map[string]string
}

// NewJSONResponse creates a successful response builder with a 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		envelope:   Envelope{Success: true},
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Message sets a human readable message.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	b.envelope.Message = msg
	return b
}

// Data sets the payload.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.envelope.Data = v
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.envelope); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// ErrorResponse creates a failed envelope with the given status.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	b := NewJSONResponse().Status(statusCode)
	b.envelope.Success = false
	b.envelope.Error = message
	return b
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// UnauthorizedError creates a 401 response with a bearer challenge.
func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message).Header("WWW-Authenticate", `Bearer realm="trainingclub"`)
}

// ForbiddenError creates a 403 Forbidden error response.
func ForbiddenError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusForbidden, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed")
}

// statusFor maps a domain error kind to an HTTP status.
func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindInvalidArgument:
		return http.StatusBadRequest
	case core.KindAlreadyRecorded:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FromError builds the error envelope for err. Domain errors keep their
// message; anything else is logged and reported generically.
func FromError(r *http.Request, err error) *JSONResponseBuilder {
	status := statusFor(err)
	var de *core.Error
	if !errors.As(err, &de) {
		slog.ErrorContext(r.Context(), "Unhandled error", "path", r.URL.Path, "error", err)
		return InternalServerError("internal error")
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Storage failure", "path", r.URL.Path, "error", err)
	}
	return ErrorResponse(status, err.Error())
}
