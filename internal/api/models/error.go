package models

import (
	"net/http"

	"github.com/goccy/go-json"
)

// Envelope status values not produced by the gateway pipeline.
const (
	ErrorStatusRateLimited = "rate_limited"
	ErrorStatusInternal    = "internal_error"
	ErrorStatusNotFound    = "not_found"
	ErrorStatusMethod      = "method_not_allowed"
)

// ErrorEnvelope is the body of every error response.
type ErrorEnvelope struct {
	// Error is the client-facing message. For backend failures this is the
	// operation's fixed message, never the underlying cause.
	Error string `json:"error"`

	// Status is the failure kind, e.g. "validation_error" or "remote_service_error".
	Status string `json:"status,omitempty"`

	// TraceID is the request identifier for correlating with logs.
	TraceID string `json:"traceId,omitempty"`

	code int
}

// NewErrorEnvelope creates an envelope that is written with the given HTTP status.
func NewErrorEnvelope(code int, status, message, traceID string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Error:   message,
		Status:  status,
		TraceID: traceID,
		code:    code,
	}
}

// Code returns the HTTP status the envelope is written with.
func (e *ErrorEnvelope) Code() int {
	if e.code == 0 {
		return http.StatusInternalServerError
	}
	return e.code
}

// Write writes the envelope as JSON to the ResponseWriter.
func (e *ErrorEnvelope) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if e.TraceID != "" {
		w.Header().Set("X-Request-Id", e.TraceID)
	}
	w.WriteHeader(e.Code())
	_ = json.NewEncoder(w).Encode(e)
}
