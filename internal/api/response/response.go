// Package response provides utilities for HTTP response handling.
package response

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/citybrain/gateway/internal/api/middleware"
	"github.com/citybrain/gateway/internal/api/models"
)

func setHeaders(w http.ResponseWriter, r *http.Request) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
}

// JSON writes data as a JSON response with the given status code.
// Includes X-Request-Id header for correlation. A value that fails to encode
// is answered with a 500 error envelope instead.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	if data == nil {
		setHeaders(w, r)
		w.WriteHeader(status)
		return
	}

	body, err := json.Marshal(data)
	if err != nil {
		Error(w, r, http.StatusInternalServerError, models.ErrorStatusInternal, "Internal server error")
		return
	}

	setHeaders(w, r)
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// Raw writes an already-encoded JSON body unchanged.
func Raw(w http.ResponseWriter, r *http.Request, status int, body json.RawMessage) {
	setHeaders(w, r)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Body writes a pipeline result. Raw JSON from a remote backend is written
// byte-for-byte; anything else is encoded.
func Body(w http.ResponseWriter, r *http.Request, status int, data any) {
	if raw, ok := data.(json.RawMessage); ok {
		Raw(w, r, status, raw)
		return
	}
	JSON(w, r, status, data)
}

// Error writes an error envelope with the given status code, kind and message.
func Error(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	models.NewErrorEnvelope(status, kind, message, middleware.GetRequestID(r.Context())).Write(w)
}

// NotFound writes a 404 for unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusNotFound, models.ErrorStatusNotFound, "Not found")
}

// MethodNotAllowed writes a 405 for a known path with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusMethodNotAllowed, models.ErrorStatusMethod, "Method not allowed")
}
