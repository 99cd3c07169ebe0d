// Package gateway provides the operation table, parameter normalization and backend
// dispatch shared by every public endpoint of the CityBrain gateway.
package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for gateway operations, one per failure kind.
var (
	// ErrConfiguration indicates an operation has no usable backend target.
	ErrConfiguration = errors.New("gateway misconfigured")
	// ErrValidation indicates a malformed or missing request parameter.
	ErrValidation = errors.New("invalid request parameters")
	// ErrBackend indicates a spatial store query failed.
	ErrBackend = errors.New("spatial store query failed")
	// ErrNotFound indicates a query succeeded but matched nothing.
	ErrNotFound = errors.New("no matching row")
	// ErrRemoteService indicates the inference service failed or returned garbage.
	ErrRemoteService = errors.New("inference service failed")
	// ErrTimeout indicates a backend exceeded its time bound.
	ErrTimeout = errors.New("backend timed out")
)

// Kind classifies a gateway failure.
type Kind string

// Failure kinds. The string values appear in the error envelope's status field.
const (
	KindConfiguration Kind = "configuration_error"
	KindValidation    Kind = "validation_error"
	KindBackend       Kind = "backend_error"
	KindNotFound      Kind = "not_found"
	KindRemote        Kind = "remote_service_error"
	KindTimeout       Kind = "timeout"
)

// Backend names used in errors, logs and metrics.
const (
	BackendSpatial   = "spatial-store"
	BackendInference = "inference"
)

// Error is a classified gateway failure.
type Error struct {
	// Kind is the failure class.
	Kind Kind
	// Op is the operation that failed, filled in by the Service.
	Op Operation
	// Backend names the dependency involved, if any.
	Backend string
	// Message describes the failure. For validation errors it is safe to show to clients.
	Message string
	// StatusCode is the upstream HTTP status for remote failures.
	StatusCode int
	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = string(e.Op) + ": " + msg
	}
	if e.Backend != "" {
		msg += " (" + e.Backend + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error for the failure kind.
func (e *Error) Is(target error) bool {
	return target == sentinel(e.Kind)
}

// HTTPStatus returns the status code the gateway answers with for this failure.
func (e *Error) HTTPStatus() int {
	if e.Kind == KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func sentinel(k Kind) error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindValidation:
		return ErrValidation
	case KindBackend:
		return ErrBackend
	case KindNotFound:
		return ErrNotFound
	case KindRemote:
		return ErrRemoteService
	case KindTimeout:
		return ErrTimeout
	default:
		return nil
	}
}

// NewConfigurationError reports a startup-time wiring mistake.
func NewConfigurationError(op Operation, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError reports a bad request parameter.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewBackendError wraps a spatial store failure.
func NewBackendError(err error) *Error {
	return &Error{Kind: KindBackend, Backend: BackendSpatial, Err: err}
}

// NewNotFoundError reports an empty result for an operation that needs a match.
func NewNotFoundError(backend, message string) *Error {
	return &Error{Kind: KindNotFound, Backend: backend, Message: message}
}

// NewRemoteError wraps an inference service failure. statusCode is 0 for transport errors.
func NewRemoteError(statusCode int, message string, err error) *Error {
	return &Error{Kind: KindRemote, Backend: BackendInference, StatusCode: statusCode, Message: message, Err: err}
}

// NewTimeoutError wraps a deadline exceeded against the named backend.
func NewTimeoutError(backend string, err error) *Error {
	return &Error{Kind: KindTimeout, Backend: backend, Err: err}
}

// AsError extracts a *Error from err. Unclassified errors come back as backend
// failures so the caller always has a kind to act on.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}
	return &Error{Kind: KindBackend, Err: err}
}
