package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/citybrain/gateway/internal/api/middleware"
	"github.com/citybrain/gateway/internal/api/response"
	"github.com/citybrain/gateway/internal/gateway"
)

// maxBodyBytes caps inbound request bodies.
const maxBodyBytes = 1 << 20

// GatewayHandler serves every public operation through the gateway pipeline.
type GatewayHandler struct {
	service *gateway.Service
	logger  zerolog.Logger
}

// NewGatewayHandler creates a new GatewayHandler.
func NewGatewayHandler(service *gateway.Service, logger zerolog.Logger) *GatewayHandler {
	return &GatewayHandler{
		service: service,
		logger:  logger,
	}
}

// Serve returns the handler for op. Path parameters come from the chi route, so
// the route pattern must name them as the operation declares them.
func (h *GatewayHandler) Serve(op gateway.Operation) http.HandlerFunc {
	desc, _ := h.service.Selector().Descriptor(op)

	return func(w http.ResponseWriter, r *http.Request) {
		in := gateway.Input{
			PathParams: make(map[string]string, len(desc.PathParams)),
			Query:      r.URL.Query(),
		}
		for _, name := range desc.PathParams {
			if v := chi.URLParam(r, name); v != "" {
				in.PathParams[name] = v
			}
		}

		if desc.Body != gateway.BodyNone && r.Body != nil {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				h.writeError(w, r, desc, gateway.NewValidationError(bodyErrorMessage(err)))
				return
			}
			in.Body = body
		}

		body, err := h.service.Handle(r.Context(), op, in)
		if err != nil {
			h.writeError(w, r, desc, err)
			return
		}

		response.Body(w, r, http.StatusOK, body)
	}
}

// writeError maps a pipeline failure to the error envelope. Only validation
// messages reach the client; every other kind gets the operation's fixed message.
func (h *GatewayHandler) writeError(w http.ResponseWriter, r *http.Request, desc gateway.Descriptor, err error) {
	gwErr := gateway.AsError(err)
	if gwErr.Op == "" {
		gwErr.Op = desc.Operation
	}

	message := desc.FailureMessage
	if gwErr.Kind == gateway.KindValidation {
		message = gwErr.Message
	}
	if message == "" {
		message = "Internal server error"
	}

	event := h.logger.Error()
	msg := "operation failed"
	switch gwErr.Kind {
	case gateway.KindValidation:
		event = h.logger.Debug()
		msg = "request rejected"
	case gateway.KindTimeout:
		event = h.logger.Warn()
		msg = "backend timed out"
	}

	event.
		Err(gwErr).
		Str("request_id", middleware.GetRequestID(r.Context())).
		Str("operation", string(gwErr.Op)).
		Str("kind", string(gwErr.Kind)).
		Str("backend", gwErr.Backend).
		Int("upstream_status", gwErr.StatusCode).
		Msg(msg)

	response.Error(w, r, gwErr.HTTPStatus(), string(gwErr.Kind), message)
}

func bodyErrorMessage(err error) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return "request body too large"
	}
	return "request body could not be read"
}
