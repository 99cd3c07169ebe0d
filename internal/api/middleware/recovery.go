package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/citybrain/gateway/internal/api/models"
)

// Recovery returns a middleware that recovers from panics and writes a 500
// error envelope.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					requestID := GetRequestID(r.Context())

					log.Error().
						Str("request_id", requestID).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Interface("error", err).
						Str("stack", string(debug.Stack())).
						Msg("panic recovered")

					models.NewErrorEnvelope(
						http.StatusInternalServerError,
						models.ErrorStatusInternal,
						"Internal server error",
						requestID,
					).Write(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
