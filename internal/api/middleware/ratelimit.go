package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/citybrain/gateway/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Requests per window
	RequestLimit int
	// Window duration
	WindowLength time.Duration
}

// Default rate limit configurations.
var (
	// StandardRateLimit applies to every public endpoint (100 req/min).
	StandardRateLimit = RateLimitConfig{
		RequestLimit: 100,
		WindowLength: time.Minute,
	}

	// QuestionRateLimit applies to question answering, which is the most
	// expensive call on the inference service (20 req/min).
	QuestionRateLimit = RateLimitConfig{
		RequestLimit: 20,
		WindowLength: time.Minute,
	}
)

// PerMinute returns a one-minute window allowing limit requests. A non-positive
// limit falls back to def.
func PerMinute(limit int, def RateLimitConfig) RateLimitConfig {
	if limit <= 0 {
		return def
	}
	return RateLimitConfig{RequestLimit: limit, WindowLength: time.Minute}
}

// RateLimitByIP creates a rate limiter middleware using client IP address.
// Uses X-Forwarded-For header if present (extracted by chi's RealIP middleware).
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceededHandler),
	)
}

// rateLimitExceededHandler writes a 429 error envelope.
func rateLimitExceededHandler(w http.ResponseWriter, r *http.Request) {
	// httprate doesn't expose the reset time, so use a conservative estimate.
	w.Header().Set("Retry-After", strconv.Itoa(60))

	models.NewErrorEnvelope(
		http.StatusTooManyRequests,
		models.ErrorStatusRateLimited,
		"Rate limit exceeded. Please try again later.",
		GetRequestID(r.Context()),
	).Write(w)
}
