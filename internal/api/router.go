// Package api provides the HTTP API for the CityBrain gateway.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/citybrain/gateway/internal/api/handler"
	"github.com/citybrain/gateway/internal/api/middleware"
	"github.com/citybrain/gateway/internal/api/response"
	"github.com/citybrain/gateway/internal/gateway"
	"github.com/citybrain/gateway/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Service     *gateway.Service
	// DB is pinged by the status endpoint (optional).
	DB handler.Pinger
	// Registry reports inference backend health (optional).
	Registry       *resilience.Registry
	AllowedOrigins []string
	// RateLimit is the per-IP request limit per minute for every endpoint.
	RateLimit int
	// QuestionLimit is the per-IP request limit per minute for question answering.
	QuestionLimit int
}

// NewRouter creates a new chi router with all gateway routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "citybrain-gateway"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))       // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))     // Panic recovery
	r.Use(chimiddleware.RealIP)                // Real IP extraction
	r.Use(middleware.SecurityHeaders)          // Security headers
	r.Use(middleware.CORS(cfg.AllowedOrigins)) // Browser map clients
	r.Use(middleware.ContentTypeJSON)          // JSON content type

	r.NotFound(response.NotFound)
	r.MethodNotAllowed(response.MethodNotAllowed)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.DB, cfg.Registry)
	gw := handler.NewGatewayHandler(cfg.Service, cfg.Logger)

	standardRateLimit := middleware.RateLimitByIP(middleware.PerMinute(cfg.RateLimit, middleware.StandardRateLimit))
	questionRateLimit := middleware.RateLimitByIP(middleware.PerMinute(cfg.QuestionLimit, middleware.QuestionRateLimit))

	// Ops endpoints (unlimited)
	r.Get("/", opsHandler.Root)
	r.Get("/health", opsHandler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", opsHandler.Health)
		r.Get("/status", opsHandler.Status)

		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)

			// Spatial store
			r.Get("/roads", gw.Serve(gateway.OpRoads))
			r.Get("/nearest-road", gw.Serve(gateway.OpNearestRoad))
			r.Get("/junctions", gw.Serve(gateway.OpJunctions))
			r.Get("/construction/geometry", gw.Serve(gateway.OpConstructionGeometry))
			r.Get("/hospitals/buffers", gw.Serve(gateway.OpHospitalBuffers))

			// Impact inference
			r.Route("/impact", func(r chi.Router) {
				r.Get("/{roadId}", gw.Serve(gateway.OpImpactRoad))
				r.Get("/zones/{roadId}", gw.Serve(gateway.OpImpactZones))
				r.Get("/hospitals/{roadId}", gw.Serve(gateway.OpImpactHospitals))
				r.Get("/summary/{roadId}", gw.Serve(gateway.OpImpactSummary))
				r.Get("/semantic/{roadId}", gw.Serve(gateway.OpImpactSemantic))
				r.Get("/junction/{junctionId}", gw.Serve(gateway.OpImpactJunction))
				r.Get("/construction/{roadId}", gw.Serve(gateway.OpImpactConstruction))
			})

			// Map layers
			r.Route("/map", func(r chi.Router) {
				r.Get("/buffer/hospitals", gw.Serve(gateway.OpMapBufferHospitals))
				r.Get("/hospital-buffers", gw.Serve(gateway.OpMapHospitalBuffers))
				// The static route wins over {entity} in chi's radix tree.
				r.Get("/highlight/hospitals", gw.Serve(gateway.OpMapHighlightHospitals))
				r.Get("/highlight/{entity}", gw.Serve(gateway.OpMapHighlight))
			})

			r.Get("/violations/construction-hospitals", gw.Serve(gateway.OpViolations))

			// Question answering - stricter limit on top of the standard one
			r.With(questionRateLimit).Post("/rag/query", gw.Serve(gateway.OpRAGQuery))
		})
	})

	return r
}
