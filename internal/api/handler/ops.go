// Package handler provides HTTP handlers for the CityBrain gateway.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/citybrain/gateway/internal/api/models"
	"github.com/citybrain/gateway/internal/api/response"
	"github.com/citybrain/gateway/internal/provider/resilience"
)

// Banner and health messages returned by the unauthenticated endpoints.
const (
	BannerMessage = "CityBrain Gateway running"
	HealthMessage = "CityBrain Gateway Running"
)

// pingTimeout bounds the database check in the status endpoint.
const pingTimeout = 2 * time.Second

// Pinger checks database reachability. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version  string
	db       Pinger
	registry *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler. db and registry may be nil.
func NewOpsHandler(version string, db Pinger, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:  version,
		db:       db,
		registry: registry,
	}
}

// Root handles GET / - service banner.
func (h *OpsHandler) Root(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Banner{Message: BannerMessage})
}

// Health handles GET /health and GET /api/health - liveness check. It never
// touches a backend.
func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{Status: HealthMessage})
}

// Status handles GET /api/status - database and inference backend status.
func (h *OpsHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:   models.HealthStatusOK,
		Time:     models.Timestamp(time.Now()),
		Version:  h.version,
		Database: h.databaseStatus(r.Context()),
		Backends: []models.BackendStatus{},
	}

	if status.Database.Status == models.HealthStatusFail {
		status.Status = models.HealthStatusFail
	}

	if h.registry != nil {
		for _, health := range h.registry.All() {
			backend := backendStatus(health)
			if backend.Status != models.HealthStatusOK && status.Status == models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
			status.Backends = append(status.Backends, backend)
		}
	}

	code := http.StatusOK
	if status.Status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, status)
}

func (h *OpsHandler) databaseStatus(ctx context.Context) models.SubsystemStatus {
	sub := models.SubsystemStatus{Name: "postgis", Status: models.HealthStatusOK}
	if h.db == nil {
		detail := "not configured"
		sub.Status = models.HealthStatusFail
		sub.Detail = &detail
		return sub
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		detail := "unreachable"
		sub.Status = models.HealthStatusFail
		sub.Detail = &detail
	}
	return sub
}

func backendStatus(health *resilience.BackendHealth) models.BackendStatus {
	status := models.BackendStatus{
		Name:           health.Name,
		Status:         models.HealthStatusOK,
		BreakerEnabled: health.BreakerEnabled,
		CircuitState:   health.CircuitState.String(),
		LastSuccessAt:  models.TimestampPtr(health.LastSuccessAt),
		LastFailureAt:  models.TimestampPtr(health.LastFailureAt),
	}

	switch health.Status() {
	case resilience.StatusUnhealthy:
		status.Status = models.HealthStatusFail
	case resilience.StatusDegraded:
		status.Status = models.HealthStatusDegraded
	}

	// Without a breaker the state is always closed; fall back to the last outcome.
	if status.Status == models.HealthStatusOK && failedMostRecently(health) {
		status.Status = models.HealthStatusDegraded
	}

	if health.LastError != "" {
		msg := health.LastError
		status.Message = &msg
	}
	return status
}

func failedMostRecently(health *resilience.BackendHealth) bool {
	if health.LastFailureAt == nil {
		return false
	}
	return health.LastSuccessAt == nil || !health.LastFailureAt.Before(*health.LastSuccessAt)
}
