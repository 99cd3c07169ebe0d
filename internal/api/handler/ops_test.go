package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citybrain/gateway/internal/api/handler"
	"github.com/citybrain/gateway/internal/provider/resilience"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

func TestOpsHandler_Root(t *testing.T) {
	h := handler.NewOpsHandler("1.0.0", nil, nil)

	rec := httptest.NewRecorder()
	h.Root(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"CityBrain Gateway running"}`, rec.Body.String())
}

func TestOpsHandler_Health(t *testing.T) {
	h := handler.NewOpsHandler("1.0.0", stubPinger{err: errors.New("down")}, nil)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code, "liveness does not depend on backends")
	assert.JSONEq(t, `{"status":"CityBrain Gateway Running"}`, rec.Body.String())
}

func TestOpsHandler_Status(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("inference")
	cfg.Registry = registry
	resilience.NewClient(cfg)

	registry.RecordSuccess("inference")

	tests := []struct {
		name       string
		db         handler.Pinger
		failLast   bool
		wantCode   int
		wantStatus string
	}{
		{name: "all ok", db: stubPinger{}, wantCode: http.StatusOK, wantStatus: "OK"},
		{name: "database down", db: stubPinger{err: errors.New("refused")}, wantCode: http.StatusServiceUnavailable, wantStatus: "FAIL"},
		{name: "database missing", db: nil, wantCode: http.StatusServiceUnavailable, wantStatus: "FAIL"},
		{name: "backend failing", db: stubPinger{}, failLast: true, wantCode: http.StatusOK, wantStatus: "DEGRADED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.failLast {
				registry.RecordFailure("inference", errors.New("upstream returned status 502"))
				defer registry.RecordSuccess("inference")
			}

			h := handler.NewOpsHandler("1.0.0", tt.db, registry)

			rec := httptest.NewRecorder()
			h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/status", http.NoBody))

			assert.Equal(t, tt.wantCode, rec.Code)

			var body struct {
				Status   string `json:"status"`
				Version  string `json:"version"`
				Database struct {
					Name   string `json:"name"`
					Status string `json:"status"`
				} `json:"database"`
				Backends []struct {
					Name         string `json:"name"`
					CircuitState string `json:"circuitState"`
				} `json:"backends"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, "1.0.0", body.Version)
			assert.Equal(t, "postgis", body.Database.Name)
			require.Len(t, body.Backends, 1)
			assert.Equal(t, "inference", body.Backends[0].Name)
			assert.Equal(t, "closed", body.Backends[0].CircuitState)
		})
	}
}
