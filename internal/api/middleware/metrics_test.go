package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/citybrain/gateway/internal/api/middleware"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewMetrics(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)
	assert.NotNil(t, metrics)
}

func TestMetrics_Middleware_LabelsByRoutePattern(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := middleware.NewMetricsWithMeter(provider.Meter("test"))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/api/impact/{roadId}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/impact/"+id, http.NoBody))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	got := collect(t, reader)
	total, ok := got["http.server.request.total"]
	require.True(t, ok)

	sum, ok := total.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1, "one series for all road ids")
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)

	route, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("http.route"))
	require.True(t, ok)
	assert.Equal(t, "/api/impact/{roadId}", route.AsString())
}

func TestMetrics_Middleware_Error(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/roads", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBackendMetrics_RecordRequest(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := middleware.NewBackendMetrics(provider.Meter("test"))
	require.NoError(t, err)

	metrics.RecordRequest("inference", "impact_road", 120*time.Millisecond, nil)
	metrics.RecordRequest("inference", "impact_road", 80*time.Millisecond, errors.New("upstream returned status 502"))
	metrics.RecordRequest("spatial-store", "roads", 10*time.Millisecond, nil)

	got := collect(t, reader)

	total := got["gateway.backend.request.total"].Data.(metricdata.Sum[int64])
	var calls int64
	for _, dp := range total.DataPoints {
		calls += dp.Value
	}
	assert.Equal(t, int64(3), calls)

	errs := got["gateway.backend.request.errors"].Data.(metricdata.Sum[int64])
	require.Len(t, errs.DataPoints, 1)
	assert.Equal(t, int64(1), errs.DataPoints[0].Value)

	backend, ok := errs.DataPoints[0].Attributes.Value(attribute.Key("backend.name"))
	require.True(t, ok)
	assert.Equal(t, "inference", backend.AsString())
}
