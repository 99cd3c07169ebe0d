package models_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citybrain/gateway/internal/api/models"
)

func TestErrorEnvelope_Write(t *testing.T) {
	rec := httptest.NewRecorder()

	models.NewErrorEnvelope(http.StatusBadRequest, "validation_error", "lat is required", "req_abc").Write(rec)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "req_abc", rec.Header().Get("X-Request-Id"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "lat is required", body["error"])
	assert.Equal(t, "validation_error", body["status"])
	assert.Equal(t, "req_abc", body["traceId"])
}

func TestErrorEnvelope_DefaultsTo500(t *testing.T) {
	env := &models.ErrorEnvelope{Error: "Error fetching roads"}
	assert.Equal(t, http.StatusInternalServerError, env.Code())

	rec := httptest.NewRecorder()
	env.Write(rec)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Error fetching roads"}`, rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Request-Id"))
}
