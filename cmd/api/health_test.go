package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func healthyProbe(context.Context) error { return nil }

func failingProbe(msg string) func(context.Context) error {
	return func(context.Context) error { return errors.New(msg) }
}

func serveHealth(probes []healthProbe) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", healthCheckHandler("1.0.0", probes))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck_AllProbesHealthy(t *testing.T) {
	rec := serveHealth([]healthProbe{
		{"database", healthyProbe},
		{"redis", healthyProbe},
		{"storage", healthyProbe},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealthCheck_AnyFailingProbeDegrades(t *testing.T) {
	tests := []struct {
		name   string
		probes []healthProbe
	}{
		{"database down", []healthProbe{
			{"database", failingProbe("connection refused")},
			{"redis", healthyProbe},
			{"storage", healthyProbe},
		}},
		{"redis down", []healthProbe{
			{"database", healthyProbe},
			{"redis", failingProbe("connection refused")},
			{"storage", healthyProbe},
		}},
		{"storage down", []healthProbe{
			{"database", healthyProbe},
			{"redis", healthyProbe},
			{"storage", failingProbe("bucket grimoire does not exist")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveHealth(tt.probes)

			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
		})
	}
}

func TestHealthCheck_ReportsFailingDependencyByName(t *testing.T) {
	rec := serveHealth([]healthProbe{
		{"database", healthyProbe},
		{"storage", failingProbe("bucket grimoire does not exist")},
	})

	assert.Contains(t, rec.Body.String(), `"storage"`)
	assert.Contains(t, rec.Body.String(), "bucket grimoire does not exist")
	assert.NotContains(t, rec.Body.String(), `"database":`)
}
