package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	err error
}

func (s stubChecker) CheckHealth(ctx context.Context) error {
	return s.err
}

func testServer(health *HealthManager, status StatusFunc) *Server {
	return New(Config{Host: "127.0.0.1", Port: 0}, health, status, nil)
}

func TestHealthHandler_Healthy(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("db", stubChecker{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "healthy", resp.Checks["db"])
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("db", stubChecker{err: errors.New("down")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "unhealthy", resp.Checks["db"])
}

func TestDetermineOverallStatus_TimeoutDegrades(t *testing.T) {
	manager := NewHealthManager("dev")

	status := manager.determineOverallStatus(map[string]string{
		"db":        "timeout",
		"scheduler": "healthy",
	})
	assert.Equal(t, "degraded", status)
}

func TestDetermineOverallStatus_UnhealthyWins(t *testing.T) {
	manager := NewHealthManager("dev")

	status := manager.determineOverallStatus(map[string]string{
		"db":        "timeout",
		"scheduler": "unhealthy",
	})
	assert.Equal(t, "unhealthy", status)
}

func TestHealthCheckerFunc(t *testing.T) {
	called := false
	f := HealthCheckerFunc(func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, f.CheckHealth(context.Background()))
	assert.True(t, called)
}

func TestServer_RoutesRegistered(t *testing.T) {
	manager := NewHealthManager("test")
	srv := testServer(manager, nil)

	endpoints := []string{"/health", "/health/live", "/health/ready", "/status", "/version"}
	for _, path := range endpoints {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()

			srv.Handler().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestServer_StatusEndpoint(t *testing.T) {
	lastRun := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := testServer(nil, func() StatusSnapshot {
		return StatusSnapshot{
			Running:   true,
			RunCount:  7,
			FailCount: 1,
			LastRun:   &lastRun,
			LastError: "board unavailable",
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var snap StatusSnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.True(t, snap.Running)
	assert.Equal(t, int64(7), snap.RunCount)
	assert.Equal(t, int64(1), snap.FailCount)
	assert.Equal(t, "board unavailable", snap.LastError)
	require.NotNil(t, snap.LastRun)
	assert.True(t, snap.LastRun.Equal(lastRun))
}

func TestServer_StatusWithoutSource(t *testing.T) {
	srv := testServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var snap StatusSnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.False(t, snap.Running)
	assert.Zero(t, snap.RunCount)
}

func TestServer_UnknownRoute(t *testing.T) {
	srv := testServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
