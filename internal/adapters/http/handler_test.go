package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberpaas/tenantdock/internal/adapters/metrics"
	"github.com/cyberpaas/tenantdock/internal/config"
	"github.com/cyberpaas/tenantdock/internal/core/domain"
	"github.com/cyberpaas/tenantdock/internal/core/services"
)

// stubRuntime backs the telemetry and lifecycle endpoints with fixed state.
type stubRuntime struct {
	statuses map[string]string
}

func (s *stubRuntime) EnsureNetwork(context.Context, string, string) error   { return nil }
func (s *stubRuntime) EnsureVolume(context.Context, string) error            { return nil }
func (s *stubRuntime) RemoveContainerIfExists(context.Context, string) error { return nil }
func (s *stubRuntime) ImageExists(context.Context, string) (bool, error)     { return true, nil }
func (s *stubRuntime) RunContainer(_ context.Context, spec domain.ContainerSpec) (string, error) {
	return spec.Name, nil
}

func (s *stubRuntime) ContainerStatus(_ context.Context, id string) (string, error) {
	state, ok := s.statuses[id]
	if !ok {
		return "", fmt.Errorf("container %s: %w", id, domain.ErrNotFound)
	}
	return state, nil
}

func (s *stubRuntime) ContainerStats(_ context.Context, id string) (*domain.RawStats, error) {
	if _, ok := s.statuses[id]; !ok {
		return nil, fmt.Errorf("container %s: %w", id, domain.ErrNotFound)
	}
	return &domain.RawStats{
		CPU:    &domain.CPUStats{Usage: domain.CPUUsage{TotalUsage: 400}, SystemUsage: 2000},
		PreCPU: &domain.CPUStats{Usage: domain.CPUUsage{TotalUsage: 200}, SystemUsage: 1000},
		Memory: &domain.MemoryStats{Usage: 1024 * 1024, Limit: 4 * 1024 * 1024},
	}, nil
}

func (s *stubRuntime) ContainerLogs(_ context.Context, id string, _ int) ([]string, error) {
	if _, ok := s.statuses[id]; !ok {
		return nil, fmt.Errorf("container %s: %w", id, domain.ErrNotFound)
	}
	return []string{"ready"}, nil
}

func (s *stubRuntime) lifecycle(id string) error {
	if _, ok := s.statuses[id]; !ok {
		return fmt.Errorf("container %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *stubRuntime) StartContainer(_ context.Context, id string) error   { return s.lifecycle(id) }
func (s *stubRuntime) StopContainer(_ context.Context, id string) error    { return s.lifecycle(id) }
func (s *stubRuntime) RestartContainer(_ context.Context, id string) error { return s.lifecycle(id) }
func (s *stubRuntime) RemoveContainer(_ context.Context, id string) error  { return s.lifecycle(id) }

// stubRepo is an in-memory record repository.
type stubRepo struct {
	records map[string]*domain.ContainerRecord
	getErr  error
}

func (r *stubRepo) CreatePair(_ context.Context, app, db *domain.ContainerRecord) error {
	r.records[app.ContainerID] = app
	r.records[db.ContainerID] = db
	return nil
}

func (r *stubRepo) GetByContainerID(_ context.Context, id string) (*domain.ContainerRecord, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	rec, ok := r.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return rec, nil
}

func (r *stubRepo) ListByUser(_ context.Context, userID int64) ([]domain.ContainerRecord, error) {
	var out []domain.ContainerRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *stubRepo) ListAll(context.Context) ([]domain.ContainerRecord, error) { return nil, nil }

func (r *stubRepo) UpdateStatus(_ context.Context, id string, status domain.Status) error {
	rec, ok := r.records[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	rec.Status = status
	return nil
}

func (r *stubRepo) Delete(_ context.Context, id string) error {
	delete(r.records, id)
	return nil
}

func newTestApp(t *testing.T) (*fiber.App, *stubRuntime, *stubRepo) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{PortScanStart: 25000, PortScanAttempts: 50}
	runtime := &stubRuntime{statuses: map[string]string{}}
	repo := &stubRepo{records: map[string]*domain.ContainerRecord{}}
	m := metrics.New(prometheus.NewRegistry())

	lifecycle := services.NewLifecycleManager(runtime, repo, logger, m)
	telemetry := services.NewTelemetryReader(runtime, logger)
	handler := NewHandler(nil, lifecycle, telemetry, repo, cfg)

	app := fiber.New()
	app.Get("/healthz", handler.Health)
	v1 := app.Group("/api/v1")
	v1.Get("/tenants/:id/containers", handler.ListTenantContainers)
	v1.Post("/containers/:id/actions", handler.ApplyAction)
	v1.Get("/containers/:id/status", handler.GetStatus)
	v1.Get("/containers/:id/stats", handler.GetStats)
	v1.Get("/containers/:id/logs", handler.GetLogs)
	v1.Get("/ports/free", handler.FreePort)
	return app, runtime, repo
}

func TestGetStatus(t *testing.T) {
	app, runtime, _ := newTestApp(t)
	runtime.statuses["cyber_42_cyber"] = "running"

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/containers/cyber_42_cyber/status", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "running", body["status"])

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/containers/ghost/status", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetStats(t *testing.T) {
	app, runtime, _ := newTestApp(t)
	runtime.statuses["cyber_42_cyber"] = "running"

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/containers/cyber_42_cyber/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]float64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.InDelta(t, 20.0, body["cpu_percent"], 0.001)
	assert.InDelta(t, 25.0, body["memory_percent"], 0.001)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/containers/ghost/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestApplyAction(t *testing.T) {
	app, runtime, repo := newTestApp(t)
	runtime.statuses["cyber_42_cyber"] = "running"
	repo.records["cyber_42_cyber"] = &domain.ContainerRecord{
		UserID: 42, ContainerID: "cyber_42_cyber", Status: domain.StatusRunning,
	}

	req := httptest.NewRequest("POST", "/api/v1/containers/cyber_42_cyber/actions", strings.NewReader(`{"action":"stop"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StatusStopped, repo.records["cyber_42_cyber"].Status)

	req = httptest.NewRequest("POST", "/api/v1/containers/cyber_42_cyber/actions", strings.NewReader(`{"action":"pause"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest("POST", "/api/v1/containers/ghost/actions", strings.NewReader(`{"action":"stop"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetLogs(t *testing.T) {
	app, runtime, _ := newTestApp(t)
	runtime.statuses["cyber_42_cyber"] = "running"

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/containers/cyber_42_cyber/logs?tail=2", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"ready"}, body["lines"])

	// Failure collapses to an empty list, not an error status.
	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/containers/ghost/logs", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestListTenantContainers(t *testing.T) {
	app, _, repo := newTestApp(t)
	repo.records["cyber_42_cyber"] = &domain.ContainerRecord{UserID: 42, ContainerID: "cyber_42_cyber"}

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/tenants/42/containers", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/tenants/abc/containers", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestFreePort(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/ports/free", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.GreaterOrEqual(t, body["port"], 25000)
}
