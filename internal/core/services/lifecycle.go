package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cyberpaas/tenantdock/internal/adapters/metrics"
	"github.com/cyberpaas/tenantdock/internal/core/domain"
	"github.com/cyberpaas/tenantdock/internal/core/ports"
)

// LifecycleManager applies lifecycle actions to persisted containers and
// keeps the persisted status in step with the runtime.
type LifecycleManager struct {
	runtime ports.ContainerRuntime
	repo    ports.RecordRepository
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewLifecycleManager wires the manager with its injected dependencies.
func NewLifecycleManager(runtime ports.ContainerRuntime, repo ports.RecordRepository, logger *slog.Logger, m *metrics.Metrics) *LifecycleManager {
	return &LifecycleManager{runtime: runtime, repo: repo, logger: logger, metrics: m}
}

// Apply looks up the persisted record, issues the runtime action, and updates
// persistence. A record-less container id fails with domain.ErrRecordNotFound
// before any runtime call. A runtime-side not-found fails the action — except
// for remove, where the container is treated as already gone and the record
// is deleted anyway (reconciliation). Any other runtime error leaves
// persistence untouched.
func (m *LifecycleManager) Apply(ctx context.Context, containerID string, action domain.Action) error {
	err := m.apply(ctx, containerID, action)
	status := "success"
	if err != nil {
		status = "error"
		m.logger.Error("lifecycle action failed", "container", containerID, "action", action, "error", err)
	} else {
		m.logger.Info("lifecycle action applied", "container", containerID, "action", action)
	}
	m.metrics.LifecycleActionsTotal.WithLabelValues(string(action), status).Inc()
	return err
}

func (m *LifecycleManager) apply(ctx context.Context, containerID string, action domain.Action) error {
	if _, err := m.repo.GetByContainerID(ctx, containerID); err != nil {
		return err
	}

	switch action {
	case domain.ActionStart:
		if err := m.runtime.StartContainer(ctx, containerID); err != nil {
			return err
		}
		return m.repo.UpdateStatus(ctx, containerID, domain.StatusRunning)

	case domain.ActionStop:
		if err := m.runtime.StopContainer(ctx, containerID); err != nil {
			return err
		}
		return m.repo.UpdateStatus(ctx, containerID, domain.StatusStopped)

	case domain.ActionRestart:
		if err := m.runtime.RestartContainer(ctx, containerID); err != nil {
			return err
		}
		return m.repo.UpdateStatus(ctx, containerID, domain.StatusRunning)

	case domain.ActionRemove:
		err := m.runtime.RemoveContainer(ctx, containerID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if errors.Is(err, domain.ErrNotFound) {
			// The runtime already lost the container; converge persistence.
			m.logger.Warn("container absent from runtime, reconciling record", "container", containerID)
		}
		return m.repo.Delete(ctx, containerID)

	default:
		return &domain.ValidationError{Field: "action", Value: string(action)}
	}
}
