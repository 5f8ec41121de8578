package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/cyberpaas/tenantdock/internal/core/domain"
	"github.com/cyberpaas/tenantdock/internal/core/ports"
)

// Reconciler periodically folds the runtime-observed container state back
// into persistence. It only repairs running/stopped drift: record deletion
// stays exclusive to the lifecycle remove path.
type Reconciler struct {
	runtime ports.ContainerRuntime
	repo    ports.RecordRepository
	logger  *slog.Logger
}

// NewReconciler wires the reconciler with its injected dependencies.
func NewReconciler(runtime ports.ContainerRuntime, repo ports.RecordRepository, logger *slog.Logger) *Reconciler {
	return &Reconciler{runtime: runtime, repo: repo, logger: logger}
}

// Schedule registers the periodic reconciliation job and starts the
// scheduler. The returned scheduler owns the job; shut it down on exit.
func (r *Reconciler) Schedule(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := r.RunOnce(context.Background()); err != nil {
				r.logger.Error("reconciliation pass failed", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}

// RunOnce performs a single reconciliation pass over every record.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	records, err := r.repo.ListAll(ctx)
	if err != nil {
		return err
	}

	for _, rec := range records {
		state, err := r.runtime.ContainerStatus(ctx, rec.ContainerID)
		if errors.Is(err, domain.ErrNotFound) {
			// Left for the remove action to clean up.
			r.logger.Warn("record has no runtime container", "container", rec.ContainerID, "status", rec.Status)
			continue
		}
		if err != nil {
			r.logger.Error("status query failed during reconciliation", "container", rec.ContainerID, "error", err)
			continue
		}

		observed := observedStatus(state)
		if observed == rec.Status {
			continue
		}
		if err := r.repo.UpdateStatus(ctx, rec.ContainerID, observed); err != nil {
			r.logger.Error("status update failed during reconciliation", "container", rec.ContainerID, "error", err)
			continue
		}
		r.logger.Info("record status reconciled", "container", rec.ContainerID, "from", rec.Status, "to", observed)
	}
	return nil
}

func observedStatus(state string) domain.Status {
	if state == "running" || state == "restarting" {
		return domain.StatusRunning
	}
	return domain.StatusStopped
}
