package services

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/cyberpaas/tenantdock/internal/core/domain"
	"github.com/cyberpaas/tenantdock/internal/core/ports"
)

// statsInterface is the container interface whose counters feed the
// network_rx/network_tx metrics.
const statsInterface = "eth0"

// TelemetryReader derives normalized status, stats and log views from the
// runtime for a single container.
type TelemetryReader struct {
	runtime ports.ContainerRuntime
	logger  *slog.Logger
}

// NewTelemetryReader wires the reader with its injected dependencies.
func NewTelemetryReader(runtime ports.ContainerRuntime, logger *slog.Logger) *TelemetryReader {
	return &TelemetryReader{runtime: runtime, logger: logger}
}

// Status returns a tagged result: the runtime-reported state string, a
// distinguished not-found outcome for unknown containers, or a generic error
// outcome for any other failure.
func (t *TelemetryReader) Status(ctx context.Context, id string) domain.StatusResult {
	status, err := t.runtime.ContainerStatus(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.StatusResult{Kind: domain.StatusKindNotFound}
	}
	if err != nil {
		t.logger.Error("status query failed", "container", id, "error", err)
		return domain.StatusResult{Kind: domain.StatusKindError}
	}
	return domain.StatusResult{Kind: domain.StatusKindOK, Status: status}
}

// Stats fetches one stats snapshot and derives CPU, memory and network
// metrics. It returns nil when the container is absent or the snapshot is
// unusable, never partial data.
func (t *TelemetryReader) Stats(ctx context.Context, id string) *domain.ContainerStats {
	raw, err := t.runtime.ContainerStats(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			t.logger.Error("stats query failed", "container", id, "error", err)
		}
		return nil
	}
	if raw == nil || !raw.Complete() {
		t.logger.Warn("stats snapshot missing required sections", "container", id)
		return nil
	}
	stats := computeStats(raw)
	return &stats
}

func computeStats(raw *domain.RawStats) domain.ContainerStats {
	cpuDelta := int64(raw.CPU.Usage.TotalUsage) - int64(raw.PreCPU.Usage.TotalUsage)
	systemDelta := int64(raw.CPU.SystemUsage) - int64(raw.PreCPU.SystemUsage)

	var cpuPercent float64
	if systemDelta > 0 {
		cpuPercent = float64(cpuDelta) / float64(systemDelta) * 100.0
	}

	limit := raw.Memory.Limit
	if limit == 0 {
		limit = 1 // divide-by-zero guard, not a realistic default
	}

	net := raw.Networks[statsInterface]

	return domain.ContainerStats{
		CPUPercent:    round2(cpuPercent),
		MemoryUsageMB: round2(float64(raw.Memory.Usage) / (1024 * 1024)),
		MemoryPercent: round2(float64(raw.Memory.Usage) / float64(limit) * 100.0),
		NetworkRx:     net.RxBytes,
		NetworkTx:     net.TxBytes,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Logs returns the last tail lines of combined output. Every failure,
// not-found included, collapses to an empty slice: this layer does not
// distinguish "no logs" from failure.
func (t *TelemetryReader) Logs(ctx context.Context, id string, tail int) []string {
	lines, err := t.runtime.ContainerLogs(ctx, id, tail)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			t.logger.Error("log fetch failed", "container", id, "error", err)
		}
		return []string{}
	}
	if lines == nil {
		return []string{}
	}
	return lines
}
