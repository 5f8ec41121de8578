package ports

import (
	"context"

	"github.com/cyberpaas/tenantdock/internal/core/domain"
)

// ContainerRuntime is the only surface the core speaks to the container
// runtime through. Implementations map runtime-side "not found" conditions
// to domain.ErrNotFound and every other API failure to *domain.RuntimeError,
// so callers can branch on absence vs failure.
type ContainerRuntime interface {
	// EnsureNetwork creates the named network if it does not exist.
	EnsureNetwork(ctx context.Context, name, driver string) error
	// EnsureVolume creates the named volume if it does not exist.
	EnsureVolume(ctx context.Context, name string) error
	// RemoveContainerIfExists force-removes any container with the given
	// name. A container that does not exist is not an error.
	RemoveContainerIfExists(ctx context.Context, name string) error
	// RunContainer creates and starts a container and returns its
	// runtime-assigned name.
	RunContainer(ctx context.Context, spec domain.ContainerSpec) (string, error)
	// ImageExists reports whether the tagged image is present locally.
	ImageExists(ctx context.Context, tag string) (bool, error)

	ContainerStatus(ctx context.Context, id string) (string, error)
	ContainerStats(ctx context.Context, id string) (*domain.RawStats, error)
	ContainerLogs(ctx context.Context, id string, tail int) ([]string, error)

	StartContainer(ctx context.Context, id string) error
	StopContainer(ctx context.Context, id string) error
	RestartContainer(ctx context.Context, id string) error
	RemoveContainer(ctx context.Context, id string) error
}
