package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/cyberpaas/tenantdock/internal/core/domain"
)

// NewClient creates the single Docker API client shared by every adapter.
func NewClient() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return cli, nil
}

// Adapter implements ports.ContainerRuntime using the Docker SDK. It maps
// Docker's not-found responses to domain.ErrNotFound and everything else to
// *domain.RuntimeError.
type Adapter struct {
	cli         *client.Client
	logger      *slog.Logger
	stopTimeout time.Duration
}

// NewAdapter wraps an injected Docker client.
func NewAdapter(cli *client.Client, logger *slog.Logger, stopTimeout time.Duration) *Adapter {
	return &Adapter{cli: cli, logger: logger, stopTimeout: stopTimeout}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errdefs.IsNotFound(err) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return &domain.RuntimeError{Op: op, Err: err}
}

// EnsureNetwork creates the named network if it does not already exist.
func (a *Adapter) EnsureNetwork(ctx context.Context, name, driver string) error {
	_, err := a.cli.NetworkInspect(ctx, name, types.NetworkInspectOptions{})
	if err == nil {
		return nil
	}
	if !errdefs.IsNotFound(err) {
		return &domain.RuntimeError{Op: "network inspect", Err: err}
	}

	if _, err := a.cli.NetworkCreate(ctx, name, types.NetworkCreate{Driver: driver}); err != nil {
		return &domain.RuntimeError{Op: "network create", Err: err}
	}
	a.logger.Info("network created", "network", name, "driver", driver)
	return nil
}

// EnsureVolume creates the named volume if it does not already exist.
func (a *Adapter) EnsureVolume(ctx context.Context, name string) error {
	list, err := a.cli.VolumeList(ctx, volume.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return &domain.RuntimeError{Op: "volume list", Err: err}
	}
	for _, v := range list.Volumes {
		if v.Name == name {
			return nil
		}
	}

	if _, err := a.cli.VolumeCreate(ctx, volume.CreateOptions{Name: name}); err != nil {
		return &domain.RuntimeError{Op: "volume create", Err: err}
	}
	a.logger.Info("volume created", "volume", name)
	return nil
}

// RemoveContainerIfExists force-removes any container with exactly the given
// name, in any state. Absence is not an error.
func (a *Adapter) RemoveContainerIfExists(ctx context.Context, name string) error {
	containers, err := a.cli.ContainerList(ctx, types.ContainerListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return &domain.RuntimeError{Op: "container list", Err: err}
	}

	for _, c := range containers {
		// The name filter is a substring match; keep only exact hits.
		if !hasName(c.Names, name) {
			continue
		}
		err := a.cli.ContainerRemove(ctx, c.ID, types.ContainerRemoveOptions{Force: true})
		if err != nil && !errdefs.IsNotFound(err) {
			return &domain.RuntimeError{Op: "container remove", Err: err}
		}
		a.logger.Info("stale container removed", "container", name)
	}
	return nil
}

func hasName(names []string, want string) bool {
	for _, n := range names {
		if strings.TrimPrefix(n, "/") == want {
			return true
		}
	}
	return false
}

// RunContainer creates and starts a container from the spec and returns its
// runtime-assigned name.
func (a *Adapter) RunContainer(ctx context.Context, spec domain.ContainerSpec) (string, error) {
	if spec.Pull {
		if err := a.pullImage(ctx, spec.Image); err != nil {
			return "", err
		}
	}

	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range spec.Ports {
		port := nat.Port(fmt.Sprintf("%d/tcp", p.ContainerPort))
		exposed[port] = struct{}{}
		hostPort := ""
		if p.HostPort > 0 {
			hostPort = strconv.Itoa(p.HostPort)
		}
		bindings[port] = []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: hostPort}}
	}

	var binds []string
	for vol, path := range spec.Binds {
		binds = append(binds, vol+":"+path)
	}

	cfg := &container.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		ExposedPorts: exposed,
	}
	hostCfg := &container.HostConfig{
		PortBindings:  bindings,
		Binds:         binds,
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyMode(spec.RestartPolicy)},
	}
	var netCfg *network.NetworkingConfig
	if spec.Network != "" {
		netCfg = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				spec.Network: {},
			},
		}
	}

	resp, err := a.cli.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, spec.Name)
	if err != nil {
		return "", wrap("container create", err)
	}

	if err := a.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return "", wrap("container start", err)
	}

	a.logger.Info("container started", "container", spec.Name, "image", spec.Image, "network", spec.Network)
	return spec.Name, nil
}

func (a *Adapter) pullImage(ctx context.Context, image string) error {
	reader, err := a.cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return wrap("image pull", err)
	}
	defer reader.Close()
	// Drain the progress stream so the pull completes.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return &domain.RuntimeError{Op: "image pull", Err: err}
	}
	return nil
}

// ImageExists reports whether the tagged image is present locally.
func (a *Adapter) ImageExists(ctx context.Context, tag string) (bool, error) {
	_, _, err := a.cli.ImageInspectWithRaw(ctx, tag)
	if err == nil {
		return true, nil
	}
	if errdefs.IsNotFound(err) {
		return false, nil
	}
	return false, &domain.RuntimeError{Op: "image inspect", Err: err}
}

// ContainerStatus returns the runtime-reported state string of a container.
func (a *Adapter) ContainerStatus(ctx context.Context, id string) (string, error) {
	info, err := a.cli.ContainerInspect(ctx, id)
	if err != nil {
		return "", wrap("container inspect", err)
	}
	return info.State.Status, nil
}

// ContainerStats fetches a single non-streaming stats snapshot.
func (a *Adapter) ContainerStats(ctx context.Context, id string) (*domain.RawStats, error) {
	resp, err := a.cli.ContainerStats(ctx, id, false)
	if err != nil {
		return nil, wrap("container stats", err)
	}
	defer resp.Body.Close()

	var raw domain.RawStats
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &domain.RuntimeError{Op: "container stats decode", Err: err}
	}
	return &raw, nil
}

// ContainerLogs returns the last tail lines of combined stdout/stderr output.
func (a *Adapter) ContainerLogs(ctx context.Context, id string, tail int) ([]string, error) {
	rc, err := a.cli.ContainerLogs(ctx, id, types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		return nil, wrap("container logs", err)
	}
	defer rc.Close()

	// Logs of non-TTY containers are multiplexed; demux into one buffer.
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, rc); err != nil {
		return nil, &domain.RuntimeError{Op: "container logs read", Err: err}
	}

	out := strings.TrimRight(buf.String(), "\n")
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// StartContainer starts a stopped container.
func (a *Adapter) StartContainer(ctx context.Context, id string) error {
	return wrap("container start", a.cli.ContainerStart(ctx, id, types.ContainerStartOptions{}))
}

// StopContainer stops a running container within the configured timeout.
func (a *Adapter) StopContainer(ctx context.Context, id string) error {
	seconds := int(a.stopTimeout.Seconds())
	return wrap("container stop", a.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &seconds}))
}

// RestartContainer restarts a container within the configured timeout.
func (a *Adapter) RestartContainer(ctx context.Context, id string) error {
	seconds := int(a.stopTimeout.Seconds())
	return wrap("container restart", a.cli.ContainerRestart(ctx, id, container.StopOptions{Timeout: &seconds}))
}

// RemoveContainer force-removes a container in any state.
func (a *Adapter) RemoveContainer(ctx context.Context, id string) error {
	return wrap("container remove", a.cli.ContainerRemove(ctx, id, types.ContainerRemoveOptions{Force: true}))
}
