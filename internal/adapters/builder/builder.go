package builder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/go-git/go-git/v5"

	"github.com/cyberpaas/tenantdock/internal/core/domain"
)

// Adapter implements ports.ImageBuilder on the Docker SDK. Build contexts
// come either from a local directory or from a shallow git clone.
type Adapter struct {
	cli    *client.Client
	logger *slog.Logger
}

// NewAdapter wraps an injected Docker client.
func NewAdapter(cli *client.Client, logger *slog.Logger) *Adapter {
	return &Adapter{cli: cli, logger: logger}
}

// BuildImage builds an image from a local build context directory and returns
// the applied tag.
func (a *Adapter) BuildImage(ctx context.Context, contextDir, dockerfile, tag string) (string, error) {
	return a.build(ctx, contextDir, dockerfile, tag)
}

// BuildFromRepo shallow-clones a git repository into a temporary directory
// and builds an image from its working tree.
func (a *Adapter) BuildFromRepo(ctx context.Context, repoURL, dockerfile, tag string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "tenantdock-build-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	a.logger.Info("cloning build context", "repo", repoURL)
	_, err = git.PlainCloneContext(ctx, tmpDir, false, &git.CloneOptions{
		URL:   repoURL,
		Depth: 1, // Shallow clone for speed
	})
	if err != nil {
		return "", fmt.Errorf("failed to clone repo: %w", err)
	}

	return a.build(ctx, tmpDir, dockerfile, tag)
}

func (a *Adapter) build(ctx context.Context, contextDir, dockerfile, tag string) (string, error) {
	tar, err := archive.TarWithOptions(contextDir, &archive.TarOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to create build context: %w", err)
	}

	a.logger.Info("building image", "tag", tag, "context", contextDir)
	resp, err := a.cli.ImageBuild(ctx, tar, types.ImageBuildOptions{
		Tags:       []string{tag},
		Dockerfile: dockerfile,
		Remove:     true, // Remove intermediate containers
	})
	if err != nil {
		return "", &domain.RuntimeError{Op: "image build", Err: err}
	}
	defer resp.Body.Close()

	// The build only completes once the response stream is drained.
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return "", &domain.RuntimeError{Op: "image build", Err: err}
	}

	return tag, nil
}
