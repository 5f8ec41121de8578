package ports

import "context"

// ImageBuilder defines operations for building container images.
type ImageBuilder interface {
	// BuildImage builds an image from a local build context directory and
	// returns the applied tag.
	BuildImage(ctx context.Context, contextDir, dockerfile, tag string) (string, error)
	// BuildFromRepo shallow-clones a git repository and builds an image from
	// its working tree.
	BuildFromRepo(ctx context.Context, repoURL, dockerfile, tag string) (string, error)
}
