package localfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	output "feature-store-service/internal/core/ports/output"
)

const uriScheme = "file://"

type artifactStore struct {
	root string
}

// NewArtifactStore creates an ArtifactStore backed by a local directory.
// Artifacts are addressed by file:// URIs rooted at the configured path
func NewArtifactStore(root string) (output.ArtifactStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &artifactStore{root: abs}, nil
}

func (s *artifactStore) Save(ctx context.Context, path string, data []byte) (string, error) {
	full := filepath.Join(s.root, filepath.Clean("/"+path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", path, err)
	}
	return uriScheme + full, nil
}

func (s *artifactStore) Load(ctx context.Context, uri string) ([]byte, error) {
	full := strings.TrimPrefix(uri, uriScheme)
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", uri, err)
	}
	return data, nil
}
