package ports

import "context"

// ArtifactStore persists trained model artifacts and returns URIs
// that model versions reference
type ArtifactStore interface {
	// Save writes an artifact under a relative path and returns its URI
	Save(ctx context.Context, path string, data []byte) (string, error)

	// Load reads an artifact back by the URI Save returned
	Load(ctx context.Context, uri string) ([]byte, error)
}
