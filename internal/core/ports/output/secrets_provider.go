package ports

import "context"

// SecretsProvider resolves named secrets such as database passwords
// and warehouse connection strings
type SecretsProvider interface {
	// GetSecret returns the secret value for a name
	GetSecret(ctx context.Context, name string) (string, error)

	// IsAvailable checks if the provider is configured
	IsAvailable() bool
}
