package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
)

type envProvider struct{}

// NewEnvProvider creates a SecretsProvider backed by process
// environment variables
func NewEnvProvider() output.SecretsProvider {
	return &envProvider{}
}

// GetSecret looks the name up as-is first, then in the conventional
// env form (uppercase, dashes to underscores) so vault-style names
// like "warehouse-password" resolve to WAREHOUSE_PASSWORD.
func (p *envProvider) GetSecret(_ context.Context, name string) (string, error) {
	if value, ok := os.LookupEnv(name); ok {
		return value, nil
	}
	envName := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if value, ok := os.LookupEnv(envName); ok {
		return value, nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrSecretNotFound, name)
}

func (p *envProvider) IsAvailable() bool {
	return true
}
