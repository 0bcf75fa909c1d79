package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"feature-store-service/internal/config"
	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
)

const keyVaultAPIVersion = "7.4"

type keyVaultProvider struct {
	baseURL string
	token   string
	client  *http.Client
	enabled bool
}

// NewKeyVaultProvider creates a SecretsProvider speaking the Key Vault
// REST API (GET {vault}/secrets/{name} with a bearer token)
func NewKeyVaultProvider(cfg *config.VaultConfig) output.SecretsProvider {
	if cfg.URL == "" {
		return &keyVaultProvider{enabled: false}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &keyVaultProvider{
		baseURL: cfg.URL,
		token:   cfg.Token,
		enabled: true,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// keyVaultSecret is the response body of a secret read
type keyVaultSecret struct {
	Value string `json:"value"`
}

func (p *keyVaultProvider) GetSecret(ctx context.Context, name string) (string, error) {
	if !p.enabled {
		return "", domain.ErrSecretNotFound
	}

	reqURL := fmt.Sprintf("%s/secrets/%s?api-version=%s", p.baseURL, url.PathEscape(name), keyVaultAPIVersion)
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("build secret request: %w", err)
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", domain.ErrSecretNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get secret %s: vault returned %d", name, resp.StatusCode)
	}

	var secret keyVaultSecret
	if err := json.NewDecoder(resp.Body).Decode(&secret); err != nil {
		return "", fmt.Errorf("decode secret response: %w", err)
	}
	return secret.Value, nil
}

func (p *keyVaultProvider) IsAvailable() bool {
	return p.enabled
}
