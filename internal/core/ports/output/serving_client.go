package ports

import (
	"context"

	"feature-store-service/internal/core/domain"
)

// ServingDeployment represents the result of a serving deployment
type ServingDeployment struct {
	ExternalID string // K8s resource UID
	URL        string // Inference endpoint URL (if ready)
}

// ServingStatus represents the status of a deployed InferenceService
type ServingStatus struct {
	URL   string
	Ready bool
	Error string
}

// ServingClient defines the contract for KServe/K8s operations
type ServingClient interface {
	// Deploy creates a KServe InferenceService CR in Kubernetes
	Deploy(ctx context.Context, endpoint *domain.InferenceEndpoint, version *domain.ModelVersion) (*ServingDeployment, error)

	// Undeploy deletes the KServe InferenceService CR from Kubernetes
	Undeploy(ctx context.Context, namespace, name string) error

	// GetStatus retrieves current deployment status from Kubernetes
	GetStatus(ctx context.Context, namespace, name string) (*ServingStatus, error)

	// IsAvailable checks if serving integration is enabled and configured
	IsAvailable() bool
}

// InferencePredictor calls a deployed endpoint's prediction API
// (KServe v1 data plane)
type InferencePredictor interface {
	Predict(ctx context.Context, url, modelName string, instances [][]float64) ([]float64, error)
}
