package services

import (
	"context"
	"fmt"
	"time"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
)

// DeploymentService rolls model versions out as KServe inference
// services and tracks their lifecycle.
type DeploymentService struct {
	endpointRepo output.EndpointRepository
	modelRepo    output.ModelRepository
	versionRepo  output.VersionRepository
	serving      output.ServingClient
}

func NewDeploymentService(
	endpointRepo output.EndpointRepository,
	modelRepo output.ModelRepository,
	versionRepo output.VersionRepository,
	serving output.ServingClient,
) *DeploymentService {
	return &DeploymentService{
		endpointRepo: endpointRepo,
		modelRepo:    modelRepo,
		versionRepo:  versionRepo,
		serving:      serving,
	}
}

type DeployRequest struct {
	Project      string
	Name         string
	ModelName    string
	Version      int // 0 = latest ready
	Namespace    string
	RuntimeImage string
	Labels       map[string]string
}

type DeployResult struct {
	Endpoint *domain.InferenceEndpoint
	Status   string // PENDING, READY, FAILED
	Message  string
}

func (s *DeploymentService) Deploy(ctx context.Context, req DeployRequest) (*DeployResult, error) {
	// 1. Get model
	model, err := s.modelRepo.GetByName(ctx, req.Project, req.ModelName)
	if err != nil {
		return nil, fmt.Errorf("get model: %w", err)
	}

	// 2. Get version (specified or latest ready)
	version, err := s.resolveVersion(ctx, model, req.Version)
	if err != nil {
		return nil, err
	}

	// 3. Validate version is ready
	if !version.IsReady() {
		return nil, domain.ErrVersionNotReady
	}

	// 4. Generate name if not provided
	name := req.Name
	if name == "" {
		name = fmt.Sprintf("%s-v%d", model.Name, version.Version)
	}

	// 5. Create endpoint entity
	endpoint, err := domain.NewInferenceEndpoint(req.Project, name, model.Name, version.Version, req.Namespace, req.RuntimeImage)
	if err != nil {
		return nil, err
	}
	if req.Labels != nil {
		endpoint.Labels = req.Labels
	}

	// 6. Save to database
	if err := s.endpointRepo.Create(ctx, endpoint); err != nil {
		return nil, fmt.Errorf("create endpoint: %w", err)
	}

	// 7. Deploy to the cluster (if available)
	if s.serving != nil && s.serving.IsAvailable() {
		deployment, err := s.serving.Deploy(ctx, endpoint, version)
		if err != nil {
			endpoint.MarkFailed(err.Error())
			s.endpointRepo.Update(ctx, endpoint)
			return &DeployResult{
				Endpoint: endpoint,
				Status:   string(domain.EndpointStateFailed),
				Message:  err.Error(),
			}, nil
		}

		endpoint.SetExternalID(deployment.ExternalID)
		if deployment.URL != "" {
			endpoint.MarkReady(deployment.URL)
		}
		s.endpointRepo.Update(ctx, endpoint)
	}

	return &DeployResult{
		Endpoint: endpoint,
		Status:   string(endpoint.State),
		Message:  "deployment initiated",
	}, nil
}

func (s *DeploymentService) Get(ctx context.Context, project, name string) (*domain.InferenceEndpoint, error) {
	return s.endpointRepo.GetByName(ctx, project, name)
}

func (s *DeploymentService) List(ctx context.Context, project string) ([]*domain.InferenceEndpoint, error) {
	return s.endpointRepo.List(ctx, project)
}

// SyncStatus refreshes an endpoint's state from the cluster
func (s *DeploymentService) SyncStatus(ctx context.Context, project, name string) (*domain.InferenceEndpoint, error) {
	endpoint, err := s.endpointRepo.GetByName(ctx, project, name)
	if err != nil {
		return nil, err
	}

	if s.serving == nil || !s.serving.IsAvailable() {
		return endpoint, nil
	}

	status, err := s.serving.GetStatus(ctx, endpoint.Namespace, endpoint.Name)
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	switch {
	case status.Ready:
		endpoint.MarkReady(status.URL)
	case status.Error != "":
		endpoint.MarkFailed(status.Error)
	default:
		endpoint.MarkPending()
	}

	if err := s.endpointRepo.Update(ctx, endpoint); err != nil {
		return nil, err
	}
	return endpoint, nil
}

// WaitReady polls the cluster until the endpoint is ready, fails, or
// the timeout elapses
func (s *DeploymentService) WaitReady(ctx context.Context, project, name string, timeout, interval time.Duration) (*domain.InferenceEndpoint, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		endpoint, err := s.SyncStatus(ctx, project, name)
		if err != nil {
			return nil, err
		}
		if endpoint.IsReady() {
			return endpoint, nil
		}
		if endpoint.State == domain.EndpointStateFailed {
			return endpoint, fmt.Errorf("%w: %s", domain.ErrEndpointNotReady, endpoint.LastError)
		}
		if time.Now().After(deadline) {
			return endpoint, fmt.Errorf("%w: timed out after %s", domain.ErrEndpointNotReady, timeout)
		}

		select {
		case <-ctx.Done():
			return endpoint, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Delete undeploys the endpoint from the cluster and removes it
func (s *DeploymentService) Delete(ctx context.Context, project, name string) error {
	endpoint, err := s.endpointRepo.GetByName(ctx, project, name)
	if err != nil {
		return err
	}

	if s.serving != nil && s.serving.IsAvailable() {
		// Ignore error - might already be deleted
		_ = s.serving.Undeploy(ctx, endpoint.Namespace, endpoint.Name)
	}

	return s.endpointRepo.Delete(ctx, project, name)
}

// IsServingAvailable checks if the serving integration is enabled
func (s *DeploymentService) IsServingAvailable() bool {
	return s.serving != nil && s.serving.IsAvailable()
}

func (s *DeploymentService) resolveVersion(ctx context.Context, model *domain.RegisteredModel, number int) (*domain.ModelVersion, error) {
	if number > 0 {
		return s.versionRepo.GetByNumber(ctx, model.ID, number)
	}
	version, err := s.versionRepo.LatestReady(ctx, model.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoReadyVersion, model.Name)
	}
	return version, nil
}
