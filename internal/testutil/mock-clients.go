package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"feature-store-service/internal/core/domain"
	"feature-store-service/internal/core/ports/output"
)

// MockTrackingClient is a mock of TrackingClient.
type MockTrackingClient struct {
	mock.Mock
}

func (m *MockTrackingClient) EnsureExperiment(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockTrackingClient) StartRun(ctx context.Context, experimentID, runName string) (*ports.TrackingRun, error) {
	args := m.Called(ctx, experimentID, runName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.TrackingRun), args.Error(1)
}

func (m *MockTrackingClient) LogParams(ctx context.Context, runID string, params map[string]string) error {
	args := m.Called(ctx, runID, params)
	return args.Error(0)
}

func (m *MockTrackingClient) LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error {
	args := m.Called(ctx, runID, metrics)
	return args.Error(0)
}

func (m *MockTrackingClient) EndRun(ctx context.Context, runID, status string) error {
	args := m.Called(ctx, runID, status)
	return args.Error(0)
}

func (m *MockTrackingClient) RegisterModel(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockTrackingClient) CreateModelVersion(ctx context.Context, name, source, runID string) (string, error) {
	args := m.Called(ctx, name, source, runID)
	return args.String(0), args.Error(1)
}

func (m *MockTrackingClient) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockServingClient is a mock of ServingClient.
type MockServingClient struct {
	mock.Mock
}

func (m *MockServingClient) Deploy(ctx context.Context, endpoint *domain.InferenceEndpoint, version *domain.ModelVersion) (*ports.ServingDeployment, error) {
	args := m.Called(ctx, endpoint, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ServingDeployment), args.Error(1)
}

func (m *MockServingClient) Undeploy(ctx context.Context, namespace, name string) error {
	args := m.Called(ctx, namespace, name)
	return args.Error(0)
}

func (m *MockServingClient) GetStatus(ctx context.Context, namespace, name string) (*ports.ServingStatus, error) {
	args := m.Called(ctx, namespace, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ServingStatus), args.Error(1)
}

func (m *MockServingClient) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockInferencePredictor is a mock of InferencePredictor.
type MockInferencePredictor struct {
	mock.Mock
}

func (m *MockInferencePredictor) Predict(ctx context.Context, url, modelName string, instances [][]float64) ([]float64, error) {
	args := m.Called(ctx, url, modelName, instances)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

// MockSecretsProvider is a mock of SecretsProvider.
type MockSecretsProvider struct {
	mock.Mock
}

func (m *MockSecretsProvider) GetSecret(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockSecretsProvider) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}
