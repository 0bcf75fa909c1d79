package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"feature-store-service/internal/core/domain"
	"feature-store-service/internal/core/ports/output"
)

// MockEntityRepo is a mock of EntityRepository.
type MockEntityRepo struct {
	mock.Mock
}

func (m *MockEntityRepo) Create(ctx context.Context, entity *domain.Entity) error {
	args := m.Called(ctx, entity)
	return args.Error(0)
}

func (m *MockEntityRepo) GetByName(ctx context.Context, project, name string) (*domain.Entity, error) {
	args := m.Called(ctx, project, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entity), args.Error(1)
}

func (m *MockEntityRepo) Update(ctx context.Context, entity *domain.Entity) error {
	args := m.Called(ctx, entity)
	return args.Error(0)
}

func (m *MockEntityRepo) Delete(ctx context.Context, project, name string) error {
	args := m.Called(ctx, project, name)
	return args.Error(0)
}

func (m *MockEntityRepo) List(ctx context.Context, filter ports.RegistryFilter) ([]*domain.Entity, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Entity), args.Int(1), args.Error(2)
}

// MockDataSourceRepo is a mock of DataSourceRepository.
type MockDataSourceRepo struct {
	mock.Mock
}

func (m *MockDataSourceRepo) Create(ctx context.Context, source *domain.DataSource) error {
	args := m.Called(ctx, source)
	return args.Error(0)
}

func (m *MockDataSourceRepo) GetByName(ctx context.Context, project, name string) (*domain.DataSource, error) {
	args := m.Called(ctx, project, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DataSource), args.Error(1)
}

func (m *MockDataSourceRepo) Update(ctx context.Context, source *domain.DataSource) error {
	args := m.Called(ctx, source)
	return args.Error(0)
}

func (m *MockDataSourceRepo) Delete(ctx context.Context, project, name string) error {
	args := m.Called(ctx, project, name)
	return args.Error(0)
}

func (m *MockDataSourceRepo) List(ctx context.Context, filter ports.RegistryFilter) ([]*domain.DataSource, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.DataSource), args.Int(1), args.Error(2)
}

// MockFeatureViewRepo is a mock of FeatureViewRepository.
type MockFeatureViewRepo struct {
	mock.Mock
}

func (m *MockFeatureViewRepo) Create(ctx context.Context, view *domain.FeatureView) error {
	args := m.Called(ctx, view)
	return args.Error(0)
}

func (m *MockFeatureViewRepo) GetByName(ctx context.Context, project, name string) (*domain.FeatureView, error) {
	args := m.Called(ctx, project, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeatureView), args.Error(1)
}

func (m *MockFeatureViewRepo) Update(ctx context.Context, view *domain.FeatureView) error {
	args := m.Called(ctx, view)
	return args.Error(0)
}

func (m *MockFeatureViewRepo) Delete(ctx context.Context, project, name string) error {
	args := m.Called(ctx, project, name)
	return args.Error(0)
}

func (m *MockFeatureViewRepo) List(ctx context.Context, filter ports.RegistryFilter) ([]*domain.FeatureView, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.FeatureView), args.Int(1), args.Error(2)
}

func (m *MockFeatureViewRepo) ListOnline(ctx context.Context, project string) ([]*domain.FeatureView, error) {
	args := m.Called(ctx, project)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.FeatureView), args.Error(1)
}

// MockFeatureServiceRepo is a mock of FeatureServiceRepository.
type MockFeatureServiceRepo struct {
	mock.Mock
}

func (m *MockFeatureServiceRepo) Create(ctx context.Context, service *domain.FeatureService) error {
	args := m.Called(ctx, service)
	return args.Error(0)
}

func (m *MockFeatureServiceRepo) GetByName(ctx context.Context, project, name string) (*domain.FeatureService, error) {
	args := m.Called(ctx, project, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeatureService), args.Error(1)
}

func (m *MockFeatureServiceRepo) Update(ctx context.Context, service *domain.FeatureService) error {
	args := m.Called(ctx, service)
	return args.Error(0)
}

func (m *MockFeatureServiceRepo) Delete(ctx context.Context, project, name string) error {
	args := m.Called(ctx, project, name)
	return args.Error(0)
}

func (m *MockFeatureServiceRepo) List(ctx context.Context, filter ports.RegistryFilter) ([]*domain.FeatureService, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.FeatureService), args.Int(1), args.Error(2)
}

// MockModelRepo is a mock of ModelRepository.
type MockModelRepo struct {
	mock.Mock
}

func (m *MockModelRepo) Create(ctx context.Context, model *domain.RegisteredModel) error {
	args := m.Called(ctx, model)
	return args.Error(0)
}

func (m *MockModelRepo) GetByName(ctx context.Context, project, name string) (*domain.RegisteredModel, error) {
	args := m.Called(ctx, project, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RegisteredModel), args.Error(1)
}

func (m *MockModelRepo) Update(ctx context.Context, model *domain.RegisteredModel) error {
	args := m.Called(ctx, model)
	return args.Error(0)
}

func (m *MockModelRepo) Delete(ctx context.Context, project, name string) error {
	args := m.Called(ctx, project, name)
	return args.Error(0)
}

func (m *MockModelRepo) List(ctx context.Context, filter ports.ModelFilter) ([]*domain.RegisteredModel, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.RegisteredModel), args.Int(1), args.Error(2)
}

// MockVersionRepo is a mock of VersionRepository.
type MockVersionRepo struct {
	mock.Mock
}

func (m *MockVersionRepo) Create(ctx context.Context, version *domain.ModelVersion) error {
	args := m.Called(ctx, version)
	return args.Error(0)
}

func (m *MockVersionRepo) GetByNumber(ctx context.Context, modelID uuid.UUID, number int) (*domain.ModelVersion, error) {
	args := m.Called(ctx, modelID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelVersion), args.Error(1)
}

func (m *MockVersionRepo) LatestReady(ctx context.Context, modelID uuid.UUID) (*domain.ModelVersion, error) {
	args := m.Called(ctx, modelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelVersion), args.Error(1)
}

func (m *MockVersionRepo) NextNumber(ctx context.Context, modelID uuid.UUID) (int, error) {
	args := m.Called(ctx, modelID)
	return args.Int(0), args.Error(1)
}

func (m *MockVersionRepo) Update(ctx context.Context, version *domain.ModelVersion) error {
	args := m.Called(ctx, version)
	return args.Error(0)
}

func (m *MockVersionRepo) ListByModel(ctx context.Context, modelID uuid.UUID) ([]*domain.ModelVersion, error) {
	args := m.Called(ctx, modelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ModelVersion), args.Error(1)
}

// MockEndpointRepo is a mock of EndpointRepository.
type MockEndpointRepo struct {
	mock.Mock
}

func (m *MockEndpointRepo) Create(ctx context.Context, endpoint *domain.InferenceEndpoint) error {
	args := m.Called(ctx, endpoint)
	return args.Error(0)
}

func (m *MockEndpointRepo) GetByName(ctx context.Context, project, name string) (*domain.InferenceEndpoint, error) {
	args := m.Called(ctx, project, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InferenceEndpoint), args.Error(1)
}

func (m *MockEndpointRepo) Update(ctx context.Context, endpoint *domain.InferenceEndpoint) error {
	args := m.Called(ctx, endpoint)
	return args.Error(0)
}

func (m *MockEndpointRepo) Delete(ctx context.Context, project, name string) error {
	args := m.Called(ctx, project, name)
	return args.Error(0)
}

func (m *MockEndpointRepo) List(ctx context.Context, project string) ([]*domain.InferenceEndpoint, error) {
	args := m.Called(ctx, project)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InferenceEndpoint), args.Error(1)
}
