package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
	"feature-store-service/internal/testutil"
)

func newModelService(t *testing.T) (*ModelService, *testutil.MockModelRepo, *testutil.MockVersionRepo, *domain.RegisteredModel) {
	t.Helper()
	modelRepo := new(testutil.MockModelRepo)
	versionRepo := new(testutil.MockVersionRepo)
	model, err := domain.NewRegisteredModel("default", "churn", "")
	assert.NoError(t, err)
	return NewModelService(modelRepo, versionRepo), modelRepo, versionRepo, model
}

func TestModelListDefaultsLimit(t *testing.T) {
	svc, modelRepo, _, model := newModelService(t)

	modelRepo.On("List", mock.Anything, output.ModelFilter{Project: "default", Limit: 50}).
		Return([]*domain.RegisteredModel{model}, 1, nil)

	models, total, err := svc.List(context.Background(), output.ModelFilter{Project: "default"})

	assert.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, models, 1)
	modelRepo.AssertExpectations(t)
}

func TestModelListVersions(t *testing.T) {
	svc, modelRepo, versionRepo, model := newModelService(t)
	version := readyVersion(t, model, 1)

	modelRepo.On("GetByName", mock.Anything, "default", "churn").Return(model, nil)
	versionRepo.On("ListByModel", mock.Anything, model.ID).Return([]*domain.ModelVersion{version}, nil)

	versions, err := svc.ListVersions(context.Background(), "default", "churn")

	assert.NoError(t, err)
	assert.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Version)
}

func TestModelListVersionsUnknownModel(t *testing.T) {
	svc, modelRepo, _, _ := newModelService(t)

	modelRepo.On("GetByName", mock.Anything, "default", "ghost").Return(nil, domain.ErrModelNotFound)

	_, err := svc.ListVersions(context.Background(), "default", "ghost")

	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}

func TestModelGetVersionLatestReady(t *testing.T) {
	svc, modelRepo, versionRepo, model := newModelService(t)
	version := readyVersion(t, model, 3)

	modelRepo.On("GetByName", mock.Anything, "default", "churn").Return(model, nil)
	versionRepo.On("LatestReady", mock.Anything, model.ID).Return(version, nil)

	got, err := svc.GetVersion(context.Background(), "default", "churn", 0)

	assert.NoError(t, err)
	assert.Equal(t, 3, got.Version)
	versionRepo.AssertNotCalled(t, "GetByNumber", mock.Anything, mock.Anything, mock.Anything)
}

func TestModelGetVersionNoneReady(t *testing.T) {
	svc, modelRepo, versionRepo, model := newModelService(t)

	modelRepo.On("GetByName", mock.Anything, "default", "churn").Return(model, nil)
	versionRepo.On("LatestReady", mock.Anything, model.ID).Return(nil, domain.ErrVersionNotFound)

	_, err := svc.GetVersion(context.Background(), "default", "churn", 0)

	assert.ErrorIs(t, err, domain.ErrNoReadyVersion)
}
