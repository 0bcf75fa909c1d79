package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
	"feature-store-service/internal/testutil"
)

type pipelineMocks struct {
	viewRepo     *testutil.MockFeatureViewRepo
	offline      *testutil.MockOfflineStore
	store        *testutil.MockOnlineStore
	modelRepo    *testutil.MockModelRepo
	versionRepo  *testutil.MockVersionRepo
	endpointRepo *testutil.MockEndpointRepo
	artifacts    *testutil.MockArtifactStore
	tracking     *testutil.MockTrackingClient
	serving      *testutil.MockServingClient
	predictor    *testutil.MockInferencePredictor
}

func pipelineFixture(t *testing.T) (*PipelineService, *pipelineMocks, *domain.FeatureView) {
	t.Helper()
	entityRepo := new(testutil.MockEntityRepo)
	sourceRepo := new(testutil.MockDataSourceRepo)
	m := &pipelineMocks{
		viewRepo:     new(testutil.MockFeatureViewRepo),
		offline:      new(testutil.MockOfflineStore),
		store:        new(testutil.MockOnlineStore),
		modelRepo:    new(testutil.MockModelRepo),
		versionRepo:  new(testutil.MockVersionRepo),
		endpointRepo: new(testutil.MockEndpointRepo),
		artifacts:    new(testutil.MockArtifactStore),
		tracking:     new(testutil.MockTrackingClient),
		serving:      new(testutil.MockServingClient),
		predictor:    new(testutil.MockInferencePredictor),
	}
	serviceRepo := new(testutil.MockFeatureServiceRepo)
	registry := NewRegistryService(entityRepo, sourceRepo, m.viewRepo, serviceRepo)

	entity := testEntity(t, "driver", "driver_id")
	source := testSource(t, "driver_source", "warehouse.driver_stats")
	view, err := domain.NewFeatureView("default", "driver_stats", []string{"driver"},
		[]domain.Feature{
			{Name: "trips", ValueType: domain.ValueTypeInt64},
			{Name: "rating", ValueType: domain.ValueTypeFloat64},
		}, "driver_source", 24*time.Hour, true)
	assert.NoError(t, err)

	entityRepo.On("GetByName", mock.Anything, "default", "driver").Return(entity, nil)
	sourceRepo.On("GetByName", mock.Anything, "default", "driver_source").Return(source, nil)
	m.viewRepo.On("GetByName", mock.Anything, "default", "driver_stats").Return(view, nil)

	historical := NewHistoricalService(registry, m.offline, nil)
	online := NewOnlineService(registry, m.store, nil)
	training := NewTrainingService(registry, historical, m.modelRepo, m.versionRepo, m.artifacts, m.tracking, nil)
	materialize := NewMaterializeService(registry, m.viewRepo, m.offline, m.store, nil)
	deployment := NewDeploymentService(m.endpointRepo, m.modelRepo, m.versionRepo, m.serving)
	prediction := NewPredictionService(online, m.endpointRepo, m.modelRepo, m.versionRepo, m.artifacts, m.predictor)

	return NewPipelineService(registry, training, materialize, deployment, prediction), m, view
}

func TestPipelineService_Run(t *testing.T) {
	svc, m, view := pipelineFixture(t)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	entityRows, featureRows := trainingData(asOf)

	model, err := domain.NewRegisteredModel("default", "churn", "")
	assert.NoError(t, err)
	version := trainedVersion(t, model, 1)
	endpoint, err := domain.NewInferenceEndpoint("default", "churn-v1", "churn", 1, "serving", "")
	assert.NoError(t, err)
	endpoint.MarkReady("http://churn-v1.serving.example.com")

	// registry check
	m.viewRepo.On("List", mock.Anything, mock.AnythingOfType("ports.RegistryFilter")).
		Return([]*domain.FeatureView{view}, 1, nil)

	// training
	m.offline.On("PullRows", mock.Anything, mock.Anything).Return(featureRows, nil)
	m.modelRepo.On("GetByName", mock.Anything, "default", "churn").Return(model, nil)
	m.versionRepo.On("NextNumber", mock.Anything, model.ID).Return(1, nil)
	m.artifacts.On("Save", mock.Anything, "default/churn/v1/model.json", mock.Anything).
		Return("file:///artifacts/default/churn/v1/model.json", nil)
	m.artifacts.On("Save", mock.Anything, "default/churn/v1/dataset.csv", mock.Anything).
		Return("file:///artifacts/default/churn/v1/dataset.csv", nil)
	m.tracking.On("IsAvailable").Return(false)
	m.versionRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ModelVersion")).Return(nil)

	// materialization
	m.viewRepo.On("ListOnline", mock.Anything, "default").Return([]*domain.FeatureView{view}, nil)
	m.store.On("Write", mock.Anything, "default", "driver_stats", mock.Anything).Return(8, nil)
	m.viewRepo.On("Update", mock.Anything, view).Return(nil)

	// deployment and readiness
	m.versionRepo.On("GetByNumber", mock.Anything, model.ID, 1).Return(version, nil)
	m.endpointRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.InferenceEndpoint")).Return(nil)
	m.serving.On("IsAvailable").Return(true)
	m.serving.On("Deploy", mock.Anything, mock.Anything, version).
		Return(&output.ServingDeployment{ExternalID: "uid-1", URL: "http://churn-v1.serving.example.com"}, nil)
	m.endpointRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.InferenceEndpoint")).Return(nil)
	m.endpointRepo.On("GetByName", mock.Anything, "default", "churn-v1").Return(endpoint, nil)
	m.serving.On("GetStatus", mock.Anything, "serving", "churn-v1").
		Return(&output.ServingStatus{Ready: true, URL: "http://churn-v1.serving.example.com"}, nil)

	// smoke test
	m.store.On("Read", mock.Anything, "default", "driver_stats", mock.Anything, mock.Anything).
		Return(onlineStoreRows(map[string]interface{}{"trips": float64(25), "rating": 4.8}), nil)
	m.predictor.On("Predict", mock.Anything, "http://churn-v1.serving.example.com", "churn-v1", mock.Anything).
		Return([]float64{0.87}, nil)

	var seen []string
	result, err := svc.Run(context.Background(), PipelineRequest{
		Project:      "default",
		ModelName:    "churn",
		FeatureRefs:  []string{"driver_stats:trips", "driver_stats:rating"},
		LabelColumn:  "label",
		EntityRows:   entityRows,
		Namespace:    "serving",
		WaitTimeout:  time.Second,
		PollInterval: 10 * time.Millisecond,
		TestRows:     []map[string]interface{}{{"driver_id": int64(1)}},
	}, func(step PipelineStep) { seen = append(seen, step.Name) })

	assert.NoError(t, err)
	assert.Equal(t, []string{"registry-check", "train", "materialize", "deploy", "wait-ready", "smoke-test"}, seen)
	for _, step := range result.Steps {
		assert.Equal(t, StepStatusOK, step.Status)
	}
	assert.Equal(t, 1, result.Train.Version.Version)
	assert.Len(t, result.Materialized, 1)
	assert.True(t, result.Endpoint.IsReady())
	assert.Len(t, result.Predictions.Predictions, 1)
	assert.Equal(t, 1, result.Predictions.Predictions[0].Label)
}

func TestPipelineService_Run_SkipDeploy(t *testing.T) {
	svc, m, view := pipelineFixture(t)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	entityRows, featureRows := trainingData(asOf)

	model, err := domain.NewRegisteredModel("default", "churn", "")
	assert.NoError(t, err)

	m.viewRepo.On("List", mock.Anything, mock.AnythingOfType("ports.RegistryFilter")).
		Return([]*domain.FeatureView{view}, 1, nil)
	m.offline.On("PullRows", mock.Anything, mock.Anything).Return(featureRows, nil)
	m.modelRepo.On("GetByName", mock.Anything, "default", "churn").Return(model, nil)
	m.versionRepo.On("NextNumber", mock.Anything, model.ID).Return(1, nil)
	m.artifacts.On("Save", mock.Anything, mock.Anything, mock.Anything).Return("file:///a/model.json", nil)
	m.tracking.On("IsAvailable").Return(false)
	m.versionRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ModelVersion")).Return(nil)
	m.viewRepo.On("ListOnline", mock.Anything, "default").Return([]*domain.FeatureView{view}, nil)
	m.store.On("Write", mock.Anything, "default", "driver_stats", mock.Anything).Return(8, nil)
	m.viewRepo.On("Update", mock.Anything, view).Return(nil)

	result, err := svc.Run(context.Background(), PipelineRequest{
		Project:     "default",
		ModelName:   "churn",
		FeatureRefs: []string{"driver_stats:trips", "driver_stats:rating"},
		LabelColumn: "label",
		EntityRows:  entityRows,
		SkipDeploy:  true,
	}, nil)

	assert.NoError(t, err)
	assert.Len(t, result.Steps, 6)
	assert.Equal(t, StepStatusSkipped, result.Steps[3].Status)
	assert.Equal(t, StepStatusSkipped, result.Steps[4].Status)
	assert.Equal(t, StepStatusSkipped, result.Steps[5].Status)
	assert.Nil(t, result.Endpoint)
}

func TestPipelineService_Run_LocalSmokeTest(t *testing.T) {
	svc, m, view := pipelineFixture(t)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	entityRows, featureRows := trainingData(asOf)

	model, err := domain.NewRegisteredModel("default", "churn", "")
	assert.NoError(t, err)
	version := trainedVersion(t, model, 1)

	artifact := &domain.TrainedModel{
		ModelName:    "churn",
		Framework:    FrameworkLogReg,
		FeatureNames: []string{"driver_stats__trips", "driver_stats__rating"},
		Coefficients: []float64{1, 0},
		Intercept:    0,
		Means:        []float64{0, 0},
		Stddevs:      []float64{1, 1},
		Threshold:    0.5,
	}
	data, err := json.Marshal(artifact)
	assert.NoError(t, err)

	m.viewRepo.On("List", mock.Anything, mock.AnythingOfType("ports.RegistryFilter")).
		Return([]*domain.FeatureView{view}, 1, nil)
	m.offline.On("PullRows", mock.Anything, mock.Anything).Return(featureRows, nil)
	m.modelRepo.On("GetByName", mock.Anything, "default", "churn").Return(model, nil)
	m.versionRepo.On("NextNumber", mock.Anything, model.ID).Return(1, nil)
	m.artifacts.On("Save", mock.Anything, mock.Anything, mock.Anything).Return("file:///a/model.json", nil)
	m.tracking.On("IsAvailable").Return(false)
	m.versionRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ModelVersion")).Return(nil)
	m.viewRepo.On("ListOnline", mock.Anything, "default").Return([]*domain.FeatureView{view}, nil)
	m.store.On("Write", mock.Anything, "default", "driver_stats", mock.Anything).Return(8, nil)
	m.viewRepo.On("Update", mock.Anything, view).Return(nil)

	// smoke test loads the version back and scores in process
	m.versionRepo.On("GetByNumber", mock.Anything, model.ID, 1).Return(version, nil)
	m.artifacts.On("Load", mock.Anything, version.ArtifactURI).Return(data, nil)
	m.store.On("Read", mock.Anything, "default", "driver_stats", mock.Anything, mock.Anything).
		Return(onlineStoreRows(map[string]interface{}{"trips": float64(2), "rating": 4.0}), nil)

	result, err := svc.Run(context.Background(), PipelineRequest{
		Project:     "default",
		ModelName:   "churn",
		FeatureRefs: []string{"driver_stats:trips", "driver_stats:rating"},
		LabelColumn: "label",
		EntityRows:  entityRows,
		SkipDeploy:  true,
		TestRows:    []map[string]interface{}{{"driver_id": int64(1)}},
	}, nil)

	assert.NoError(t, err)
	assert.Len(t, result.Steps, 6)
	assert.Equal(t, StepStatusSkipped, result.Steps[3].Status)
	assert.Equal(t, StepStatusSkipped, result.Steps[4].Status)
	assert.Equal(t, StepStatusOK, result.Steps[5].Status)
	assert.Nil(t, result.Endpoint)
	assert.Len(t, result.Predictions.Predictions, 1)
	assert.Equal(t, 1, result.Predictions.Predictions[0].Label)
	m.serving.AssertNotCalled(t, "Deploy", mock.Anything, mock.Anything, mock.Anything)
	m.predictor.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPipelineService_Run_NoViews(t *testing.T) {
	svc, m, _ := pipelineFixture(t)

	m.viewRepo.On("List", mock.Anything, mock.AnythingOfType("ports.RegistryFilter")).
		Return([]*domain.FeatureView{}, 0, nil)

	result, err := svc.Run(context.Background(), PipelineRequest{Project: "default"}, nil)
	assert.ErrorIs(t, err, domain.ErrFeatureViewNotFound)
	assert.Len(t, result.Steps, 1)
	assert.Equal(t, StepStatusFailed, result.Steps[0].Status)
}

func TestPipelineService_Run_TrainFailureStops(t *testing.T) {
	svc, m, view := pipelineFixture(t)

	m.viewRepo.On("List", mock.Anything, mock.AnythingOfType("ports.RegistryFilter")).
		Return([]*domain.FeatureView{view}, 1, nil)
	m.offline.On("PullRows", mock.Anything, mock.Anything).Return(nil, errors.New("warehouse unreachable"))

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	entityRows, _ := trainingData(asOf)

	result, err := svc.Run(context.Background(), PipelineRequest{
		Project:     "default",
		ModelName:   "churn",
		FeatureRefs: []string{"driver_stats:trips", "driver_stats:rating"},
		LabelColumn: "label",
		EntityRows:  entityRows,
	}, nil)

	assert.Error(t, err)
	assert.Len(t, result.Steps, 2)
	assert.Equal(t, StepStatusOK, result.Steps[0].Status)
	assert.Equal(t, StepStatusFailed, result.Steps[1].Status)
	assert.Contains(t, result.Steps[1].Detail, "warehouse unreachable")
	// nothing was materialized or deployed
	m.store.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.serving.AssertNotCalled(t, "Deploy", mock.Anything, mock.Anything, mock.Anything)
}
