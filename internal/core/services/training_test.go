package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
	"feature-store-service/internal/testutil"
)

type trainingMocks struct {
	offline     *testutil.MockOfflineStore
	modelRepo   *testutil.MockModelRepo
	versionRepo *testutil.MockVersionRepo
	artifacts   *testutil.MockArtifactStore
	tracking    *testutil.MockTrackingClient
}

func trainingFixture(t *testing.T) (*TrainingService, *trainingMocks) {
	t.Helper()
	entityRepo := new(testutil.MockEntityRepo)
	sourceRepo := new(testutil.MockDataSourceRepo)
	viewRepo := new(testutil.MockFeatureViewRepo)
	serviceRepo := new(testutil.MockFeatureServiceRepo)
	registry := NewRegistryService(entityRepo, sourceRepo, viewRepo, serviceRepo)

	entity := testEntity(t, "driver", "driver_id")
	source := testSource(t, "driver_source", "warehouse.driver_stats")
	view, err := domain.NewFeatureView("default", "driver_stats", []string{"driver"},
		[]domain.Feature{
			{Name: "trips", ValueType: domain.ValueTypeInt64},
			{Name: "rating", ValueType: domain.ValueTypeFloat64},
			{Name: "city", ValueType: domain.ValueTypeString},
		}, "driver_source", 24*time.Hour, true)
	assert.NoError(t, err)

	entityRepo.On("GetByName", mock.Anything, "default", "driver").Return(entity, nil)
	sourceRepo.On("GetByName", mock.Anything, "default", "driver_source").Return(source, nil)
	viewRepo.On("GetByName", mock.Anything, "default", "driver_stats").Return(view, nil)

	m := &trainingMocks{
		offline:     new(testutil.MockOfflineStore),
		modelRepo:   new(testutil.MockModelRepo),
		versionRepo: new(testutil.MockVersionRepo),
		artifacts:   new(testutil.MockArtifactStore),
		tracking:    new(testutil.MockTrackingClient),
	}
	historical := NewHistoricalService(registry, m.offline, nil)
	svc := NewTrainingService(registry, historical, m.modelRepo, m.versionRepo, m.artifacts, m.tracking, nil)
	return svc, m
}

// trainingData builds eight drivers with clearly separated activity so
// a classifier can fit: busy drivers labeled 1, idle drivers labeled 0.
func trainingData(asOf time.Time) ([]domain.EntityRow, []domain.FeatureRow) {
	drivers := []struct {
		id     int64
		trips  int64
		rating float64
		label  int64
	}{
		{1, 28, 4.9, 1}, {2, 25, 4.7, 1}, {3, 31, 4.8, 1}, {4, 22, 4.6, 1},
		{5, 2, 2.1, 0}, {6, 4, 2.8, 0}, {7, 1, 1.9, 0}, {8, 3, 2.4, 0},
	}

	var entityRows []domain.EntityRow
	var featureRows []domain.FeatureRow
	for _, d := range drivers {
		entityRows = append(entityRows, domain.EntityRow{
			JoinKeyValues:  map[string]interface{}{"driver_id": d.id, "label": d.label},
			EventTimestamp: asOf,
		})
		featureRows = append(featureRows, domain.FeatureRow{
			JoinKeyValues:  map[string]interface{}{"driver_id": d.id},
			EventTimestamp: asOf.Add(-1 * time.Hour),
			Values:         map[string]interface{}{"trips": d.trips, "rating": d.rating},
		})
	}
	return entityRows, featureRows
}

func TestTrainingService_Train(t *testing.T) {
	svc, m := trainingFixture(t)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	entityRows, featureRows := trainingData(asOf)

	m.offline.On("PullRows", mock.Anything, mock.Anything).Return(featureRows, nil)
	m.modelRepo.On("GetByName", mock.Anything, "default", "churn").Return(nil, domain.ErrModelNotFound)
	m.modelRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.RegisteredModel")).Return(nil)
	m.versionRepo.On("NextNumber", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(1, nil)
	m.artifacts.On("Save", mock.Anything, "default/churn/v1/model.json", mock.Anything).
		Return("file:///artifacts/default/churn/v1/model.json", nil)
	m.artifacts.On("Save", mock.Anything, "default/churn/v1/dataset.csv", mock.Anything).
		Return("file:///artifacts/default/churn/v1/dataset.csv", nil)
	m.tracking.On("IsAvailable").Return(false)
	m.versionRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ModelVersion")).Return(nil)

	result, err := svc.Train(context.Background(), TrainRequest{
		Project:     "default",
		ModelName:   "churn",
		FeatureRefs: []string{"driver_stats:trips", "driver_stats:rating"},
		LabelColumn: "label",
		EntityRows:  entityRows,
	})
	assert.NoError(t, err)
	assert.Equal(t, "churn", result.Model.Name)
	assert.Equal(t, 1, result.Version.Version)
	assert.Equal(t, domain.VersionStatusReady, result.Version.Status)
	assert.Equal(t, "file:///artifacts/default/churn/v1/model.json", result.Version.ArtifactURI)
	assert.Equal(t, []string{"driver_stats:trips", "driver_stats:rating"}, result.Version.FeatureRefs)
	assert.Equal(t, "label", result.Version.LabelColumn)
	assert.Contains(t, result.Version.Metrics, "accuracy")
	assert.Equal(t, "", result.RunID)

	assert.Equal(t, 8, result.DatasetRows)
	assert.Equal(t, 7, result.TrainRows)
	assert.Equal(t, 1, result.TestRows)

	artifact := result.Artifact
	assert.Equal(t, FrameworkLogReg, artifact.Framework)
	assert.Equal(t, []string{"driver_stats__trips", "driver_stats__rating"}, artifact.FeatureNames)
	assert.Len(t, artifact.Coefficients, 2)
	assert.Equal(t, 0.5, artifact.Threshold)

	m.versionRepo.AssertExpectations(t)
	m.artifacts.AssertExpectations(t)
}

func TestTrainingService_Train_WithTracking(t *testing.T) {
	svc, m := trainingFixture(t)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	entityRows, featureRows := trainingData(asOf)

	m.offline.On("PullRows", mock.Anything, mock.Anything).Return(featureRows, nil)
	m.modelRepo.On("GetByName", mock.Anything, "default", "churn").Return(nil, domain.ErrModelNotFound)
	m.modelRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.RegisteredModel")).Return(nil)
	m.versionRepo.On("NextNumber", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(3, nil)
	m.artifacts.On("Save", mock.Anything, "default/churn/v3/model.json", mock.Anything).
		Return("file:///artifacts/default/churn/v3/model.json", nil)
	m.artifacts.On("Save", mock.Anything, "default/churn/v3/dataset.csv", mock.Anything).
		Return("file:///artifacts/default/churn/v3/dataset.csv", nil)
	m.versionRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ModelVersion")).Return(nil)

	m.tracking.On("IsAvailable").Return(true)
	m.tracking.On("EnsureExperiment", mock.Anything, "default").Return("exp-1", nil)
	m.tracking.On("StartRun", mock.Anything, "exp-1", "churn-v3").Return(&output.TrackingRun{RunID: "run-123", ExperimentID: "exp-1"}, nil)
	m.tracking.On("LogParams", mock.Anything, "run-123", mock.Anything).Return(nil)
	m.tracking.On("LogMetrics", mock.Anything, "run-123", mock.Anything).Return(nil)
	m.tracking.On("EndRun", mock.Anything, "run-123", output.RunStatusFinished).Return(nil)
	m.tracking.On("RegisterModel", mock.Anything, "churn").Return(nil)
	m.tracking.On("CreateModelVersion", mock.Anything, "churn", "file:///artifacts/default/churn/v3/model.json", "run-123").
		Return("1", nil)

	result, err := svc.Train(context.Background(), TrainRequest{
		Project:     "default",
		ModelName:   "churn",
		FeatureRefs: []string{"driver_stats:trips", "driver_stats:rating"},
		LabelColumn: "label",
		EntityRows:  entityRows,
	})
	assert.NoError(t, err)
	assert.Equal(t, "run-123", result.RunID)
	assert.Equal(t, "run-123", result.Version.RunID)
	m.tracking.AssertExpectations(t)
}

func TestTrainingService_Train_TrackingDownIsNotFatal(t *testing.T) {
	svc, m := trainingFixture(t)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	entityRows, featureRows := trainingData(asOf)

	m.offline.On("PullRows", mock.Anything, mock.Anything).Return(featureRows, nil)
	m.modelRepo.On("GetByName", mock.Anything, "default", "churn").Return(nil, domain.ErrModelNotFound)
	m.modelRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.RegisteredModel")).Return(nil)
	m.versionRepo.On("NextNumber", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(1, nil)
	m.artifacts.On("Save", mock.Anything, mock.Anything, mock.Anything).Return("file:///a/model.json", nil)
	m.versionRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ModelVersion")).Return(nil)

	m.tracking.On("IsAvailable").Return(true)
	m.tracking.On("EnsureExperiment", mock.Anything, "default").Return("", errors.New("connection refused"))

	result, err := svc.Train(context.Background(), TrainRequest{
		Project:     "default",
		ModelName:   "churn",
		FeatureRefs: []string{"driver_stats:trips", "driver_stats:rating"},
		LabelColumn: "label",
		EntityRows:  entityRows,
	})
	assert.NoError(t, err)
	assert.Equal(t, "", result.RunID)
}

func TestTrainingService_Train_NonNumericFeature(t *testing.T) {
	svc, _ := trainingFixture(t)

	_, err := svc.Train(context.Background(), TrainRequest{
		Project:     "default",
		ModelName:   "churn",
		FeatureRefs: []string{"driver_stats:city"},
		LabelColumn: "label",
		EntityRows:  []domain.EntityRow{{JoinKeyValues: map[string]interface{}{"driver_id": int64(1)}, EventTimestamp: time.Now()}},
	})
	assert.ErrorIs(t, err, domain.ErrNonNumericFeature)
	assert.Contains(t, err.Error(), "driver_stats:city")
}

func TestTrainingService_Train_LabelNotBinary(t *testing.T) {
	svc, m := trainingFixture(t)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	entityRows, featureRows := trainingData(asOf)
	entityRows[0].JoinKeyValues["label"] = int64(2)

	m.offline.On("PullRows", mock.Anything, mock.Anything).Return(featureRows, nil)

	_, err := svc.Train(context.Background(), TrainRequest{
		Project:     "default",
		ModelName:   "churn",
		FeatureRefs: []string{"driver_stats:trips", "driver_stats:rating"},
		LabelColumn: "label",
		EntityRows:  entityRows,
	})
	assert.ErrorIs(t, err, domain.ErrLabelNotBinary)
}

func TestTrainingService_Train_SingleClass(t *testing.T) {
	svc, m := trainingFixture(t)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	entityRows, featureRows := trainingData(asOf)
	for i := range entityRows {
		entityRows[i].JoinKeyValues["label"] = int64(1)
	}

	m.offline.On("PullRows", mock.Anything, mock.Anything).Return(featureRows, nil)

	_, err := svc.Train(context.Background(), TrainRequest{
		Project:     "default",
		ModelName:   "churn",
		FeatureRefs: []string{"driver_stats:trips", "driver_stats:rating"},
		LabelColumn: "label",
		EntityRows:  entityRows,
	})
	assert.ErrorIs(t, err, domain.ErrSingleClassDataset)
}

func TestTrainingService_Train_MissingModelName(t *testing.T) {
	svc, _ := trainingFixture(t)

	_, err := svc.Train(context.Background(), TrainRequest{
		Project:     "default",
		LabelColumn: "label",
		FeatureRefs: []string{"driver_stats:trips"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidModelName)
}

func TestTrainingService_Train_MissingLabelColumn(t *testing.T) {
	svc, _ := trainingFixture(t)

	_, err := svc.Train(context.Background(), TrainRequest{
		Project:     "default",
		ModelName:   "churn",
		FeatureRefs: []string{"driver_stats:trips"},
	})
	assert.ErrorIs(t, err, domain.ErrLabelNotFound)
}

func TestTrainingService_Train_ExistingModel(t *testing.T) {
	svc, m := trainingFixture(t)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	entityRows, featureRows := trainingData(asOf)

	model, err := domain.NewRegisteredModel("default", "churn", "")
	assert.NoError(t, err)

	m.offline.On("PullRows", mock.Anything, mock.Anything).Return(featureRows, nil)
	m.modelRepo.On("GetByName", mock.Anything, "default", "churn").Return(model, nil)
	m.versionRepo.On("NextNumber", mock.Anything, model.ID).Return(2, nil)
	m.artifacts.On("Save", mock.Anything, "default/churn/v2/model.json", mock.Anything).Return("file:///a/v2/model.json", nil)
	m.artifacts.On("Save", mock.Anything, "default/churn/v2/dataset.csv", mock.Anything).Return("file:///a/v2/dataset.csv", nil)
	m.tracking.On("IsAvailable").Return(false)
	m.versionRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ModelVersion")).Return(nil)

	result, err := svc.Train(context.Background(), TrainRequest{
		Project:     "default",
		ModelName:   "churn",
		FeatureRefs: []string{"driver_stats:trips", "driver_stats:rating"},
		LabelColumn: "label",
		EntityRows:  entityRows,
	})
	assert.NoError(t, err)
	assert.Equal(t, model.ID, result.Version.ModelID)
	assert.Equal(t, 2, result.Version.Version)
	m.modelRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
