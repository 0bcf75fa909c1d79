package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
	"feature-store-service/internal/metrics"
)

// FrameworkLogReg is the framework tag written on trained versions
const FrameworkLogReg = "logreg"

// TrainingService builds a point-in-time dataset, fits a logistic
// regression classifier, stores the artifact and registers the result
// as a new model version. Experiment tracking is best effort: a down
// tracker is logged and skipped, never failing the run.
type TrainingService struct {
	registry    *RegistryService
	historical  *HistoricalService
	modelRepo   output.ModelRepository
	versionRepo output.VersionRepository
	artifacts   output.ArtifactStore
	tracking    output.TrackingClient
	metrics     *metrics.Metrics
}

func NewTrainingService(
	registry *RegistryService,
	historical *HistoricalService,
	modelRepo output.ModelRepository,
	versionRepo output.VersionRepository,
	artifacts output.ArtifactStore,
	tracking output.TrackingClient,
	m *metrics.Metrics,
) *TrainingService {
	return &TrainingService{
		registry:    registry,
		historical:  historical,
		modelRepo:   modelRepo,
		versionRepo: versionRepo,
		artifacts:   artifacts,
		tracking:    tracking,
		metrics:     m,
	}
}

// TrainRequest describes one training run. LabelColumn names a
// passthrough column of the entity rows, so labels are observed at the
// same timestamps as the features and cannot leak from the future.
type TrainRequest struct {
	Project         string
	ModelName       string
	FeatureRefs     []string
	ServiceName     string
	LabelColumn     string
	EntityRows      []domain.EntityRow
	EntityQuery     string
	TimestampColumn string
	RunName         string

	Epochs       int
	LearningRate float64
	L2           float64
	TestFraction float64
	Seed         int64
	Threshold    float64
}

// TrainResult reports what a training run produced
type TrainResult struct {
	Model       *domain.RegisteredModel `json:"model"`
	Version     *domain.ModelVersion    `json:"version"`
	Artifact    *domain.TrainedModel    `json:"-"`
	DatasetRows int                     `json:"dataset_rows"`
	TrainRows   int                     `json:"train_rows"`
	TestRows    int                     `json:"test_rows"`
	RunID       string                  `json:"run_id,omitempty"`
}

// Train runs the full training flow
func (s *TrainingService) Train(ctx context.Context, req TrainRequest) (*TrainResult, error) {
	start := time.Now()
	result, err := s.train(ctx, req)
	if err != nil {
		s.metrics.RecordTrainingRun("error", time.Since(start))
		return nil, err
	}
	s.metrics.RecordTrainingRun("success", time.Since(start))
	return result, nil
}

func (s *TrainingService) train(ctx context.Context, req TrainRequest) (*TrainResult, error) {
	if req.ModelName == "" {
		return nil, domain.ErrInvalidModelName
	}
	if req.LabelColumn == "" {
		return nil, domain.ErrLabelNotFound
	}

	// 1. Resolve features and check they can feed a numeric model
	featureCols, refs, err := s.resolveNumericFeatures(ctx, req)
	if err != nil {
		return nil, err
	}

	// 2. Build the point-in-time dataset
	dataset, err := s.historical.GetHistoricalFeatures(ctx, HistoricalRequest{
		Project:         req.Project,
		FeatureRefs:     req.FeatureRefs,
		ServiceName:     req.ServiceName,
		EntityRows:      req.EntityRows,
		EntityQuery:     req.EntityQuery,
		TimestampColumn: req.TimestampColumn,
	})
	if err != nil {
		return nil, fmt.Errorf("build dataset: %w", err)
	}

	// 3. Extract the numeric matrix and validate the labels
	X, y, err := dataset.NumericMatrix(featureCols, req.LabelColumn)
	if err != nil {
		return nil, err
	}
	if err := checkBinaryLabels(y); err != nil {
		return nil, err
	}

	// 4. Fit on the training split, standardized by its own statistics
	cfg := trainerConfig{
		Epochs:       req.Epochs,
		LearningRate: req.LearningRate,
		L2:           req.L2,
		TestFraction: req.TestFraction,
		Seed:         req.Seed,
		Threshold:    req.Threshold,
	}.withDefaults()

	trainX, trainY, testX, testY := splitTrainTest(X, y, cfg.TestFraction, cfg.Seed)
	if len(trainX) == 0 {
		return nil, domain.ErrEmptyTrainingSet
	}
	means, stddevs := columnStats(trainX)
	weights, intercept := trainLogistic(standardized(trainX, means, stddevs), trainY, cfg)

	evalX, evalY := testX, testY
	if len(evalX) == 0 {
		evalX, evalY = trainX, trainY
	}
	evalMetrics := evaluateBinary(weights, intercept, standardized(evalX, means, stddevs), evalY, cfg.Threshold)

	// 5. Ensure the registered model exists
	model, err := s.ensureModel(ctx, req.Project, req.ModelName)
	if err != nil {
		return nil, err
	}
	number, err := s.versionRepo.NextNumber(ctx, model.ID)
	if err != nil {
		return nil, fmt.Errorf("allocate version: %w", err)
	}

	// 6. Store the artifact
	artifact := &domain.TrainedModel{
		ModelName:    req.ModelName,
		Framework:    FrameworkLogReg,
		FeatureNames: featureCols,
		Coefficients: weights,
		Intercept:    intercept,
		Means:        means,
		Stddevs:      stddevs,
		LabelColumn:  req.LabelColumn,
		Threshold:    cfg.Threshold,
		Metrics:      evalMetrics,
		TrainedAt:    time.Now().UTC(),
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	uri, err := s.artifacts.Save(ctx, fmt.Sprintf("%s/%s/v%d/model.json", req.Project, req.ModelName, number), data)
	if err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}

	// Keep a CSV copy of the training dataset next to the model so a
	// run can be reproduced from its artifacts alone.
	var csvBuf bytes.Buffer
	if err := dataset.WriteCSV(&csvBuf); err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	if _, err := s.artifacts.Save(ctx, fmt.Sprintf("%s/%s/v%d/dataset.csv", req.Project, req.ModelName, number), csvBuf.Bytes()); err != nil {
		return nil, fmt.Errorf("save dataset: %w", err)
	}

	// 7. Log the run to the experiment tracker, best effort
	params := map[string]string{
		"framework":     FrameworkLogReg,
		"epochs":        strconv.Itoa(cfg.Epochs),
		"learning_rate": strconv.FormatFloat(cfg.LearningRate, 'g', -1, 64),
		"l2":            strconv.FormatFloat(cfg.L2, 'g', -1, 64),
		"test_fraction": strconv.FormatFloat(cfg.TestFraction, 'g', -1, 64),
		"seed":          strconv.FormatInt(cfg.Seed, 10),
		"threshold":     strconv.FormatFloat(cfg.Threshold, 'g', -1, 64),
		"label_column":  req.LabelColumn,
		"features":      strconv.Itoa(len(featureCols)),
	}
	runName := req.RunName
	if runName == "" {
		runName = fmt.Sprintf("%s-v%d", req.ModelName, number)
	}
	runID := s.logRun(ctx, req.Project, req.ModelName, runName, uri, params, evalMetrics)

	// 8. Register the version
	version := domain.NewModelVersion(model.ID, number, FrameworkLogReg)
	version.RunID = runID
	version.Metrics = evalMetrics
	version.Params = params
	version.FeatureRefs = refs
	version.LabelColumn = req.LabelColumn
	version.MarkReady(uri)
	if err := s.versionRepo.Create(ctx, version); err != nil {
		return nil, fmt.Errorf("create version: %w", err)
	}

	log.WithFields(log.Fields{
		"model":    req.ModelName,
		"version":  number,
		"rows":     len(dataset.Rows),
		"accuracy": evalMetrics["accuracy"],
	}).Info("training run complete")

	return &TrainResult{
		Model:       model,
		Version:     version,
		Artifact:    artifact,
		DatasetRows: len(dataset.Rows),
		TrainRows:   len(trainX),
		TestRows:    len(testX),
		RunID:       runID,
	}, nil
}

// resolveNumericFeatures resolves the request's features and returns
// the qualified dataset columns plus canonical "view:feature" refs
func (s *TrainingService) resolveNumericFeatures(ctx context.Context, req TrainRequest) ([]string, []string, error) {
	var resolved []*ResolvedView
	var err error
	if req.ServiceName != "" {
		resolved, err = s.registry.ResolveService(ctx, req.Project, req.ServiceName)
	} else {
		resolved, err = s.registry.ResolveRefs(ctx, req.Project, req.FeatureRefs)
	}
	if err != nil {
		return nil, nil, err
	}

	var featureCols, refs []string
	for _, rv := range resolved {
		for _, name := range rv.Features {
			f, err := rv.View.Feature(name)
			if err != nil {
				return nil, nil, err
			}
			if !f.ValueType.IsNumeric() {
				return nil, nil, fmt.Errorf("%w: %s:%s is %s", domain.ErrNonNumericFeature, rv.View.Name, name, f.ValueType)
			}
			ref := domain.FeatureRef{View: rv.View.Name, Feature: name}
			featureCols = append(featureCols, ref.ColumnName())
			refs = append(refs, ref.String())
		}
	}
	return featureCols, refs, nil
}

func (s *TrainingService) ensureModel(ctx context.Context, project, name string) (*domain.RegisteredModel, error) {
	model, err := s.modelRepo.GetByName(ctx, project, name)
	if err == nil {
		return model, nil
	}

	model, err = domain.NewRegisteredModel(project, name, "")
	if err != nil {
		return nil, err
	}
	if err := s.modelRepo.Create(ctx, model); err != nil {
		return nil, fmt.Errorf("create model: %w", err)
	}
	return model, nil
}

// logRun records the run on the tracking server. Failures are logged
// and swallowed; the returned run ID is empty when tracking is off.
func (s *TrainingService) logRun(ctx context.Context, project, modelName, runName, artifactURI string, params map[string]string, evalMetrics map[string]float64) string {
	if s.tracking == nil || !s.tracking.IsAvailable() {
		return ""
	}

	experimentID, err := s.tracking.EnsureExperiment(ctx, project)
	if err != nil {
		log.WithError(err).Warn("tracking: ensure experiment failed")
		return ""
	}
	run, err := s.tracking.StartRun(ctx, experimentID, runName)
	if err != nil {
		log.WithError(err).Warn("tracking: start run failed")
		return ""
	}

	if err := s.tracking.LogParams(ctx, run.RunID, params); err != nil {
		log.WithError(err).Warn("tracking: log params failed")
	}
	if err := s.tracking.LogMetrics(ctx, run.RunID, evalMetrics); err != nil {
		log.WithError(err).Warn("tracking: log metrics failed")
	}
	if err := s.tracking.EndRun(ctx, run.RunID, output.RunStatusFinished); err != nil {
		log.WithError(err).Warn("tracking: end run failed")
	}

	if err := s.tracking.RegisterModel(ctx, modelName); err != nil {
		log.WithError(err).Warn("tracking: register model failed")
	} else if _, err := s.tracking.CreateModelVersion(ctx, modelName, artifactURI, run.RunID); err != nil {
		log.WithError(err).Warn("tracking: create model version failed")
	}

	return run.RunID
}

func checkBinaryLabels(y []float64) error {
	seenZero, seenOne := false, false
	for _, v := range y {
		switch v {
		case 0:
			seenZero = true
		case 1:
			seenOne = true
		default:
			return domain.ErrLabelNotBinary
		}
	}
	if !seenZero || !seenOne {
		return domain.ErrSingleClassDataset
	}
	return nil
}
