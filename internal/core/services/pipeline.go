package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
)

// Step statuses
const (
	StepStatusOK      = "OK"
	StepStatusFailed  = "FAILED"
	StepStatusSkipped = "SKIPPED"
)

// PipelineService runs the train-to-serve flow end to end: verify the
// registry, build a dataset and train, materialize the online store,
// deploy the new version and smoke-test the endpoint.
type PipelineService struct {
	registry    *RegistryService
	training    *TrainingService
	materialize *MaterializeService
	deployment  *DeploymentService
	prediction  *PredictionService
}

func NewPipelineService(
	registry *RegistryService,
	training *TrainingService,
	materialize *MaterializeService,
	deployment *DeploymentService,
	prediction *PredictionService,
) *PipelineService {
	return &PipelineService{
		registry:    registry,
		training:    training,
		materialize: materialize,
		deployment:  deployment,
		prediction:  prediction,
	}
}

// PipelineRequest configures one end-to-end run. TestRows are entity
// rows for the final smoke test; without them that step is skipped.
type PipelineRequest struct {
	Project string

	// Training
	ModelName       string
	FeatureRefs     []string
	ServiceName     string
	LabelColumn     string
	EntityRows      []domain.EntityRow
	EntityQuery     string
	TimestampColumn string
	Epochs          int
	LearningRate    float64
	L2              float64
	TestFraction    float64
	Seed            int64
	Threshold       float64

	// Deployment
	EndpointName string
	Namespace    string
	RuntimeImage string
	SkipDeploy   bool
	WaitTimeout  time.Duration
	PollInterval time.Duration

	// Smoke test
	TestRows []map[string]interface{}
}

// PipelineStep records one stage of a run
type PipelineStep struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

// PipelineResult is the outcome of an end-to-end run
type PipelineResult struct {
	Steps        []PipelineStep            `json:"steps"`
	Train        *TrainResult              `json:"train,omitempty"`
	Materialized []MaterializeResult       `json:"materialized,omitempty"`
	Endpoint     *domain.InferenceEndpoint `json:"endpoint,omitempty"`
	Predictions  *PredictResult            `json:"predictions,omitempty"`
}

// StepProgress is called as each pipeline step finishes
type StepProgress func(step PipelineStep)

// Run executes the pipeline, stopping at the first failed step
func (s *PipelineService) Run(ctx context.Context, req PipelineRequest, progress StepProgress) (*PipelineResult, error) {
	result := &PipelineResult{}

	record := func(name, status, detail string, started time.Time) PipelineStep {
		step := PipelineStep{Name: name, Status: status, Detail: detail, Duration: time.Since(started)}
		result.Steps = append(result.Steps, step)
		if progress != nil {
			progress(step)
		}
		log.WithFields(log.Fields{"step": name, "status": status}).Info("pipeline step")
		return step
	}

	// 1. Verify the registry holds feature views for this project
	started := time.Now()
	views, _, err := s.registry.ListFeatureViews(ctx, output.RegistryFilter{Project: req.Project, Limit: 100})
	if err != nil {
		record("registry-check", StepStatusFailed, err.Error(), started)
		return result, fmt.Errorf("registry check: %w", err)
	}
	if len(views) == 0 {
		record("registry-check", StepStatusFailed, "no feature views registered", started)
		return result, domain.ErrFeatureViewNotFound
	}
	names := make([]string, 0, len(views))
	for _, v := range views {
		names = append(names, v.Name)
	}
	log.WithFields(log.Fields{"project": req.Project, "views": strings.Join(names, ", ")}).Info("registered feature views")
	record("registry-check", StepStatusOK, fmt.Sprintf("%d feature views", len(views)), started)

	// 2. Build the dataset, train and register a version
	started = time.Now()
	train, err := s.training.Train(ctx, TrainRequest{
		Project:         req.Project,
		ModelName:       req.ModelName,
		FeatureRefs:     req.FeatureRefs,
		ServiceName:     req.ServiceName,
		LabelColumn:     req.LabelColumn,
		EntityRows:      req.EntityRows,
		EntityQuery:     req.EntityQuery,
		TimestampColumn: req.TimestampColumn,
		Epochs:          req.Epochs,
		LearningRate:    req.LearningRate,
		L2:              req.L2,
		TestFraction:    req.TestFraction,
		Seed:            req.Seed,
		Threshold:       req.Threshold,
	})
	if err != nil {
		record("train", StepStatusFailed, err.Error(), started)
		return result, fmt.Errorf("train: %w", err)
	}
	result.Train = train
	record("train", StepStatusOK,
		fmt.Sprintf("version %d, accuracy %.3f", train.Version.Version, train.Version.Metrics["accuracy"]), started)

	// 3. Materialize the freshest values into the online store
	started = time.Now()
	materialized, err := s.materialize.MaterializeIncremental(ctx, req.Project, nil, time.Now(), nil)
	if err != nil {
		record("materialize", StepStatusFailed, err.Error(), started)
		return result, fmt.Errorf("materialize: %w", err)
	}
	result.Materialized = materialized
	written := 0
	for _, m := range materialized {
		written += m.RowsWritten
	}
	record("materialize", StepStatusOK, fmt.Sprintf("%d rows across %d views", written, len(materialized)), started)

	// 4. Deploy the new version. Without a serving cluster the smoke
	// test still runs, against the freshly trained artifact in process.
	if req.SkipDeploy || !s.deployment.IsServingAvailable() {
		detail := "serving disabled"
		if req.SkipDeploy {
			detail = "skipped by request"
		}
		record("deploy", StepStatusSkipped, detail, time.Now())
		record("wait-ready", StepStatusSkipped, "", time.Now())

		if len(req.TestRows) == 0 {
			record("smoke-test", StepStatusSkipped, "no test rows", time.Now())
			return result, nil
		}
		started = time.Now()
		predictions, err := s.prediction.PredictLocal(ctx, req.Project, req.ModelName, train.Version.Version, req.TestRows)
		if err != nil {
			record("smoke-test", StepStatusFailed, err.Error(), started)
			return result, fmt.Errorf("smoke test: %w", err)
		}
		result.Predictions = predictions
		record("smoke-test", StepStatusOK, fmt.Sprintf("%d predictions (local)", len(predictions.Predictions)), started)
		return result, nil
	}

	started = time.Now()
	deploy, err := s.deployment.Deploy(ctx, DeployRequest{
		Project:      req.Project,
		Name:         req.EndpointName,
		ModelName:    req.ModelName,
		Version:      train.Version.Version,
		Namespace:    req.Namespace,
		RuntimeImage: req.RuntimeImage,
	})
	if err != nil {
		record("deploy", StepStatusFailed, err.Error(), started)
		return result, fmt.Errorf("deploy: %w", err)
	}
	result.Endpoint = deploy.Endpoint
	if deploy.Status == string(domain.EndpointStateFailed) {
		record("deploy", StepStatusFailed, deploy.Message, started)
		return result, fmt.Errorf("deploy: %s", deploy.Message)
	}
	record("deploy", StepStatusOK, deploy.Endpoint.Name, started)

	// 5. Wait for the endpoint to come up
	started = time.Now()
	timeout := req.WaitTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	endpoint, err := s.deployment.WaitReady(ctx, req.Project, deploy.Endpoint.Name, timeout, req.PollInterval)
	if err != nil {
		record("wait-ready", StepStatusFailed, err.Error(), started)
		return result, fmt.Errorf("wait ready: %w", err)
	}
	result.Endpoint = endpoint
	record("wait-ready", StepStatusOK, endpoint.URL, started)

	// 6. Smoke-test with the provided entity rows
	if len(req.TestRows) == 0 {
		record("smoke-test", StepStatusSkipped, "no test rows", time.Now())
		return result, nil
	}
	started = time.Now()
	predictions, err := s.prediction.PredictRemote(ctx, req.Project, endpoint.Name, req.TestRows)
	if err != nil {
		record("smoke-test", StepStatusFailed, err.Error(), started)
		return result, fmt.Errorf("smoke test: %w", err)
	}
	result.Predictions = predictions
	record("smoke-test", StepStatusOK, fmt.Sprintf("%d predictions", len(predictions.Predictions)), started)

	return result, nil
}
