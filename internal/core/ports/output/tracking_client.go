package ports

import "context"

// Run statuses understood by the tracking server
const (
	RunStatusFinished = "FINISHED"
	RunStatusFailed   = "FAILED"
)

// TrackingRun identifies an experiment run on the tracking server
type TrackingRun struct {
	RunID        string
	ExperimentID string
}

// TrackingClient defines the contract for the experiment tracking
// server (MLflow-compatible REST API). All operations are best effort
// from the trainer's point of view: a down tracker must not fail a
// training run.
type TrackingClient interface {
	// EnsureExperiment returns the experiment ID, creating it if needed
	EnsureExperiment(ctx context.Context, name string) (string, error)

	// StartRun opens a run under an experiment
	StartRun(ctx context.Context, experimentID, runName string) (*TrackingRun, error)

	// LogParams records string parameters on a run
	LogParams(ctx context.Context, runID string, params map[string]string) error

	// LogMetrics records final metric values on a run
	LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error

	// EndRun closes a run with a terminal status
	EndRun(ctx context.Context, runID, status string) error

	// RegisterModel creates the registered model if it does not exist
	RegisterModel(ctx context.Context, name string) error

	// CreateModelVersion registers an artifact as a new model version
	// and returns the version assigned by the tracking server
	CreateModelVersion(ctx context.Context, name, source, runID string) (string, error)

	// IsAvailable checks if tracking integration is enabled and configured
	IsAvailable() bool
}
