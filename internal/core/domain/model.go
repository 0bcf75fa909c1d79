package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// VersionStatus tracks whether a model version's artifact is usable
type VersionStatus string

const (
	VersionStatusPending VersionStatus = "PENDING"
	VersionStatusReady   VersionStatus = "READY"
	VersionStatusFailed  VersionStatus = "FAILED"
)

// IsValid checks if the status is valid
func (s VersionStatus) IsValid() bool {
	return s == VersionStatusPending || s == VersionStatusReady || s == VersionStatusFailed
}

// RegisteredModel is a named model in the registry; training runs add
// monotonically increasing versions under it.
type RegisteredModel struct {
	ID          uuid.UUID         `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Project     string            `json:"project"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Labels      map[string]string `json:"labels"`
}

// NewRegisteredModel creates a new RegisteredModel with validation
func NewRegisteredModel(project, name, description string) (*RegisteredModel, error) {
	if name == "" {
		return nil, ErrInvalidModelName
	}
	if project == "" {
		project = DefaultProject
	}

	now := time.Now()
	return &RegisteredModel{
		ID:          uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Project:     project,
		Name:        name,
		Description: description,
		Labels:      make(map[string]string),
	}, nil
}

// Update updates the mutable model fields
func (m *RegisteredModel) Update(description *string, labels map[string]string) {
	if description != nil {
		m.Description = *description
	}
	if labels != nil {
		m.Labels = labels
	}
	m.UpdatedAt = time.Now()
}

// ModelVersion is one trained instance of a registered model. Version
// numbers start at 1 and increase per model. RunID links back to the
// experiment tracker run that produced the artifact, when one exists.
type ModelVersion struct {
	ID          uuid.UUID          `json:"id"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	ModelID     uuid.UUID          `json:"model_id"`
	Version     int                `json:"version"`
	RunID       string             `json:"run_id"`
	ArtifactURI string             `json:"artifact_uri"`
	Framework   string             `json:"framework"`
	Status      VersionStatus      `json:"status"`
	Metrics     map[string]float64 `json:"metrics"`
	Params      map[string]string  `json:"params"`
	FeatureRefs []string           `json:"feature_refs"`
	LabelColumn string             `json:"label_column"`

	// Computed fields
	ModelName string `json:"model_name,omitempty"`
}

// NewModelVersion creates a new ModelVersion in PENDING status
func NewModelVersion(modelID uuid.UUID, version int, framework string) *ModelVersion {
	now := time.Now()
	return &ModelVersion{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		ModelID:   modelID,
		Version:   version,
		Framework: framework,
		Status:    VersionStatusPending,
		Metrics:   make(map[string]float64),
		Params:    make(map[string]string),
	}
}

// MarkReady records the stored artifact and flips the version to READY
func (v *ModelVersion) MarkReady(artifactURI string) {
	v.ArtifactURI = artifactURI
	v.Status = VersionStatusReady
	v.UpdatedAt = time.Now()
}

// MarkFailed flips the version to FAILED
func (v *ModelVersion) MarkFailed() {
	v.Status = VersionStatusFailed
	v.UpdatedAt = time.Now()
}

// IsReady returns true when the version can be deployed
func (v *ModelVersion) IsReady() bool {
	return v.Status == VersionStatusReady
}

// TrainedModel is the serialized artifact of a binary classifier:
// a logistic regression over standardized features. Means and stddevs
// come from the training split so scoring applies the same transform.
type TrainedModel struct {
	ModelName    string             `json:"model_name"`
	Framework    string             `json:"framework"`
	FeatureNames []string           `json:"feature_names"`
	Coefficients []float64          `json:"coefficients"`
	Intercept    float64            `json:"intercept"`
	Means        []float64          `json:"means"`
	Stddevs      []float64          `json:"stddevs"`
	LabelColumn  string             `json:"label_column"`
	Threshold    float64            `json:"threshold"`
	Metrics      map[string]float64 `json:"metrics"`
	TrainedAt    time.Time          `json:"trained_at"`
}

// Score returns the positive-class probability for one sample. The
// sample must be ordered like FeatureNames.
func (m *TrainedModel) Score(features []float64) float64 {
	z := m.Intercept
	for i, x := range features {
		std := m.Stddevs[i]
		if std == 0 {
			std = 1
		}
		z += m.Coefficients[i] * ((x - m.Means[i]) / std)
	}
	return 1.0 / (1.0 + math.Exp(-z))
}

// Predict returns the predicted label and the positive-class probability
func (m *TrainedModel) Predict(features []float64) (int, float64) {
	p := m.Score(features)
	if p >= m.Threshold {
		return 1, p
	}
	return 0, p
}
