package dto

import (
	"time"

	"github.com/google/uuid"

	"feature-store-service/internal/core/domain"
)

// TrainRequest configures one training run. Hyperparameters default
// in the service layer when zero.
type TrainRequest struct {
	Project         string         `json:"project"`
	ModelName       string         `json:"model_name" binding:"required,max=100"`
	Features        []string       `json:"features"`
	Service         string         `json:"service"`
	LabelColumn     string         `json:"label_column" binding:"required"`
	EntityRows      []EntityRowDTO `json:"entity_rows"`
	EntityQuery     string         `json:"entity_query"`
	TimestampColumn string         `json:"timestamp_column"`
	RunName         string         `json:"run_name"`

	Epochs       int     `json:"epochs"`
	LearningRate float64 `json:"learning_rate"`
	L2           float64 `json:"l2"`
	TestFraction float64 `json:"test_fraction"`
	Seed         int64   `json:"seed"`
	Threshold    float64 `json:"threshold"`
}

type RegisteredModelResponse struct {
	ID          uuid.UUID         `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Project     string            `json:"project"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Labels      map[string]string `json:"labels"`
}

type ModelVersionResponse struct {
	ID          uuid.UUID          `json:"id"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	ModelName   string             `json:"model_name"`
	Version     int                `json:"version"`
	Status      string             `json:"status"`
	Framework   string             `json:"framework"`
	RunID       string             `json:"run_id,omitempty"`
	ArtifactURI string             `json:"artifact_uri,omitempty"`
	Metrics     map[string]float64 `json:"metrics"`
	Params      map[string]string  `json:"params"`
	FeatureRefs []string           `json:"feature_refs"`
	LabelColumn string             `json:"label_column"`
}

type ListModelsResponse struct {
	Items      []RegisteredModelResponse `json:"items"`
	Total      int                       `json:"total"`
	PageSize   int                       `json:"page_size"`
	NextOffset int                       `json:"next_offset"`
}

type TrainResponse struct {
	Model       RegisteredModelResponse `json:"model"`
	Version     ModelVersionResponse    `json:"version"`
	DatasetRows int                     `json:"dataset_rows"`
	TrainRows   int                     `json:"train_rows"`
	TestRows    int                     `json:"test_rows"`
	RunID       string                  `json:"run_id,omitempty"`
}

func ToRegisteredModelResponse(m *domain.RegisteredModel) RegisteredModelResponse {
	return RegisteredModelResponse{
		ID:          m.ID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Project:     m.Project,
		Name:        m.Name,
		Description: m.Description,
		Labels:      m.Labels,
	}
}

func ToModelVersionResponse(v *domain.ModelVersion) ModelVersionResponse {
	return ModelVersionResponse{
		ID:          v.ID,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
		ModelName:   v.ModelName,
		Version:     v.Version,
		Status:      string(v.Status),
		Framework:   v.Framework,
		RunID:       v.RunID,
		ArtifactURI: v.ArtifactURI,
		Metrics:     v.Metrics,
		Params:      v.Params,
		FeatureRefs: v.FeatureRefs,
		LabelColumn: v.LabelColumn,
	}
}
