package dto

import (
	"time"

	"github.com/google/uuid"

	"feature-store-service/internal/core/domain"
)

// DeployRequest rolls a model version out as an inference endpoint.
// Version 0 deploys the latest READY version.
type DeployRequest struct {
	Project      string            `json:"project"`
	Name         string            `json:"name"`
	ModelName    string            `json:"model_name" binding:"required,max=100"`
	Version      int               `json:"version"`
	Namespace    string            `json:"namespace"`
	RuntimeImage string            `json:"runtime_image"`
	Labels       map[string]string `json:"labels"`
	Wait         bool              `json:"wait"`
}

type EndpointResponse struct {
	ID           uuid.UUID         `json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Project      string            `json:"project"`
	Name         string            `json:"name"`
	ModelName    string            `json:"model_name"`
	ModelVersion int               `json:"model_version"`
	Namespace    string            `json:"namespace"`
	RuntimeImage string            `json:"runtime_image,omitempty"`
	ExternalID   string            `json:"external_id,omitempty"`
	URL          string            `json:"url,omitempty"`
	State        string            `json:"state"`
	LastError    string            `json:"last_error,omitempty"`
	Labels       map[string]string `json:"labels"`
}

type DeployResponse struct {
	Endpoint EndpointResponse `json:"endpoint"`
	Status   string           `json:"status"`
	Message  string           `json:"message"`
}

type ListEndpointsResponse struct {
	Items []EndpointResponse `json:"items"`
	Total int                `json:"total"`
}

func ToEndpointResponse(e *domain.InferenceEndpoint) EndpointResponse {
	return EndpointResponse{
		ID:           e.ID,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
		Project:      e.Project,
		Name:         e.Name,
		ModelName:    e.ModelName,
		ModelVersion: e.ModelVersion,
		Namespace:    e.Namespace,
		RuntimeImage: e.RuntimeImage,
		ExternalID:   e.ExternalID,
		URL:          e.URL,
		State:        string(e.State),
		LastError:    e.LastError,
		Labels:       e.Labels,
	}
}

// PredictRequest scores a batch of entity rows against a model. With
// an endpoint name the request goes to the deployed runtime, otherwise
// the artifact is loaded and scored in process.
type PredictRequest struct {
	Project    string                   `json:"project"`
	Endpoint   string                   `json:"endpoint"`
	Version    int                      `json:"version"`
	EntityRows []map[string]interface{} `json:"entity_rows" binding:"required"`
}
