package domain

import (
	"time"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/uuid"
)

// EndpointState represents the observed state of an inference endpoint
type EndpointState string

const (
	EndpointStatePending EndpointState = "PENDING"
	EndpointStateReady   EndpointState = "READY"
	EndpointStateFailed  EndpointState = "FAILED"
)

// IsValid checks if the state is valid
func (s EndpointState) IsValid() bool {
	return s == EndpointStatePending || s == EndpointStateReady || s == EndpointStateFailed
}

// InferenceEndpoint is a deployed model version serving predictions,
// backed by an InferenceService custom resource on the cluster.
type InferenceEndpoint struct {
	ID           uuid.UUID         `json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Project      string            `json:"project"`
	Name         string            `json:"name"`
	ModelName    string            `json:"model_name"`
	ModelVersion int               `json:"model_version"`
	Namespace    string            `json:"namespace"`
	RuntimeImage string            `json:"runtime_image"`
	ExternalID   string            `json:"external_id"` // K8s resource UID
	URL          string            `json:"url"`
	State        EndpointState     `json:"state"`
	LastError    string            `json:"last_error"`
	Labels       map[string]string `json:"labels"`
}

// NewInferenceEndpoint creates a new InferenceEndpoint with validation
func NewInferenceEndpoint(
	project, name, modelName string,
	modelVersion int,
	namespace, runtimeImage string,
) (*InferenceEndpoint, error) {
	if name == "" {
		return nil, ErrInvalidEndpointName
	}
	if modelName == "" {
		return nil, ErrInvalidModelName
	}
	if runtimeImage != "" && !validImageRef(runtimeImage) {
		return nil, ErrInvalidRuntimeImage
	}
	if project == "" {
		project = DefaultProject
	}
	if namespace == "" {
		namespace = "default"
	}

	now := time.Now()
	return &InferenceEndpoint{
		ID:           uuid.New(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Project:      project,
		Name:         name,
		ModelName:    modelName,
		ModelVersion: modelVersion,
		Namespace:    namespace,
		RuntimeImage: runtimeImage,
		State:        EndpointStatePending,
		Labels:       make(map[string]string),
	}, nil
}

// validImageRef rejects malformed image references early, before the
// cluster does
func validImageRef(ref string) bool {
	_, err := name.ParseReference(ref, name.WithDefaultRegistry(""))
	return err == nil
}

// MarkReady records the serving URL and flips the endpoint to READY
func (e *InferenceEndpoint) MarkReady(url string) {
	e.State = EndpointStateReady
	e.URL = url
	e.LastError = ""
	e.UpdatedAt = time.Now()
}

// MarkFailed records a deployment failure
func (e *InferenceEndpoint) MarkFailed(errMsg string) {
	e.State = EndpointStateFailed
	e.LastError = errMsg
	e.UpdatedAt = time.Now()
}

// MarkPending resets the endpoint while a rollout is in progress
func (e *InferenceEndpoint) MarkPending() {
	e.State = EndpointStatePending
	e.UpdatedAt = time.Now()
}

// SetExternalID sets the K8s resource UID
func (e *InferenceEndpoint) SetExternalID(externalID string) {
	e.ExternalID = externalID
	e.UpdatedAt = time.Now()
}

// IsReady returns true when the endpoint can serve predictions
func (e *InferenceEndpoint) IsReady() bool {
	return e.State == EndpointStateReady
}
