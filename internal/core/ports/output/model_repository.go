package ports

import (
	"context"

	"github.com/google/uuid"

	"feature-store-service/internal/core/domain"
)

// ModelFilter narrows model list queries
type ModelFilter struct {
	Project string
	Search  string
	Limit   int
	Offset  int
}

type ModelRepository interface {
	Create(ctx context.Context, model *domain.RegisteredModel) error
	GetByName(ctx context.Context, project, name string) (*domain.RegisteredModel, error)
	Update(ctx context.Context, model *domain.RegisteredModel) error
	Delete(ctx context.Context, project, name string) error
	List(ctx context.Context, filter ModelFilter) ([]*domain.RegisteredModel, int, error)
}

type VersionRepository interface {
	Create(ctx context.Context, version *domain.ModelVersion) error
	GetByNumber(ctx context.Context, modelID uuid.UUID, number int) (*domain.ModelVersion, error)
	// LatestReady returns the highest READY version for a model
	LatestReady(ctx context.Context, modelID uuid.UUID) (*domain.ModelVersion, error)
	// NextNumber allocates the next version number for a model, starting at 1
	NextNumber(ctx context.Context, modelID uuid.UUID) (int, error)
	Update(ctx context.Context, version *domain.ModelVersion) error
	ListByModel(ctx context.Context, modelID uuid.UUID) ([]*domain.ModelVersion, error)
}

type EndpointRepository interface {
	Create(ctx context.Context, endpoint *domain.InferenceEndpoint) error
	GetByName(ctx context.Context, project, name string) (*domain.InferenceEndpoint, error)
	Update(ctx context.Context, endpoint *domain.InferenceEndpoint) error
	Delete(ctx context.Context, project, name string) error
	List(ctx context.Context, project string) ([]*domain.InferenceEndpoint, error)
}
