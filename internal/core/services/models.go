package services

import (
	"context"
	"fmt"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
)

// ModelService is the read side of the model registry: browsing
// registered models and their versions. Writes happen through
// training runs.
type ModelService struct {
	modelRepo   output.ModelRepository
	versionRepo output.VersionRepository
}

func NewModelService(modelRepo output.ModelRepository, versionRepo output.VersionRepository) *ModelService {
	return &ModelService{
		modelRepo:   modelRepo,
		versionRepo: versionRepo,
	}
}

func (s *ModelService) List(ctx context.Context, filter output.ModelFilter) ([]*domain.RegisteredModel, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.modelRepo.List(ctx, filter)
}

func (s *ModelService) Get(ctx context.Context, project, name string) (*domain.RegisteredModel, error) {
	return s.modelRepo.GetByName(ctx, project, name)
}

func (s *ModelService) ListVersions(ctx context.Context, project, modelName string) ([]*domain.ModelVersion, error) {
	model, err := s.modelRepo.GetByName(ctx, project, modelName)
	if err != nil {
		return nil, err
	}
	return s.versionRepo.ListByModel(ctx, model.ID)
}

func (s *ModelService) GetVersion(ctx context.Context, project, modelName string, number int) (*domain.ModelVersion, error) {
	model, err := s.modelRepo.GetByName(ctx, project, modelName)
	if err != nil {
		return nil, err
	}
	if number > 0 {
		return s.versionRepo.GetByNumber(ctx, model.ID, number)
	}
	version, err := s.versionRepo.LatestReady(ctx, model.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoReadyVersion, modelName)
	}
	return version, nil
}

// Delete removes a registered model and, through the schema's cascade,
// its versions
func (s *ModelService) Delete(ctx context.Context, project, name string) error {
	return s.modelRepo.Delete(ctx, project, name)
}
