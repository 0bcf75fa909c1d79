package featurerepo

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"feature-store-service/internal/core/services"
)

// Applier pushes a feature repository file into the registry.
// Objects apply in dependency order so views always find their
// sources and entities.
type Applier struct {
	registry *services.RegistryService
}

func NewApplier(registry *services.RegistryService) *Applier {
	return &Applier{registry: registry}
}

// Summary counts what one apply touched
type Summary struct {
	Project  string `json:"project"`
	Entities int    `json:"entities"`
	Sources  int    `json:"sources"`
	Views    int    `json:"feature_views"`
	Services int    `json:"feature_services"`
}

// ApplyFile loads, validates and applies a repo file. A validation
// error fails the whole apply before anything is written; an apply
// error stops at the failing object, leaving earlier upserts in place.
func (a *Applier) ApplyFile(ctx context.Context, path, project string) (*Summary, error) {
	file, err := Load(path)
	if err != nil {
		return nil, err
	}

	defs, err := file.Definitions(project)
	if err != nil {
		return nil, err
	}
	return a.Apply(ctx, defs)
}

// Apply upserts the definitions through the registry
func (a *Applier) Apply(ctx context.Context, defs *Definitions) (*Summary, error) {
	summary := &Summary{Project: defs.Project}

	for _, entity := range defs.Entities {
		if _, err := a.registry.ApplyEntity(ctx, entity); err != nil {
			return summary, fmt.Errorf("apply entity %s: %w", entity.Name, err)
		}
		summary.Entities++
	}

	for _, source := range defs.Sources {
		if _, err := a.registry.ApplyDataSource(ctx, source); err != nil {
			return summary, fmt.Errorf("apply source %s: %w", source.Name, err)
		}
		summary.Sources++
	}

	for _, view := range defs.Views {
		if _, err := a.registry.ApplyFeatureView(ctx, view); err != nil {
			return summary, fmt.Errorf("apply feature view %s: %w", view.Name, err)
		}
		summary.Views++
	}

	for _, svc := range defs.Services {
		if _, err := a.registry.ApplyFeatureService(ctx, svc); err != nil {
			return summary, fmt.Errorf("apply feature service %s: %w", svc.Name, err)
		}
		summary.Services++
	}

	log.WithFields(log.Fields{
		"project":          summary.Project,
		"entities":         summary.Entities,
		"sources":          summary.Sources,
		"feature_views":    summary.Views,
		"feature_services": summary.Services,
	}).Info("feature repository applied")

	return summary, nil
}
