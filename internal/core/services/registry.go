package services

import (
	"context"
	"fmt"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
)

// RegistryService manages the feature registry: entities, data sources,
// feature views and feature services. Apply operations are idempotent
// upserts so declarative repo files can be re-applied safely.
type RegistryService struct {
	entityRepo  output.EntityRepository
	sourceRepo  output.DataSourceRepository
	viewRepo    output.FeatureViewRepository
	serviceRepo output.FeatureServiceRepository
}

func NewRegistryService(
	entityRepo output.EntityRepository,
	sourceRepo output.DataSourceRepository,
	viewRepo output.FeatureViewRepository,
	serviceRepo output.FeatureServiceRepository,
) *RegistryService {
	return &RegistryService{
		entityRepo:  entityRepo,
		sourceRepo:  sourceRepo,
		viewRepo:    viewRepo,
		serviceRepo: serviceRepo,
	}
}

// ============================================================================
// Entities
// ============================================================================

// ApplyEntity creates the entity or updates it in place when one with
// the same name already exists
func (s *RegistryService) ApplyEntity(ctx context.Context, entity *domain.Entity) (*domain.Entity, error) {
	existing, err := s.entityRepo.GetByName(ctx, entity.Project, entity.Name)
	if err == nil {
		existing.JoinKey = entity.JoinKey
		existing.ValueType = entity.ValueType
		desc := entity.Description
		existing.Update(&desc, entity.Labels)
		if err := s.entityRepo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("update entity: %w", err)
		}
		return existing, nil
	}

	if err := s.entityRepo.Create(ctx, entity); err != nil {
		return nil, fmt.Errorf("create entity: %w", err)
	}
	return entity, nil
}

func (s *RegistryService) GetEntity(ctx context.Context, project, name string) (*domain.Entity, error) {
	return s.entityRepo.GetByName(ctx, project, name)
}

func (s *RegistryService) ListEntities(ctx context.Context, filter output.RegistryFilter) ([]*domain.Entity, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.entityRepo.List(ctx, filter)
}

// DeleteEntity removes an entity unless a feature view still references it
func (s *RegistryService) DeleteEntity(ctx context.Context, project, name string) error {
	views, _, err := s.viewRepo.List(ctx, output.RegistryFilter{Project: project, Limit: 1000})
	if err != nil {
		return fmt.Errorf("list views: %w", err)
	}
	for _, v := range views {
		for _, e := range v.Entities {
			if e == name {
				return fmt.Errorf("%w: %s", domain.ErrEntityInUse, v.Name)
			}
		}
	}
	return s.entityRepo.Delete(ctx, project, name)
}

// ============================================================================
// Data Sources
// ============================================================================

func (s *RegistryService) ApplyDataSource(ctx context.Context, source *domain.DataSource) (*domain.DataSource, error) {
	existing, err := s.sourceRepo.GetByName(ctx, source.Project, source.Name)
	if err == nil {
		existing.TableRef = source.TableRef
		existing.Query = source.Query
		existing.EventTimestampColumn = source.EventTimestampColumn
		existing.CreatedTimestampColumn = source.CreatedTimestampColumn
		existing.DatePartitionColumn = source.DatePartitionColumn
		desc := source.Description
		existing.Update(&desc, source.FieldMapping, source.Labels)
		if err := s.sourceRepo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("update data source: %w", err)
		}
		return existing, nil
	}

	if err := s.sourceRepo.Create(ctx, source); err != nil {
		return nil, fmt.Errorf("create data source: %w", err)
	}
	return source, nil
}

func (s *RegistryService) GetDataSource(ctx context.Context, project, name string) (*domain.DataSource, error) {
	return s.sourceRepo.GetByName(ctx, project, name)
}

func (s *RegistryService) ListDataSources(ctx context.Context, filter output.RegistryFilter) ([]*domain.DataSource, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.sourceRepo.List(ctx, filter)
}

func (s *RegistryService) DeleteDataSource(ctx context.Context, project, name string) error {
	views, _, err := s.viewRepo.List(ctx, output.RegistryFilter{Project: project, Limit: 1000})
	if err != nil {
		return fmt.Errorf("list views: %w", err)
	}
	for _, v := range views {
		if v.SourceName == name {
			return fmt.Errorf("%w: %s", domain.ErrSourceInUse, v.Name)
		}
	}
	return s.sourceRepo.Delete(ctx, project, name)
}

// ============================================================================
// Feature Views
// ============================================================================

// ApplyFeatureView validates that the referenced entities and source
// exist before upserting. Materialization history survives updates.
func (s *RegistryService) ApplyFeatureView(ctx context.Context, view *domain.FeatureView) (*domain.FeatureView, error) {
	for _, entityName := range view.Entities {
		if _, err := s.entityRepo.GetByName(ctx, view.Project, entityName); err != nil {
			return nil, fmt.Errorf("entity %q: %w", entityName, err)
		}
	}
	if _, err := s.sourceRepo.GetByName(ctx, view.Project, view.SourceName); err != nil {
		return nil, fmt.Errorf("source %q: %w", view.SourceName, err)
	}

	existing, err := s.viewRepo.GetByName(ctx, view.Project, view.Name)
	if err == nil {
		existing.Entities = view.Entities
		existing.Features = view.Features
		existing.SourceName = view.SourceName
		desc := view.Description
		ttl := view.TTL
		online := view.Online
		existing.Update(&desc, &ttl, &online, view.Labels)
		if err := s.viewRepo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("update feature view: %w", err)
		}
		return existing, nil
	}

	if err := s.viewRepo.Create(ctx, view); err != nil {
		return nil, fmt.Errorf("create feature view: %w", err)
	}
	return view, nil
}

func (s *RegistryService) GetFeatureView(ctx context.Context, project, name string) (*domain.FeatureView, error) {
	return s.viewRepo.GetByName(ctx, project, name)
}

func (s *RegistryService) ListFeatureViews(ctx context.Context, filter output.RegistryFilter) ([]*domain.FeatureView, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.viewRepo.List(ctx, filter)
}

func (s *RegistryService) DeleteFeatureView(ctx context.Context, project, name string) error {
	return s.viewRepo.Delete(ctx, project, name)
}

// ============================================================================
// Feature Services
// ============================================================================

// ApplyFeatureService validates that every projection resolves to an
// existing view and that named features are declared by it
func (s *RegistryService) ApplyFeatureService(ctx context.Context, svc *domain.FeatureService) (*domain.FeatureService, error) {
	for _, p := range svc.Projections {
		view, err := s.viewRepo.GetByName(ctx, svc.Project, p.ViewName)
		if err != nil {
			return nil, fmt.Errorf("view %q: %w", p.ViewName, err)
		}
		for _, f := range p.Features {
			if _, err := view.Feature(f); err != nil {
				return nil, fmt.Errorf("view %q feature %q: %w", p.ViewName, f, err)
			}
		}
	}

	existing, err := s.serviceRepo.GetByName(ctx, svc.Project, svc.Name)
	if err == nil {
		desc := svc.Description
		existing.Update(&desc, svc.Projections, svc.Labels)
		if err := s.serviceRepo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("update feature service: %w", err)
		}
		return existing, nil
	}

	if err := s.serviceRepo.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("create feature service: %w", err)
	}
	return svc, nil
}

func (s *RegistryService) GetFeatureService(ctx context.Context, project, name string) (*domain.FeatureService, error) {
	return s.serviceRepo.GetByName(ctx, project, name)
}

func (s *RegistryService) ListFeatureServices(ctx context.Context, filter output.RegistryFilter) ([]*domain.FeatureService, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.serviceRepo.List(ctx, filter)
}

func (s *RegistryService) DeleteFeatureService(ctx context.Context, project, name string) error {
	return s.serviceRepo.Delete(ctx, project, name)
}

// ============================================================================
// Feature Resolution
// ============================================================================

// ResolvedView is one feature view with everything retrieval needs:
// its source, its entities and the subset of features requested.
type ResolvedView struct {
	View     *domain.FeatureView
	Source   *domain.DataSource
	Entities []*domain.Entity
	Features []string
}

// JoinKeys returns the join key column names for this view's entities
func (r *ResolvedView) JoinKeys() []string {
	keys := make([]string, len(r.Entities))
	for i, e := range r.Entities {
		keys[i] = e.JoinKey
	}
	return keys
}

// ColumnNames returns the qualified output column per requested feature
func (r *ResolvedView) ColumnNames() []string {
	cols := make([]string, len(r.Features))
	for i, f := range r.Features {
		cols[i] = domain.FeatureRef{View: r.View.Name, Feature: f}.ColumnName()
	}
	return cols
}

// ResolveRefs groups "view:feature" references by view and loads each
// view with its source and entities. Reference order is preserved
// within each view, and view order follows first appearance.
func (s *RegistryService) ResolveRefs(ctx context.Context, project string, refs []string) ([]*ResolvedView, error) {
	if len(refs) == 0 {
		return nil, domain.ErrNothingToServe
	}

	var order []string
	grouped := make(map[string][]string)
	for _, raw := range refs {
		ref, err := domain.ParseFeatureRef(raw)
		if err != nil {
			return nil, err
		}
		if _, seen := grouped[ref.View]; !seen {
			order = append(order, ref.View)
		}
		grouped[ref.View] = append(grouped[ref.View], ref.Feature)
	}

	resolved := make([]*ResolvedView, 0, len(order))
	for _, viewName := range order {
		rv, err := s.resolveView(ctx, project, viewName, grouped[viewName])
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, rv)
	}
	return resolved, nil
}

// ResolveService expands a feature service into resolved views. An
// empty projection feature list selects every feature of the view.
func (s *RegistryService) ResolveService(ctx context.Context, project, serviceName string) ([]*ResolvedView, error) {
	svc, err := s.serviceRepo.GetByName(ctx, project, serviceName)
	if err != nil {
		return nil, err
	}

	resolved := make([]*ResolvedView, 0, len(svc.Projections))
	for _, p := range svc.Projections {
		rv, err := s.resolveView(ctx, project, p.ViewName, p.Features)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, rv)
	}
	return resolved, nil
}

func (s *RegistryService) resolveView(ctx context.Context, project, viewName string, features []string) (*ResolvedView, error) {
	view, err := s.viewRepo.GetByName(ctx, project, viewName)
	if err != nil {
		return nil, fmt.Errorf("view %q: %w", viewName, err)
	}

	if len(features) == 0 {
		features = view.FeatureNames()
	} else {
		for _, f := range features {
			if _, err := view.Feature(f); err != nil {
				return nil, fmt.Errorf("view %q feature %q: %w", viewName, f, err)
			}
		}
	}

	source, err := s.sourceRepo.GetByName(ctx, project, view.SourceName)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", view.SourceName, err)
	}

	entities := make([]*domain.Entity, len(view.Entities))
	for i, name := range view.Entities {
		entity, err := s.entityRepo.GetByName(ctx, project, name)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", name, err)
		}
		entities[i] = entity
	}

	return &ResolvedView{View: view, Source: source, Entities: entities, Features: features}, nil
}
