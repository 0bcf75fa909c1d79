package ports

import (
	"context"

	"feature-store-service/internal/core/domain"
)

// RegistryFilter narrows registry list queries
type RegistryFilter struct {
	Project string
	Search  string
	SortBy  string
	Order   string
	Limit   int
	Offset  int

	// OnlineOnly restricts feature view listings to views with online
	// serving enabled. Other object kinds ignore it.
	OnlineOnly bool
}

type EntityRepository interface {
	Create(ctx context.Context, entity *domain.Entity) error
	GetByName(ctx context.Context, project, name string) (*domain.Entity, error)
	Update(ctx context.Context, entity *domain.Entity) error
	Delete(ctx context.Context, project, name string) error
	List(ctx context.Context, filter RegistryFilter) ([]*domain.Entity, int, error)
}

type DataSourceRepository interface {
	Create(ctx context.Context, source *domain.DataSource) error
	GetByName(ctx context.Context, project, name string) (*domain.DataSource, error)
	Update(ctx context.Context, source *domain.DataSource) error
	Delete(ctx context.Context, project, name string) error
	List(ctx context.Context, filter RegistryFilter) ([]*domain.DataSource, int, error)
}

type FeatureViewRepository interface {
	Create(ctx context.Context, view *domain.FeatureView) error
	GetByName(ctx context.Context, project, name string) (*domain.FeatureView, error)
	Update(ctx context.Context, view *domain.FeatureView) error
	Delete(ctx context.Context, project, name string) error
	List(ctx context.Context, filter RegistryFilter) ([]*domain.FeatureView, int, error)
	// ListOnline returns the views flagged for online serving in a project
	ListOnline(ctx context.Context, project string) ([]*domain.FeatureView, error)
}

type FeatureServiceRepository interface {
	Create(ctx context.Context, service *domain.FeatureService) error
	GetByName(ctx context.Context, project, name string) (*domain.FeatureService, error)
	Update(ctx context.Context, service *domain.FeatureService) error
	Delete(ctx context.Context, project, name string) error
	List(ctx context.Context, filter RegistryFilter) ([]*domain.FeatureService, int, error)
}
