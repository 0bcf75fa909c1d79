package dto

import (
	"time"

	"github.com/google/uuid"

	"feature-store-service/internal/core/domain"
)

// ============================================================================
// Entity DTOs
// ============================================================================

type ApplyEntityRequest struct {
	Project     string            `json:"project"`
	Name        string            `json:"name" binding:"required,max=100"`
	JoinKey     string            `json:"join_key" binding:"required"`
	ValueType   string            `json:"value_type"`
	Description string            `json:"description"`
	Labels      map[string]string `json:"labels"`
}

type EntityResponse struct {
	ID          uuid.UUID         `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Project     string            `json:"project"`
	Name        string            `json:"name"`
	JoinKey     string            `json:"join_key"`
	ValueType   string            `json:"value_type"`
	Description string            `json:"description"`
	Labels      map[string]string `json:"labels"`
}

type ListEntitiesResponse struct {
	Items      []EntityResponse `json:"items"`
	Total      int              `json:"total"`
	PageSize   int              `json:"page_size"`
	NextOffset int              `json:"next_offset"`
}

func ToEntityResponse(e *domain.Entity) EntityResponse {
	return EntityResponse{
		ID:          e.ID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		Project:     e.Project,
		Name:        e.Name,
		JoinKey:     e.JoinKey,
		ValueType:   string(e.ValueType),
		Description: e.Description,
		Labels:      e.Labels,
	}
}

// ============================================================================
// Data Source DTOs
// ============================================================================

type ApplyDataSourceRequest struct {
	Project                string            `json:"project"`
	Name                   string            `json:"name" binding:"required,max=100"`
	Table                  string            `json:"table"`
	Query                  string            `json:"query"`
	EventTimestampColumn   string            `json:"event_timestamp_column" binding:"required"`
	CreatedTimestampColumn string            `json:"created_timestamp_column"`
	DatePartitionColumn    string            `json:"date_partition_column"`
	FieldMapping           map[string]string `json:"field_mapping"`
	Description            string            `json:"description"`
	Labels                 map[string]string `json:"labels"`
}

type DataSourceResponse struct {
	ID                     uuid.UUID         `json:"id"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
	Project                string            `json:"project"`
	Name                   string            `json:"name"`
	Type                   string            `json:"type"`
	Table                  string            `json:"table,omitempty"`
	Query                  string            `json:"query,omitempty"`
	EventTimestampColumn   string            `json:"event_timestamp_column"`
	CreatedTimestampColumn string            `json:"created_timestamp_column,omitempty"`
	DatePartitionColumn    string            `json:"date_partition_column,omitempty"`
	FieldMapping           map[string]string `json:"field_mapping"`
	Description            string            `json:"description"`
	Labels                 map[string]string `json:"labels"`
}

type ListDataSourcesResponse struct {
	Items      []DataSourceResponse `json:"items"`
	Total      int                  `json:"total"`
	PageSize   int                  `json:"page_size"`
	NextOffset int                  `json:"next_offset"`
}

func ToDataSourceResponse(s *domain.DataSource) DataSourceResponse {
	return DataSourceResponse{
		ID:                     s.ID,
		CreatedAt:              s.CreatedAt,
		UpdatedAt:              s.UpdatedAt,
		Project:                s.Project,
		Name:                   s.Name,
		Type:                   string(s.Type()),
		Table:                  s.TableRef,
		Query:                  s.Query,
		EventTimestampColumn:   s.EventTimestampColumn,
		CreatedTimestampColumn: s.CreatedTimestampColumn,
		DatePartitionColumn:    s.DatePartitionColumn,
		FieldMapping:           s.FieldMapping,
		Description:            s.Description,
		Labels:                 s.Labels,
	}
}

// ============================================================================
// Feature View DTOs
// ============================================================================

type FeatureDTO struct {
	Name        string `json:"name" binding:"required"`
	ValueType   string `json:"value_type"`
	Description string `json:"description"`
}

type ApplyFeatureViewRequest struct {
	Project     string            `json:"project"`
	Name        string            `json:"name" binding:"required,max=100"`
	Entities    []string          `json:"entities" binding:"required"`
	Source      string            `json:"source" binding:"required"`
	Features    []FeatureDTO      `json:"features" binding:"required"`
	TTL         string            `json:"ttl"`
	Online      *bool             `json:"online"`
	Description string            `json:"description"`
	Labels      map[string]string `json:"labels"`
}

type IntervalDTO struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type FeatureViewResponse struct {
	ID                    uuid.UUID         `json:"id"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
	Project               string            `json:"project"`
	Name                  string            `json:"name"`
	Entities              []string          `json:"entities"`
	Source                string            `json:"source"`
	Features              []FeatureDTO      `json:"features"`
	TTL                   string            `json:"ttl"`
	Online                bool              `json:"online"`
	Description           string            `json:"description"`
	Labels                map[string]string `json:"labels"`
	MaterializedIntervals []IntervalDTO     `json:"materialized_intervals"`
}

type ListFeatureViewsResponse struct {
	Items      []FeatureViewResponse `json:"items"`
	Total      int                   `json:"total"`
	PageSize   int                   `json:"page_size"`
	NextOffset int                   `json:"next_offset"`
}

func ToFeatureViewResponse(v *domain.FeatureView) FeatureViewResponse {
	features := make([]FeatureDTO, 0, len(v.Features))
	for _, f := range v.Features {
		features = append(features, FeatureDTO{
			Name:        f.Name,
			ValueType:   string(f.ValueType),
			Description: f.Description,
		})
	}
	intervals := make([]IntervalDTO, 0, len(v.MaterializedIntervals))
	for _, iv := range v.MaterializedIntervals {
		intervals = append(intervals, IntervalDTO{Start: iv.Start, End: iv.End})
	}

	ttl := ""
	if v.TTL > 0 {
		ttl = v.TTL.String()
	}

	return FeatureViewResponse{
		ID:                    v.ID,
		CreatedAt:             v.CreatedAt,
		UpdatedAt:             v.UpdatedAt,
		Project:               v.Project,
		Name:                  v.Name,
		Entities:              v.Entities,
		Source:                v.SourceName,
		Features:              features,
		TTL:                   ttl,
		Online:                v.Online,
		Description:           v.Description,
		Labels:                v.Labels,
		MaterializedIntervals: intervals,
	}
}

// ============================================================================
// Feature Service DTOs
// ============================================================================

type ProjectionDTO struct {
	View     string   `json:"view" binding:"required"`
	Features []string `json:"features"`
}

type ApplyFeatureServiceRequest struct {
	Project     string            `json:"project"`
	Name        string            `json:"name" binding:"required,max=100"`
	Views       []ProjectionDTO   `json:"views" binding:"required"`
	Description string            `json:"description"`
	Labels      map[string]string `json:"labels"`
}

type FeatureServiceResponse struct {
	ID          uuid.UUID         `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Project     string            `json:"project"`
	Name        string            `json:"name"`
	Views       []ProjectionDTO   `json:"views"`
	Description string            `json:"description"`
	Labels      map[string]string `json:"labels"`
}

type ListFeatureServicesResponse struct {
	Items      []FeatureServiceResponse `json:"items"`
	Total      int                      `json:"total"`
	PageSize   int                      `json:"page_size"`
	NextOffset int                      `json:"next_offset"`
}

func ToFeatureServiceResponse(s *domain.FeatureService) FeatureServiceResponse {
	views := make([]ProjectionDTO, 0, len(s.Projections))
	for _, p := range s.Projections {
		views = append(views, ProjectionDTO{View: p.ViewName, Features: p.Features})
	}
	return FeatureServiceResponse{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		Project:     s.Project,
		Name:        s.Name,
		Views:       views,
		Description: s.Description,
		Labels:      s.Labels,
	}
}
