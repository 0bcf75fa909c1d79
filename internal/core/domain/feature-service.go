package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FeatureRef identifies one feature inside one view, written "view:feature"
type FeatureRef struct {
	View    string `json:"view"`
	Feature string `json:"feature"`
}

// ParseFeatureRef parses a "view:feature" reference
func ParseFeatureRef(ref string) (FeatureRef, error) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return FeatureRef{}, ErrInvalidFeatureRef
	}
	return FeatureRef{View: parts[0], Feature: parts[1]}, nil
}

// String returns the canonical "view:feature" form
func (r FeatureRef) String() string {
	return r.View + ":" + r.Feature
}

// ColumnName returns the dataset column name for this reference.
// Features are prefixed with their view to keep columns unambiguous
// when two views declare the same feature name.
func (r FeatureRef) ColumnName() string {
	return r.View + "__" + r.Feature
}

// FeatureViewProjection selects features from one view. An empty
// Features slice selects every feature the view declares.
type FeatureViewProjection struct {
	ViewName string   `json:"view_name"`
	Features []string `json:"features"`
}

// FeatureService is a named, versionable group of feature references
// that models retrieve together for training and inference.
type FeatureService struct {
	ID          uuid.UUID               `json:"id"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
	Project     string                  `json:"project"`
	Name        string                  `json:"name"`
	Projections []FeatureViewProjection `json:"projections"`
	Description string                  `json:"description"`
	Labels      map[string]string       `json:"labels"`
}

// NewFeatureService creates a new FeatureService with validation
func NewFeatureService(project, name string, projections []FeatureViewProjection) (*FeatureService, error) {
	if name == "" {
		return nil, ErrInvalidServiceName
	}
	if len(projections) == 0 {
		return nil, ErrNothingToServe
	}
	for _, p := range projections {
		if p.ViewName == "" {
			return nil, ErrInvalidViewName
		}
	}
	if project == "" {
		project = DefaultProject
	}

	now := time.Now()
	return &FeatureService{
		ID:          uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Project:     project,
		Name:        name,
		Projections: projections,
		Labels:      make(map[string]string),
	}, nil
}

// Update updates the mutable service fields
func (s *FeatureService) Update(description *string, projections []FeatureViewProjection, labels map[string]string) {
	if description != nil {
		s.Description = *description
	}
	if projections != nil {
		s.Projections = projections
	}
	if labels != nil {
		s.Labels = labels
	}
	s.UpdatedAt = time.Now()
}
