package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Feature is a single named, typed column produced by a feature view
type Feature struct {
	Name        string    `json:"name"`
	ValueType   ValueType `json:"value_type"`
	Description string    `json:"description,omitempty"`
}

// Interval is a half-open [Start, End) time range
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval creates a validated interval
func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether two intervals overlap or touch
func (iv Interval) Overlaps(other Interval) bool {
	return !iv.End.Before(other.Start) && !other.End.Before(iv.Start)
}

// FeatureView groups features computed from one data source and keyed
// by one or more entities. TTL bounds how far back a feature value may
// be joined or served; zero means no limit. Views with Online set are
// eligible for materialization into the online store.
type FeatureView struct {
	ID          uuid.UUID         `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Project     string            `json:"project"`
	Name        string            `json:"name"`
	Entities    []string          `json:"entities"`
	Features    []Feature         `json:"features"`
	SourceName  string            `json:"source_name"`
	TTL         time.Duration     `json:"ttl"`
	Online      bool              `json:"online"`
	Description string            `json:"description"`
	Labels      map[string]string `json:"labels"`

	// Intervals already written to the online store, merged and sorted
	MaterializedIntervals []Interval `json:"materialized_intervals"`
}

// NewFeatureView creates a new FeatureView with validation
func NewFeatureView(
	project, name string,
	entities []string,
	features []Feature,
	sourceName string,
	ttl time.Duration,
	online bool,
) (*FeatureView, error) {
	if name == "" {
		return nil, ErrInvalidViewName
	}
	if len(entities) == 0 {
		return nil, ErrViewWithoutEntities
	}
	if len(features) == 0 {
		return nil, ErrViewWithoutFeatures
	}
	if sourceName == "" {
		return nil, ErrMissingSourceRef
	}
	if project == "" {
		project = DefaultProject
	}
	for i, f := range features {
		if f.Name == "" {
			return nil, ErrInvalidFeatureName
		}
		if f.ValueType == "" {
			features[i].ValueType = ValueTypeString
		} else if !f.ValueType.IsValid() {
			return nil, ErrUnknownValueType
		}
	}

	now := time.Now()
	return &FeatureView{
		ID:         uuid.New(),
		CreatedAt:  now,
		UpdatedAt:  now,
		Project:    project,
		Name:       name,
		Entities:   entities,
		Features:   features,
		SourceName: sourceName,
		TTL:        ttl,
		Online:     online,
		Labels:     make(map[string]string),
	}, nil
}

// Feature returns the named feature declared by this view
func (v *FeatureView) Feature(name string) (Feature, error) {
	for _, f := range v.Features {
		if f.Name == name {
			return f, nil
		}
	}
	return Feature{}, ErrFeatureNotFound
}

// FeatureNames returns the declared feature names in order
func (v *FeatureView) FeatureNames() []string {
	names := make([]string, len(v.Features))
	for i, f := range v.Features {
		names[i] = f.Name
	}
	return names
}

// IsFresh reports whether a value observed at eventTime is still
// within the view's TTL as of asOf. A zero TTL never expires.
func (v *FeatureView) IsFresh(eventTime, asOf time.Time) bool {
	if v.TTL <= 0 {
		return true
	}
	return asOf.Sub(eventTime) <= v.TTL
}

// AddMaterializedInterval records a newly materialized range, merging
// it with any overlapping or touching intervals already recorded.
func (v *FeatureView) AddMaterializedInterval(iv Interval) {
	merged := append([]Interval{}, v.MaterializedIntervals...)
	merged = append(merged, iv)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Start.Before(merged[j].Start) })

	out := merged[:1]
	for _, next := range merged[1:] {
		last := &out[len(out)-1]
		if last.Overlaps(next) {
			if next.End.After(last.End) {
				last.End = next.End
			}
			continue
		}
		out = append(out, next)
	}
	v.MaterializedIntervals = out
	v.UpdatedAt = time.Now()
}

// MostRecentEnd returns the latest materialized end time, or the zero
// time when the view has never been materialized.
func (v *FeatureView) MostRecentEnd() time.Time {
	var end time.Time
	for _, iv := range v.MaterializedIntervals {
		if iv.End.After(end) {
			end = iv.End
		}
	}
	return end
}

// Update updates the mutable view fields
func (v *FeatureView) Update(description *string, ttl *time.Duration, online *bool, labels map[string]string) {
	if description != nil {
		v.Description = *description
	}
	if ttl != nil {
		v.TTL = *ttl
	}
	if online != nil {
		v.Online = *online
	}
	if labels != nil {
		v.Labels = labels
	}
	v.UpdatedAt = time.Now()
}
