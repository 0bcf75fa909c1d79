package featurerepo

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"feature-store-service/internal/core/domain"
)

// File is the declarative feature repository: every entity, data
// source, feature view and feature service of one project, applied
// as a unit.
type File struct {
	Project         string        `yaml:"project"`
	Entities        []EntitySpec  `yaml:"entities"`
	Sources         []SourceSpec  `yaml:"sources"`
	FeatureViews    []ViewSpec    `yaml:"feature_views"`
	FeatureServices []ServiceSpec `yaml:"feature_services"`
}

type EntitySpec struct {
	Name        string            `yaml:"name"`
	JoinKey     string            `yaml:"join_key"`
	ValueType   string            `yaml:"value_type"`
	Description string            `yaml:"description"`
	Labels      map[string]string `yaml:"labels"`
}

type SourceSpec struct {
	Name                   string            `yaml:"name"`
	Table                  string            `yaml:"table"`
	Query                  string            `yaml:"query"`
	EventTimestampColumn   string            `yaml:"event_timestamp_column"`
	CreatedTimestampColumn string            `yaml:"created_timestamp_column"`
	DatePartitionColumn    string            `yaml:"date_partition_column"`
	FieldMapping           map[string]string `yaml:"field_mapping"`
	Description            string            `yaml:"description"`
	Labels                 map[string]string `yaml:"labels"`
}

type ViewSpec struct {
	Name        string            `yaml:"name"`
	Entities    []string          `yaml:"entities"`
	Source      string            `yaml:"source"`
	TTL         string            `yaml:"ttl"`
	Online      *bool             `yaml:"online"`
	Features    []FeatureSpec     `yaml:"features"`
	Description string            `yaml:"description"`
	Labels      map[string]string `yaml:"labels"`
}

type FeatureSpec struct {
	Name        string `yaml:"name"`
	ValueType   string `yaml:"value_type"`
	Description string `yaml:"description"`
}

type ServiceSpec struct {
	Name        string            `yaml:"name"`
	Views       []ProjectionSpec  `yaml:"views"`
	Description string            `yaml:"description"`
	Labels      map[string]string `yaml:"labels"`
}

type ProjectionSpec struct {
	Name     string   `yaml:"name"`
	Features []string `yaml:"features"`
}

// Definitions holds the validated domain objects built from a repo
// file, in apply order
type Definitions struct {
	Project  string
	Entities []*domain.Entity
	Sources  []*domain.DataSource
	Views    []*domain.FeatureView
	Services []*domain.FeatureService
}

// Load reads and parses a feature repository file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read repo file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse repo file %s: %w", path, err)
	}
	return &f, nil
}

// Definitions validates the file and builds domain objects. The
// project argument wins over the file's project field; both empty
// falls back to the default project.
func (f *File) Definitions(project string) (*Definitions, error) {
	if project == "" {
		project = f.Project
	}
	if project == "" {
		project = domain.DefaultProject
	}

	defs := &Definitions{Project: project}

	for _, spec := range f.Entities {
		vt := domain.ValueTypeString
		if spec.ValueType != "" {
			parsed, err := domain.ParseValueType(spec.ValueType)
			if err != nil {
				return nil, fmt.Errorf("entity %s: %w", spec.Name, err)
			}
			vt = parsed
		}
		entity, err := domain.NewEntity(project, spec.Name, spec.JoinKey, vt, spec.Description)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", spec.Name, err)
		}
		if spec.Labels != nil {
			entity.Labels = spec.Labels
		}
		defs.Entities = append(defs.Entities, entity)
	}

	for _, spec := range f.Sources {
		source, err := domain.NewDataSource(project, spec.Name, spec.Table, spec.Query, spec.EventTimestampColumn)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", spec.Name, err)
		}
		source.CreatedTimestampColumn = spec.CreatedTimestampColumn
		source.DatePartitionColumn = spec.DatePartitionColumn
		source.Description = spec.Description
		if spec.FieldMapping != nil {
			source.FieldMapping = spec.FieldMapping
		}
		if spec.Labels != nil {
			source.Labels = spec.Labels
		}
		defs.Sources = append(defs.Sources, source)
	}

	for _, spec := range f.FeatureViews {
		var ttl time.Duration
		if spec.TTL != "" {
			parsed, err := time.ParseDuration(spec.TTL)
			if err != nil {
				return nil, fmt.Errorf("view %s: parse ttl %q: %w", spec.Name, spec.TTL, err)
			}
			ttl = parsed
		}

		features := make([]domain.Feature, 0, len(spec.Features))
		for _, fs := range spec.Features {
			var vt domain.ValueType
			if fs.ValueType != "" {
				parsed, err := domain.ParseValueType(fs.ValueType)
				if err != nil {
					return nil, fmt.Errorf("view %s feature %s: %w", spec.Name, fs.Name, err)
				}
				vt = parsed
			}
			features = append(features, domain.Feature{
				Name:        fs.Name,
				ValueType:   vt,
				Description: fs.Description,
			})
		}

		// Views are online unless the file says otherwise
		online := true
		if spec.Online != nil {
			online = *spec.Online
		}

		view, err := domain.NewFeatureView(project, spec.Name, spec.Entities, features, spec.Source, ttl, online)
		if err != nil {
			return nil, fmt.Errorf("view %s: %w", spec.Name, err)
		}
		view.Description = spec.Description
		if spec.Labels != nil {
			view.Labels = spec.Labels
		}
		defs.Views = append(defs.Views, view)
	}

	for _, spec := range f.FeatureServices {
		projections := make([]domain.FeatureViewProjection, 0, len(spec.Views))
		for _, p := range spec.Views {
			projections = append(projections, domain.FeatureViewProjection{
				ViewName: p.Name,
				Features: p.Features,
			})
		}
		svc, err := domain.NewFeatureService(project, spec.Name, projections)
		if err != nil {
			return nil, fmt.Errorf("feature service %s: %w", spec.Name, err)
		}
		svc.Description = spec.Description
		if spec.Labels != nil {
			svc.Labels = spec.Labels
		}
		defs.Services = append(defs.Services, svc)
	}

	return defs, nil
}
