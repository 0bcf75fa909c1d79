package domain

import (
	"time"

	"github.com/google/uuid"
)

// SourceType distinguishes table-backed sources from query-backed ones
type SourceType string

const (
	SourceTypeTable SourceType = "TABLE"
	SourceTypeQuery SourceType = "QUERY"
)

// DataSource describes where the raw feature data for a view lives.
// Exactly one of TableRef or Query is set. The event timestamp column
// orders rows in time; the optional created timestamp column breaks
// ties between rows with the same event timestamp.
type DataSource struct {
	ID                     uuid.UUID         `json:"id"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
	Project                string            `json:"project"`
	Name                   string            `json:"name"`
	TableRef               string            `json:"table_ref"`
	Query                  string            `json:"query"`
	EventTimestampColumn   string            `json:"event_timestamp_column"`
	CreatedTimestampColumn string            `json:"created_timestamp_column"`
	FieldMapping           map[string]string `json:"field_mapping"`
	DatePartitionColumn    string            `json:"date_partition_column"`
	Description            string            `json:"description"`
	Labels                 map[string]string `json:"labels"`
}

// NewDataSource creates a new DataSource with validation
func NewDataSource(project, name, tableRef, query, eventColumn string) (*DataSource, error) {
	if name == "" {
		return nil, ErrInvalidSourceName
	}
	if tableRef == "" && query == "" {
		return nil, ErrMissingTableOrQuery
	}
	if eventColumn == "" {
		return nil, ErrMissingEventColumn
	}
	if project == "" {
		project = DefaultProject
	}

	now := time.Now()
	return &DataSource{
		ID:                   uuid.New(),
		CreatedAt:            now,
		UpdatedAt:            now,
		Project:              project,
		Name:                 name,
		TableRef:             tableRef,
		Query:                query,
		EventTimestampColumn: eventColumn,
		FieldMapping:         make(map[string]string),
		Labels:               make(map[string]string),
	}, nil
}

// Type returns TABLE when the source reads a table, QUERY otherwise
func (s *DataSource) Type() SourceType {
	if s.TableRef != "" {
		return SourceTypeTable
	}
	return SourceTypeQuery
}

// FromExpression returns the SQL FROM clause target for this source
func (s *DataSource) FromExpression() string {
	if s.TableRef != "" {
		return s.TableRef
	}
	return "(" + s.Query + ") AS src"
}

// MappedName translates a source column name through the field mapping.
// Columns without a mapping keep their original name.
func (s *DataSource) MappedName(column string) string {
	if mapped, ok := s.FieldMapping[column]; ok {
		return mapped
	}
	return column
}

// SourceColumn is the inverse of MappedName: given a feature name it
// returns the column to select from the source.
func (s *DataSource) SourceColumn(feature string) string {
	for col, mapped := range s.FieldMapping {
		if mapped == feature {
			return col
		}
	}
	return feature
}

// Update updates the mutable source fields
func (s *DataSource) Update(description *string, fieldMapping, labels map[string]string) {
	if description != nil {
		s.Description = *description
	}
	if fieldMapping != nil {
		s.FieldMapping = fieldMapping
	}
	if labels != nil {
		s.Labels = labels
	}
	s.UpdatedAt = time.Now()
}
