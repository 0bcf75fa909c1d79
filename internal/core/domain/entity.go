package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultProject is used when no project name is supplied.
const DefaultProject = "default"

// Entity represents a business object that features are keyed by,
// e.g. a driver or a customer. The join key is the column name used
// to match entity rows against feature rows.
type Entity struct {
	ID          uuid.UUID         `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Project     string            `json:"project"`
	Name        string            `json:"name"`
	JoinKey     string            `json:"join_key"`
	ValueType   ValueType         `json:"value_type"`
	Description string            `json:"description"`
	Labels      map[string]string `json:"labels"`
}

// NewEntity creates a new Entity with validation
func NewEntity(project, name, joinKey string, valueType ValueType, description string) (*Entity, error) {
	if name == "" {
		return nil, ErrInvalidEntityName
	}
	if joinKey == "" {
		return nil, ErrInvalidJoinKey
	}
	if project == "" {
		project = DefaultProject
	}
	if valueType == "" {
		valueType = ValueTypeString
	}
	if !valueType.IsValid() {
		return nil, ErrUnknownValueType
	}

	now := time.Now()
	return &Entity{
		ID:          uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Project:     project,
		Name:        name,
		JoinKey:     joinKey,
		ValueType:   valueType,
		Description: description,
		Labels:      make(map[string]string),
	}, nil
}

// Update updates the mutable entity fields
func (e *Entity) Update(description *string, labels map[string]string) {
	if description != nil {
		e.Description = *description
	}
	if labels != nil {
		e.Labels = labels
	}
	e.UpdatedAt = time.Now()
}
