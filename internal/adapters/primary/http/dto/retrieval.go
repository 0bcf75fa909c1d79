package dto

import (
	"time"

	"feature-store-service/internal/core/domain"
)

// EntityRowDTO is one row of the entity dataframe for historical
// retrieval
type EntityRowDTO struct {
	JoinKeys       map[string]interface{} `json:"join_keys" binding:"required"`
	EventTimestamp time.Time              `json:"event_timestamp" binding:"required"`
}

func (r EntityRowDTO) ToDomain() domain.EntityRow {
	return domain.EntityRow{
		JoinKeyValues:  r.JoinKeys,
		EventTimestamp: r.EventTimestamp,
	}
}

func ToEntityRows(rows []EntityRowDTO) []domain.EntityRow {
	out := make([]domain.EntityRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToDomain())
	}
	return out
}

// HistoricalFeaturesRequest asks for a point-in-time correct dataset.
// Features come either as "view:feature" references or through a
// feature service name; entity rows either inline or from a SQL query
// against the offline store.
type HistoricalFeaturesRequest struct {
	Project         string         `json:"project"`
	Features        []string       `json:"features"`
	Service         string         `json:"service"`
	EntityRows      []EntityRowDTO `json:"entity_rows"`
	EntityQuery     string         `json:"entity_query"`
	TimestampColumn string         `json:"timestamp_column"`
}

type HistoricalFeaturesResponse struct {
	Columns  []string        `json:"columns"`
	Rows     [][]interface{} `json:"rows"`
	RowCount int             `json:"row_count"`
}

// OnlineFeaturesRequest asks for the latest feature values for a
// batch of entities
type OnlineFeaturesRequest struct {
	Project    string                   `json:"project"`
	Features   []string                 `json:"features"`
	Service    string                   `json:"service"`
	EntityRows []map[string]interface{} `json:"entity_rows" binding:"required"`
}

// MaterializeRequest drives one materialization window
type MaterializeRequest struct {
	Project string     `json:"project"`
	Views   []string   `json:"views"`
	Start   *time.Time `json:"start"`
	End     *time.Time `json:"end"`
}
