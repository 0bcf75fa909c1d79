package ports

import (
	"context"
	"time"

	"feature-store-service/internal/core/domain"
)

// OnlineWrite is one materialized row destined for the online store
type OnlineWrite struct {
	EntityKey      string
	EventTimestamp time.Time
	Values         map[string]interface{}
}

// OnlineStore holds the latest feature values per entity key for
// low-latency reads. Writes carry event timestamps so replayed or
// out-of-order materializations never overwrite fresher data.
type OnlineStore interface {
	// Write upserts rows for one view, skipping rows older than what is
	// already stored. Returns the number of rows actually written.
	Write(ctx context.Context, project, view string, rows []OnlineWrite) (int, error)

	// Read fetches the named features for each entity key, preserving
	// input order. Missing keys yield rows with Found=false.
	Read(ctx context.Context, project, view string, entityKeys []string, features []string) ([]domain.OnlineRow, error)

	// Purge removes all stored rows for a view
	Purge(ctx context.Context, project, view string) error
}
