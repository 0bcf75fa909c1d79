package ports

import (
	"context"
	"time"

	"feature-store-service/internal/core/domain"
)

// PullRequest describes one offline source scan. FeatureColumns are the
// feature names declared by the view; the adapter resolves them to
// physical columns through the source's field mapping.
type PullRequest struct {
	Source         *domain.DataSource
	JoinKeys       []string
	FeatureColumns []string
	Start          time.Time
	End            time.Time
}

// OfflineStore reads historical feature data from the warehouse
type OfflineStore interface {
	// PullRows reads rows with event timestamps in [Start, End),
	// returning canonicalized values keyed by feature name
	PullRows(ctx context.Context, req PullRequest) ([]domain.FeatureRow, error)

	// QueryEntityRows runs an entity dataframe query. Every column
	// except timestampColumn becomes a join key value.
	QueryEntityRows(ctx context.Context, query, timestampColumn string) ([]domain.EntityRow, error)
}
