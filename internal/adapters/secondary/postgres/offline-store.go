package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
)

type offlineStore struct {
	pool *pgxpool.Pool
}

// NewOfflineStore creates an OfflineStore that reads historical feature
// data from warehouse tables over the given pool
func NewOfflineStore(pool *pgxpool.Pool) output.OfflineStore {
	return &offlineStore{pool: pool}
}

func (s *offlineStore) PullRows(ctx context.Context, req output.PullRequest) ([]domain.FeatureRow, error) {
	eventCol := req.Source.EventTimestampColumn
	createdCol := req.Source.CreatedTimestampColumn

	cols := make([]string, 0, len(req.JoinKeys)+len(req.FeatureColumns)+2)
	for _, key := range req.JoinKeys {
		cols = append(cols, selectExpr(req.Source, key))
	}
	cols = append(cols, eventCol)
	if createdCol != "" {
		cols = append(cols, createdCol)
	}
	for _, feature := range req.FeatureColumns {
		cols = append(cols, selectExpr(req.Source, feature))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s >= $1 AND %s < $2
	`, strings.Join(cols, ", "), req.Source.FromExpression(), eventCol, eventCol)

	rows, err := s.pool.Query(ctx, query, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("pull offline rows: %w", err)
	}
	defer rows.Close()

	var out []domain.FeatureRow
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read offline row: %w", err)
		}

		// Rows without a join key value cannot be matched to any entity
		keys := make(map[string]interface{}, len(req.JoinKeys))
		for i, k := range req.JoinKeys {
			if vals[i] == nil {
				keys = nil
				break
			}
			keys[k] = canonicalValue(vals[i])
		}
		if keys == nil {
			continue
		}

		pos := len(req.JoinKeys)
		rawEvent := vals[pos]
		pos++
		if rawEvent == nil {
			continue
		}
		event, ok := rawEvent.(time.Time)
		if !ok {
			return nil, fmt.Errorf("column %s is not a timestamp", eventCol)
		}

		var created time.Time
		if createdCol != "" {
			if t, ok := vals[pos].(time.Time); ok {
				created = t
			}
			pos++
		}

		values := make(map[string]interface{}, len(req.FeatureColumns))
		for i, feature := range req.FeatureColumns {
			if v := vals[pos+i]; v != nil {
				values[feature] = canonicalValue(v)
			}
		}

		out = append(out, domain.FeatureRow{
			JoinKeyValues:    keys,
			EventTimestamp:   event,
			CreatedTimestamp: created,
			Values:           values,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offline rows: %w", err)
	}

	return out, nil
}

func (s *offlineStore) QueryEntityRows(ctx context.Context, query, timestampColumn string) ([]domain.EntityRow, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run entity query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	tsIdx := -1
	for i, fd := range fields {
		if fd.Name == timestampColumn {
			tsIdx = i
			break
		}
	}
	if tsIdx < 0 {
		return nil, fmt.Errorf("entity query result has no %q column", timestampColumn)
	}

	var out []domain.EntityRow
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read entity row: %w", err)
		}
		event, ok := vals[tsIdx].(time.Time)
		if !ok {
			return nil, fmt.Errorf("column %s is not a timestamp", timestampColumn)
		}

		keys := make(map[string]interface{}, len(fields)-1)
		for i, fd := range fields {
			if i == tsIdx || vals[i] == nil {
				continue
			}
			keys[fd.Name] = canonicalValue(vals[i])
		}

		out = append(out, domain.EntityRow{JoinKeyValues: keys, EventTimestamp: event})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity rows: %w", err)
	}

	return out, nil
}

// selectExpr resolves a feature or join key to its physical column,
// aliasing it back to the logical name when the source maps it
func selectExpr(source *domain.DataSource, name string) string {
	col := source.SourceColumn(name)
	if col != name {
		return fmt.Sprintf("%s AS %s", col, name)
	}
	return name
}

// canonicalValue narrows driver-specific value types to the int64 and
// float64 forms used everywhere else in the store
func canonicalValue(v interface{}) interface{} {
	switch val := v.(type) {
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case int:
		return int64(val)
	case float32:
		return float64(val)
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err == nil && f.Valid {
			return f.Float64
		}
		return v
	default:
		return v
	}
}
