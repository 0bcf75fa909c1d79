package services

import (
	"context"
	"fmt"
	"time"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
	"feature-store-service/internal/metrics"
)

// Field statuses reported per feature value
const (
	FieldStatusPresent = "PRESENT"
	FieldStatusMissing = "MISSING"
	FieldStatusStale   = "STALE"
)

// OnlineService serves the latest feature values from the online store.
// Values past their view's TTL are still returned but flagged STALE so
// callers can decide whether to trust them.
type OnlineService struct {
	registry *RegistryService
	store    output.OnlineStore
	metrics  *metrics.Metrics
}

func NewOnlineService(registry *RegistryService, store output.OnlineStore, m *metrics.Metrics) *OnlineService {
	return &OnlineService{
		registry: registry,
		store:    store,
		metrics:  m,
	}
}

// OnlineRequest asks for features for a batch of entities. Each entity
// row must carry a value for every join key of every requested view.
type OnlineRequest struct {
	Project     string
	FeatureRefs []string
	ServiceName string
	EntityRows  []map[string]interface{}
}

// OnlineVector is the feature vector for one entity row. Values and
// Statuses are keyed by qualified "view__feature" column names.
type OnlineVector struct {
	EntityKey map[string]interface{} `json:"entity_key"`
	Values    map[string]interface{} `json:"values"`
	Statuses  map[string]string      `json:"statuses"`
}

// OnlineResult is the response for one online retrieval
type OnlineResult struct {
	FeatureColumns []string       `json:"feature_columns"`
	Rows           []OnlineVector `json:"rows"`
}

// GetOnlineFeatures reads the latest values for each entity row
func (s *OnlineService) GetOnlineFeatures(ctx context.Context, req OnlineRequest) (*OnlineResult, error) {
	// 1. Resolve the requested features
	var resolved []*ResolvedView
	var err error
	if req.ServiceName != "" {
		resolved, err = s.registry.ResolveService(ctx, req.Project, req.ServiceName)
	} else {
		resolved, err = s.registry.ResolveRefs(ctx, req.Project, req.FeatureRefs)
	}
	if err != nil {
		return nil, err
	}
	if len(req.EntityRows) == 0 {
		return nil, domain.ErrNoEntityRows
	}

	// 2. Online retrieval only works against materializable views
	for _, rv := range resolved {
		if !rv.View.Online {
			return nil, fmt.Errorf("%w: %s", domain.ErrViewNotOnline, rv.View.Name)
		}
	}

	// 3. Prepare the result skeleton
	result := &OnlineResult{Rows: make([]OnlineVector, len(req.EntityRows))}
	for _, rv := range resolved {
		result.FeatureColumns = append(result.FeatureColumns, rv.ColumnNames()...)
	}
	for i := range result.Rows {
		result.Rows[i] = OnlineVector{
			EntityKey: make(map[string]interface{}),
			Values:    make(map[string]interface{}),
			Statuses:  make(map[string]string),
		}
	}

	// 4. Read each view and merge into the vectors
	now := time.Now()
	for _, rv := range resolved {
		if err := s.readView(ctx, rv, req, result, now); err != nil {
			return nil, fmt.Errorf("view %q: %w", rv.View.Name, err)
		}
	}
	return result, nil
}

func (s *OnlineService) readView(ctx context.Context, rv *ResolvedView, req OnlineRequest, result *OnlineResult, now time.Time) error {
	start := time.Now()

	// Serialize one key per entity row, coercing join key values so
	// they match what materialization stored
	keys := make([]string, len(req.EntityRows))
	for i, raw := range req.EntityRows {
		coerced, ok := coerceJoinKeys(rv, raw)
		if !ok {
			return fmt.Errorf("%w: row %d", domain.ErrMissingJoinKeyValue, i)
		}
		key, err := domain.SerializeEntityKey(rv.JoinKeys(), coerced)
		if err != nil {
			return err
		}
		keys[i] = key
		for k, v := range coerced {
			result.Rows[i].EntityKey[k] = v
		}
	}

	rows, err := s.store.Read(ctx, req.Project, rv.View.Name, keys, rv.Features)
	if err != nil {
		return err
	}

	types := make(map[string]domain.ValueType, len(rv.View.Features))
	for _, f := range rv.View.Features {
		types[f.Name] = f.ValueType
	}

	missing, stale := 0, 0
	columns := rv.ColumnNames()
	for i, row := range rows {
		for j, feature := range rv.Features {
			col := columns[j]
			if !row.Found || row.Values[feature] == nil {
				result.Rows[i].Values[col] = nil
				result.Rows[i].Statuses[col] = FieldStatusMissing
				missing++
				continue
			}

			// stored values come back as decoded JSON, so numbers need
			// to be re-canonicalized against the declared type
			value := row.Values[feature]
			if vt, ok := types[feature]; ok {
				coerced, err := vt.CoerceValue(value)
				if err != nil {
					return fmt.Errorf("feature %q: %w", feature, err)
				}
				value = coerced
			}

			result.Rows[i].Values[col] = value
			if !rv.View.IsFresh(row.EventTimestamp, now) {
				result.Rows[i].Statuses[col] = FieldStatusStale
				stale++
			} else {
				result.Rows[i].Statuses[col] = FieldStatusPresent
			}
		}
	}

	s.metrics.RecordOnlineRead(rv.View.Name, missing, stale, time.Since(start))
	return nil
}
