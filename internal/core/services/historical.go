package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
	"feature-store-service/internal/metrics"
)

// EventTimestampColumn is the name of the timestamp column in
// entity dataframes and generated datasets
const EventTimestampColumn = "event_timestamp"

// HistoricalService builds point-in-time correct training datasets by
// joining entity rows against offline feature data. For every entity
// row, each feature takes the value it had at the row's event
// timestamp: the latest observation at or before it, and within the
// view's TTL. Later observations never leak backwards in time.
type HistoricalService struct {
	registry *RegistryService
	offline  output.OfflineStore
	metrics  *metrics.Metrics
}

func NewHistoricalService(registry *RegistryService, offline output.OfflineStore, m *metrics.Metrics) *HistoricalService {
	return &HistoricalService{
		registry: registry,
		offline:  offline,
		metrics:  m,
	}
}

// HistoricalRequest describes one dataset build. Features come either
// from explicit "view:feature" refs or from a named feature service.
// Entity rows come either inline or from a SQL query against the
// offline store; every non-timestamp query column becomes part of the
// entity row, so label columns pass through into the dataset.
type HistoricalRequest struct {
	Project         string
	FeatureRefs     []string
	ServiceName     string
	EntityRows      []domain.EntityRow
	EntityQuery     string
	TimestampColumn string
}

// GetHistoricalFeatures produces a training dataset. Columns are the
// entity join keys, passthrough entity columns in sorted order, the
// event timestamp, then one "view__feature" column per requested
// feature in request order.
func (s *HistoricalService) GetHistoricalFeatures(ctx context.Context, req HistoricalRequest) (*domain.TrainingDataset, error) {
	start := time.Now()
	dataset, err := s.getHistoricalFeatures(ctx, req)
	if err != nil {
		s.metrics.RecordHistoricalRetrieval("error", 0, time.Since(start))
		return nil, err
	}
	s.metrics.RecordHistoricalRetrieval("success", len(dataset.Rows), time.Since(start))
	return dataset, nil
}

func (s *HistoricalService) getHistoricalFeatures(ctx context.Context, req HistoricalRequest) (*domain.TrainingDataset, error) {
	// 1. Resolve the requested features
	resolved, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	// 2. Load entity rows
	entityRows, err := s.entityRows(ctx, req)
	if err != nil {
		return nil, err
	}

	// 3. Validate timestamps and find the retrieval window
	var minEvent, maxEvent time.Time
	for i, row := range entityRows {
		if row.EventTimestamp.IsZero() {
			return nil, fmt.Errorf("%w: row %d", domain.ErrMissingEventTime, i)
		}
		if minEvent.IsZero() || row.EventTimestamp.Before(minEvent) {
			minEvent = row.EventTimestamp
		}
		if row.EventTimestamp.After(maxEvent) {
			maxEvent = row.EventTimestamp
		}
	}
	if len(entityRows) == 0 {
		return nil, domain.ErrNoEntityRows
	}

	// 4. Check every join key appears somewhere in the entity rows
	if err := checkJoinKeysPresent(resolved, entityRows); err != nil {
		return nil, err
	}

	// 5. Pull and index offline rows per view
	indexes := make([]entityKeyIndex, len(resolved))
	for i, rv := range resolved {
		idx, err := s.pullAndIndex(ctx, rv, minEvent, maxEvent)
		if err != nil {
			return nil, fmt.Errorf("view %q: %w", rv.View.Name, err)
		}
		indexes[i] = idx
	}

	// 6. Assemble output columns
	joinKeyCols, passthroughCols := entityColumns(resolved, entityRows)
	columns := append([]string{}, joinKeyCols...)
	columns = append(columns, passthroughCols...)
	columns = append(columns, EventTimestampColumn)
	for _, rv := range resolved {
		columns = append(columns, rv.ColumnNames()...)
	}

	// 7. Join each entity row against each view's indexed rows
	dataset := &domain.TrainingDataset{Columns: columns}
	for _, er := range entityRows {
		row := make([]interface{}, 0, len(columns))
		for _, k := range joinKeyCols {
			row = append(row, er.JoinKeyValues[k])
		}
		for _, k := range passthroughCols {
			row = append(row, er.JoinKeyValues[k])
		}
		row = append(row, er.EventTimestamp)

		for i, rv := range resolved {
			values := indexes[i].lookup(rv, er)
			row = append(row, values...)
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	return dataset, nil
}

func (s *HistoricalService) resolve(ctx context.Context, req HistoricalRequest) ([]*ResolvedView, error) {
	if req.ServiceName != "" {
		return s.registry.ResolveService(ctx, req.Project, req.ServiceName)
	}
	return s.registry.ResolveRefs(ctx, req.Project, req.FeatureRefs)
}

func (s *HistoricalService) entityRows(ctx context.Context, req HistoricalRequest) ([]domain.EntityRow, error) {
	if len(req.EntityRows) > 0 {
		return req.EntityRows, nil
	}
	if req.EntityQuery == "" {
		return nil, domain.ErrNoEntityRows
	}
	tsCol := req.TimestampColumn
	if tsCol == "" {
		tsCol = EventTimestampColumn
	}
	rows, err := s.offline.QueryEntityRows(ctx, req.EntityQuery, tsCol)
	if err != nil {
		return nil, fmt.Errorf("entity query: %w", err)
	}
	return rows, nil
}

// pullAndIndex reads the view's source over the retrieval window and
// groups rows by serialized entity key, sorted oldest first. The
// window extends back by the TTL so values observed before the
// earliest entity timestamp can still qualify.
func (s *HistoricalService) pullAndIndex(ctx context.Context, rv *ResolvedView, minEvent, maxEvent time.Time) (entityKeyIndex, error) {
	var start time.Time
	if rv.View.TTL > 0 {
		start = minEvent.Add(-rv.View.TTL)
	}

	rows, err := s.offline.PullRows(ctx, output.PullRequest{
		Source:         rv.Source,
		JoinKeys:       rv.JoinKeys(),
		FeatureColumns: rv.Features,
		Start:          start,
		End:            maxEvent.Add(time.Nanosecond),
	})
	if err != nil {
		return nil, err
	}
	if err := canonicalizeRows(rv, rows); err != nil {
		return nil, err
	}

	idx := make(entityKeyIndex, len(rows))
	joinKeys := rv.JoinKeys()
	for i := range rows {
		key, err := domain.SerializeEntityKey(joinKeys, rows[i].JoinKeyValues)
		if err != nil {
			// source row without a key can never join
			continue
		}
		idx[key] = append(idx[key], rows[i])
	}
	for key := range idx {
		group := idx[key]
		sort.Slice(group, func(a, b int) bool {
			if group[a].EventTimestamp.Equal(group[b].EventTimestamp) {
				return group[a].CreatedTimestamp.Before(group[b].CreatedTimestamp)
			}
			return group[a].EventTimestamp.Before(group[b].EventTimestamp)
		})
	}
	return idx, nil
}

// entityKeyIndex maps serialized entity keys to feature rows sorted by
// (event timestamp, created timestamp) ascending
type entityKeyIndex map[string][]domain.FeatureRow

// lookup finds the feature values for one entity row: the latest
// observation at or before the row's event timestamp, still within
// TTL. Returns one nil per feature when nothing qualifies.
func (idx entityKeyIndex) lookup(rv *ResolvedView, er domain.EntityRow) []interface{} {
	values := make([]interface{}, len(rv.Features))

	keyValues, ok := coerceJoinKeys(rv, er.JoinKeyValues)
	if !ok {
		return values
	}
	key, err := domain.SerializeEntityKey(rv.JoinKeys(), keyValues)
	if err != nil {
		return values
	}

	group := idx[key]
	n := sort.Search(len(group), func(i int) bool {
		return group[i].EventTimestamp.After(er.EventTimestamp)
	})
	if n == 0 {
		return values
	}

	candidate := group[n-1]
	if !rv.View.IsFresh(candidate.EventTimestamp, er.EventTimestamp) {
		return values
	}
	for i, f := range rv.Features {
		values[i] = candidate.Values[f]
	}
	return values
}

// coerceJoinKeys canonicalizes an entity row's join key values using
// the entity type declarations, so int32(5) matches a stored int64(5)
func coerceJoinKeys(rv *ResolvedView, raw map[string]interface{}) (map[string]interface{}, bool) {
	out := make(map[string]interface{}, len(rv.Entities))
	for _, e := range rv.Entities {
		v, present := raw[e.JoinKey]
		if !present || v == nil {
			return nil, false
		}
		coerced, err := e.ValueType.CoerceValue(v)
		if err != nil {
			return nil, false
		}
		out[e.JoinKey] = coerced
	}
	return out, true
}

// canonicalizeRows coerces pulled feature and join key values into
// their canonical representations per the view's declarations
func canonicalizeRows(rv *ResolvedView, rows []domain.FeatureRow) error {
	types := make(map[string]domain.ValueType, len(rv.View.Features))
	for _, f := range rv.View.Features {
		types[f.Name] = f.ValueType
	}

	for i := range rows {
		for _, e := range rv.Entities {
			v, ok := rows[i].JoinKeyValues[e.JoinKey]
			if !ok {
				continue
			}
			coerced, err := e.ValueType.CoerceValue(v)
			if err != nil {
				return fmt.Errorf("join key %q: %w", e.JoinKey, err)
			}
			rows[i].JoinKeyValues[e.JoinKey] = coerced
		}
		for name, v := range rows[i].Values {
			vt, ok := types[name]
			if !ok {
				continue
			}
			coerced, err := vt.CoerceValue(v)
			if err != nil {
				return fmt.Errorf("feature %q: %w", name, err)
			}
			rows[i].Values[name] = coerced
		}
	}
	return nil
}

// checkJoinKeysPresent verifies each required join key appears in at
// least one entity row, catching misnamed columns early
func checkJoinKeysPresent(resolved []*ResolvedView, rows []domain.EntityRow) error {
	required := make(map[string]bool)
	for _, rv := range resolved {
		for _, k := range rv.JoinKeys() {
			required[k] = true
		}
	}
	for key := range required {
		found := false
		for _, row := range rows {
			if _, ok := row.JoinKeyValues[key]; ok {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", domain.ErrMissingJoinKeyValue, key)
		}
	}
	return nil
}

// entityColumns splits entity row columns into join keys (in view
// declaration order, deduplicated) and passthrough columns (sorted)
func entityColumns(resolved []*ResolvedView, rows []domain.EntityRow) ([]string, []string) {
	var joinKeyCols []string
	isJoinKey := make(map[string]bool)
	for _, rv := range resolved {
		for _, k := range rv.JoinKeys() {
			if !isJoinKey[k] {
				isJoinKey[k] = true
				joinKeyCols = append(joinKeyCols, k)
			}
		}
	}

	passthrough := make(map[string]bool)
	for _, row := range rows {
		for k := range row.JoinKeyValues {
			if !isJoinKey[k] {
				passthrough[k] = true
			}
		}
	}
	passthroughCols := make([]string, 0, len(passthrough))
	for k := range passthrough {
		passthroughCols = append(passthroughCols, k)
	}
	sort.Strings(passthroughCols)

	return joinKeyCols, passthroughCols
}
