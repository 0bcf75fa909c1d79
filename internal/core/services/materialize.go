package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
	"feature-store-service/internal/metrics"
)

// MaterializeService loads feature values from the offline store into
// the online store. Only the latest value per entity key in the window
// is written, and the online store skips anything older than what it
// already holds, so re-running a window is safe.
type MaterializeService struct {
	registry *RegistryService
	viewRepo output.FeatureViewRepository
	offline  output.OfflineStore
	online   output.OnlineStore
	metrics  *metrics.Metrics
}

func NewMaterializeService(
	registry *RegistryService,
	viewRepo output.FeatureViewRepository,
	offline output.OfflineStore,
	online output.OnlineStore,
	m *metrics.Metrics,
) *MaterializeService {
	return &MaterializeService{
		registry: registry,
		viewRepo: viewRepo,
		offline:  offline,
		online:   online,
		metrics:  m,
	}
}

// MaterializeResult summarizes one view's materialization
type MaterializeResult struct {
	View        string    `json:"view"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	RowsPulled  int       `json:"rows_pulled"`
	RowsWritten int       `json:"rows_written"`
}

// Progress is called after each view completes, for CLI progress bars
type Progress func(view string, done, total int)

// Materialize writes the window [start, end) for the named views, or
// for every online view in the project when views is empty
func (s *MaterializeService) Materialize(ctx context.Context, project string, views []string, start, end time.Time, progress Progress) ([]MaterializeResult, error) {
	if !end.After(start) {
		return nil, domain.ErrInvalidInterval
	}
	return s.run(ctx, project, views, func(*domain.FeatureView) (time.Time, time.Time) {
		return start, end
	}, progress)
}

// MaterializeIncremental continues each view from where its last
// materialization ended, up to end. Views never materialized start at
// end minus the TTL, or from the beginning of time without one.
func (s *MaterializeService) MaterializeIncremental(ctx context.Context, project string, views []string, end time.Time, progress Progress) ([]MaterializeResult, error) {
	return s.run(ctx, project, views, func(view *domain.FeatureView) (time.Time, time.Time) {
		start := view.MostRecentEnd()
		if start.IsZero() && view.TTL > 0 {
			start = end.Add(-view.TTL)
		}
		return start, end
	}, progress)
}

func (s *MaterializeService) run(
	ctx context.Context,
	project string,
	viewNames []string,
	window func(*domain.FeatureView) (time.Time, time.Time),
	progress Progress,
) ([]MaterializeResult, error) {
	runStart := time.Now()

	views, err := s.selectViews(ctx, project, viewNames)
	if err != nil {
		s.metrics.RecordMaterializeRun("error", time.Since(runStart))
		return nil, err
	}

	results := make([]MaterializeResult, 0, len(views))
	for i, view := range views {
		start, end := window(view)
		if !end.After(start) {
			// already up to date
			if progress != nil {
				progress(view.Name, i+1, len(views))
			}
			results = append(results, MaterializeResult{View: view.Name, Start: start, End: end})
			continue
		}

		result, err := s.materializeView(ctx, project, view, start, end)
		if err != nil {
			s.metrics.RecordMaterializeRun("error", time.Since(runStart))
			return results, fmt.Errorf("materialize view %q: %w", view.Name, err)
		}
		results = append(results, result)

		if progress != nil {
			progress(view.Name, i+1, len(views))
		}
	}

	s.metrics.RecordMaterializeRun("success", time.Since(runStart))
	return results, nil
}

// selectViews returns the named views, or all online views when none
// are named. Named views must be online.
func (s *MaterializeService) selectViews(ctx context.Context, project string, names []string) ([]*domain.FeatureView, error) {
	if len(names) == 0 {
		views, err := s.viewRepo.ListOnline(ctx, project)
		if err != nil {
			return nil, fmt.Errorf("list online views: %w", err)
		}
		return views, nil
	}

	views := make([]*domain.FeatureView, 0, len(names))
	for _, name := range names {
		view, err := s.viewRepo.GetByName(ctx, project, name)
		if err != nil {
			return nil, fmt.Errorf("view %q: %w", name, err)
		}
		if !view.Online {
			return nil, fmt.Errorf("%w: %s", domain.ErrViewNotOnline, name)
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *MaterializeService) materializeView(ctx context.Context, project string, view *domain.FeatureView, start, end time.Time) (MaterializeResult, error) {
	result := MaterializeResult{View: view.Name, Start: start, End: end}

	// 1. Resolve the view with its source and entities
	rv, err := s.registry.resolveView(ctx, project, view.Name, nil)
	if err != nil {
		return result, err
	}

	// 2. Pull the window from the offline store
	rows, err := s.offline.PullRows(ctx, output.PullRequest{
		Source:         rv.Source,
		JoinKeys:       rv.JoinKeys(),
		FeatureColumns: rv.Features,
		Start:          start,
		End:            end,
	})
	if err != nil {
		return result, fmt.Errorf("pull rows: %w", err)
	}
	result.RowsPulled = len(rows)

	if err := canonicalizeRows(rv, rows); err != nil {
		return result, err
	}

	// 3. Reduce to the latest row per entity key
	writes, err := latestPerEntity(rv, rows)
	if err != nil {
		return result, err
	}

	// 4. Write to the online store; rows older than stored data are
	// skipped by the store itself
	written, err := s.online.Write(ctx, project, view.Name, writes)
	if err != nil {
		return result, fmt.Errorf("write online: %w", err)
	}
	result.RowsWritten = written

	// 5. Record the interval so incremental runs resume from here
	view.AddMaterializedInterval(domain.Interval{Start: start, End: end})
	if err := s.viewRepo.Update(ctx, view); err != nil {
		return result, fmt.Errorf("record interval: %w", err)
	}

	s.metrics.RecordMaterializedRows(view.Name, written)
	log.WithFields(log.Fields{
		"view":    view.Name,
		"pulled":  result.RowsPulled,
		"written": result.RowsWritten,
		"start":   start,
		"end":     end,
	}).Info("materialized feature view")

	return result, nil
}

// latestPerEntity keeps, per entity key, the row with the greatest
// event timestamp, breaking ties by created timestamp
func latestPerEntity(rv *ResolvedView, rows []domain.FeatureRow) ([]output.OnlineWrite, error) {
	joinKeys := rv.JoinKeys()
	latest := make(map[string]domain.FeatureRow)
	for _, row := range rows {
		key, err := domain.SerializeEntityKey(joinKeys, row.JoinKeyValues)
		if err != nil {
			return nil, err
		}
		prev, ok := latest[key]
		if !ok || row.EventTimestamp.After(prev.EventTimestamp) ||
			(row.EventTimestamp.Equal(prev.EventTimestamp) && row.CreatedTimestamp.After(prev.CreatedTimestamp)) {
			latest[key] = row
		}
	}

	keys := make([]string, 0, len(latest))
	for key := range latest {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	writes := make([]output.OnlineWrite, 0, len(latest))
	for _, key := range keys {
		row := latest[key]
		values := make(map[string]interface{}, len(rv.Features))
		for _, f := range rv.Features {
			values[f] = row.Values[f]
		}
		writes = append(writes, output.OnlineWrite{
			EntityKey:      key,
			EventTimestamp: row.EventTimestamp,
			Values:         values,
		})
	}
	return writes, nil
}
