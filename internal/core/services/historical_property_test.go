package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"pgregory.net/rapid"

	"feature-store-service/internal/core/domain"
)

// TestHistoricalService_JoinMatchesBruteForce drives the point-in-time
// join with generated observation sets and checks every cell against a
// brute-force scan over all observations. The winning observation is
// the latest at or before the entity timestamp and within TTL, with
// the created timestamp breaking ties; future observations must never
// appear in the dataset.
func TestHistoricalService_JoinMatchesBruteForce(t *testing.T) {
	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	rapid.Check(t, func(rt *rapid.T) {
		ttl := time.Duration(rapid.IntRange(0, 48).Draw(rt, "ttl_hours")) * time.Hour

		// Observations cluster on a handful of driver ids so entity
		// rows hit crowded, single-row and empty groups alike.
		rowCount := rapid.IntRange(0, 30).Draw(rt, "row_count")
		featureRows := make([]domain.FeatureRow, rowCount)
		for i := range featureRows {
			event := base.Add(time.Duration(rapid.IntRange(-96, 24).Draw(rt, "event_offset_h")) * time.Hour)
			created := base.Add(time.Duration(rapid.IntRange(-96, 24).Draw(rt, "created_offset_m")) * time.Minute)
			// Values derive from the timestamps, so observations with
			// identical stamps are interchangeable and their internal
			// ordering cannot flip the expected result.
			featureRows[i] = domain.FeatureRow{
				JoinKeyValues:    map[string]interface{}{"driver_id": int64(rapid.IntRange(1, 4).Draw(rt, "driver_id"))},
				EventTimestamp:   event,
				CreatedTimestamp: created,
				Values: map[string]interface{}{
					"trips":  event.Unix() + created.Unix(),
					"rating": float64(event.Unix() % 100000),
				},
			}
		}

		entityCount := rapid.IntRange(1, 8).Draw(rt, "entity_count")
		entityRows := make([]domain.EntityRow, entityCount)
		for i := range entityRows {
			entityRows[i] = domain.EntityRow{
				JoinKeyValues:  map[string]interface{}{"driver_id": int64(rapid.IntRange(1, 4).Draw(rt, "entity_driver_id"))},
				EventTimestamp: base.Add(time.Duration(rapid.IntRange(-72, 24).Draw(rt, "entity_offset_h")) * time.Hour),
			}
		}

		svc, offline := historicalFixture(t, ttl)
		offline.On("PullRows", mock.Anything, mock.Anything).Return(featureRows, nil)

		dataset, err := svc.GetHistoricalFeatures(context.Background(), HistoricalRequest{
			Project:     "default",
			FeatureRefs: []string{"driver_stats:trips", "driver_stats:rating"},
			EntityRows:  entityRows,
		})
		if err != nil {
			rt.Fatalf("join failed: %v", err)
		}
		if len(dataset.Rows) != entityCount {
			rt.Fatalf("got %d rows, want %d", len(dataset.Rows), entityCount)
		}

		for i, er := range entityRows {
			wantTrips, wantRating := bruteForceLookup(featureRows, er, ttl)
			row := dataset.Rows[i]
			if row[2] != wantTrips || row[3] != wantRating {
				rt.Fatalf("row %d (driver %v at %s): got (%v, %v), want (%v, %v)",
					i, er.JoinKeyValues["driver_id"], er.EventTimestamp,
					row[2], row[3], wantTrips, wantRating)
			}
		}
	})
}

// bruteForceLookup scans every observation instead of using the sorted
// index. Observations after the entity timestamp or older than the TTL
// are out; among the rest the latest event timestamp wins and the
// created timestamp breaks ties.
func bruteForceLookup(rows []domain.FeatureRow, er domain.EntityRow, ttl time.Duration) (interface{}, interface{}) {
	var best *domain.FeatureRow
	for i := range rows {
		r := &rows[i]
		if r.JoinKeyValues["driver_id"] != er.JoinKeyValues["driver_id"] {
			continue
		}
		if r.EventTimestamp.After(er.EventTimestamp) {
			continue
		}
		if ttl > 0 && er.EventTimestamp.Sub(r.EventTimestamp) > ttl {
			continue
		}
		if best == nil ||
			r.EventTimestamp.After(best.EventTimestamp) ||
			(r.EventTimestamp.Equal(best.EventTimestamp) && r.CreatedTimestamp.After(best.CreatedTimestamp)) {
			best = r
		}
	}
	if best == nil {
		return nil, nil
	}
	return best.Values["trips"], best.Values["rating"]
}
