package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
	"feature-store-service/internal/testutil"
)

// historicalFixture wires a registry holding one driver_stats view
// (trips INT64, rating FLOAT64, TTL 24h) over a mocked offline store.
func historicalFixture(t *testing.T, ttl time.Duration) (*HistoricalService, *testutil.MockOfflineStore) {
	t.Helper()
	entityRepo := new(testutil.MockEntityRepo)
	sourceRepo := new(testutil.MockDataSourceRepo)
	viewRepo := new(testutil.MockFeatureViewRepo)
	serviceRepo := new(testutil.MockFeatureServiceRepo)
	registry := NewRegistryService(entityRepo, sourceRepo, viewRepo, serviceRepo)

	entity := testEntity(t, "driver", "driver_id")
	source := testSource(t, "driver_source", "warehouse.driver_stats")
	view, err := domain.NewFeatureView("default", "driver_stats", []string{"driver"},
		[]domain.Feature{
			{Name: "trips", ValueType: domain.ValueTypeInt64},
			{Name: "rating", ValueType: domain.ValueTypeFloat64},
		}, "driver_source", ttl, true)
	assert.NoError(t, err)

	entityRepo.On("GetByName", mock.Anything, "default", "driver").Return(entity, nil)
	sourceRepo.On("GetByName", mock.Anything, "default", "driver_source").Return(source, nil)
	viewRepo.On("GetByName", mock.Anything, "default", "driver_stats").Return(view, nil)

	offline := new(testutil.MockOfflineStore)
	return NewHistoricalService(registry, offline, nil), offline
}

func featureRow(driverID int64, event time.Time, trips int64, rating float64) domain.FeatureRow {
	return domain.FeatureRow{
		JoinKeyValues:  map[string]interface{}{"driver_id": driverID},
		EventTimestamp: event,
		Values:         map[string]interface{}{"trips": trips, "rating": rating},
	}
}

func TestHistoricalService_PointInTimeJoin(t *testing.T) {
	svc, offline := historicalFixture(t, 24*time.Hour)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	offline.On("PullRows", mock.Anything, mock.AnythingOfType("ports.PullRequest")).Return([]domain.FeatureRow{
		featureRow(1001, asOf.Add(-2*time.Hour), 10, 4.5),
		featureRow(1001, asOf.Add(-1*time.Hour), 12, 4.6),
		featureRow(1001, asOf.Add(1*time.Hour), 99, 1.0),
	}, nil)

	dataset, err := svc.GetHistoricalFeatures(context.Background(), HistoricalRequest{
		Project:     "default",
		FeatureRefs: []string{"driver_stats:trips", "driver_stats:rating"},
		EntityRows: []domain.EntityRow{
			{JoinKeyValues: map[string]interface{}{"driver_id": int64(1001), "label": int64(1)}, EventTimestamp: asOf},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"driver_id", "label", "event_timestamp", "driver_stats__trips", "driver_stats__rating"}, dataset.Columns)
	assert.Len(t, dataset.Rows, 1)

	// latest observation at or before asOf wins; the future row never leaks
	row := dataset.Rows[0]
	assert.Equal(t, int64(1001), row[0])
	assert.Equal(t, int64(1), row[1])
	assert.Equal(t, int64(12), row[3])
	assert.Equal(t, 4.6, row[4])
}

func TestHistoricalService_ExactTimestampMatches(t *testing.T) {
	svc, offline := historicalFixture(t, 24*time.Hour)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	offline.On("PullRows", mock.Anything, mock.Anything).Return([]domain.FeatureRow{
		featureRow(1001, asOf, 7, 3.9),
	}, nil)

	dataset, err := svc.GetHistoricalFeatures(context.Background(), HistoricalRequest{
		Project:     "default",
		FeatureRefs: []string{"driver_stats:trips"},
		EntityRows: []domain.EntityRow{
			{JoinKeyValues: map[string]interface{}{"driver_id": int64(1001)}, EventTimestamp: asOf},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(7), dataset.Rows[0][2])
}

func TestHistoricalService_TTLExpiry(t *testing.T) {
	svc, offline := historicalFixture(t, 1*time.Hour)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	offline.On("PullRows", mock.Anything, mock.Anything).Return([]domain.FeatureRow{
		featureRow(1001, asOf.Add(-2*time.Hour), 10, 4.5),
	}, nil)

	dataset, err := svc.GetHistoricalFeatures(context.Background(), HistoricalRequest{
		Project:     "default",
		FeatureRefs: []string{"driver_stats:trips", "driver_stats:rating"},
		EntityRows: []domain.EntityRow{
			{JoinKeyValues: map[string]interface{}{"driver_id": int64(1001)}, EventTimestamp: asOf},
		},
	})
	assert.NoError(t, err)
	assert.Nil(t, dataset.Rows[0][2])
	assert.Nil(t, dataset.Rows[0][3])
}

func TestHistoricalService_CreatedTimestampBreaksTies(t *testing.T) {
	svc, offline := historicalFixture(t, 24*time.Hour)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	event := asOf.Add(-1 * time.Hour)
	older := featureRow(1001, event, 5, 4.0)
	older.CreatedTimestamp = event.Add(1 * time.Minute)
	newer := featureRow(1001, event, 6, 4.1)
	newer.CreatedTimestamp = event.Add(5 * time.Minute)

	offline.On("PullRows", mock.Anything, mock.Anything).Return([]domain.FeatureRow{newer, older}, nil)

	dataset, err := svc.GetHistoricalFeatures(context.Background(), HistoricalRequest{
		Project:     "default",
		FeatureRefs: []string{"driver_stats:trips"},
		EntityRows: []domain.EntityRow{
			{JoinKeyValues: map[string]interface{}{"driver_id": int64(1001)}, EventTimestamp: asOf},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(6), dataset.Rows[0][2])
}

func TestHistoricalService_UnknownEntityYieldsNulls(t *testing.T) {
	svc, offline := historicalFixture(t, 24*time.Hour)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	offline.On("PullRows", mock.Anything, mock.Anything).Return([]domain.FeatureRow{
		featureRow(1001, asOf.Add(-1*time.Hour), 12, 4.6),
	}, nil)

	dataset, err := svc.GetHistoricalFeatures(context.Background(), HistoricalRequest{
		Project:     "default",
		FeatureRefs: []string{"driver_stats:trips"},
		EntityRows: []domain.EntityRow{
			{JoinKeyValues: map[string]interface{}{"driver_id": int64(1001)}, EventTimestamp: asOf},
			{JoinKeyValues: map[string]interface{}{"driver_id": int64(9999)}, EventTimestamp: asOf},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(12), dataset.Rows[0][2])
	assert.Nil(t, dataset.Rows[1][2])
}

func TestHistoricalService_JoinKeyCoercion(t *testing.T) {
	svc, offline := historicalFixture(t, 24*time.Hour)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	offline.On("PullRows", mock.Anything, mock.Anything).Return([]domain.FeatureRow{
		featureRow(1001, asOf.Add(-1*time.Hour), 12, 4.6),
	}, nil)

	// entity row carries a plain int; the entity declares INT64
	dataset, err := svc.GetHistoricalFeatures(context.Background(), HistoricalRequest{
		Project:     "default",
		FeatureRefs: []string{"driver_stats:trips"},
		EntityRows: []domain.EntityRow{
			{JoinKeyValues: map[string]interface{}{"driver_id": 1001}, EventTimestamp: asOf},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(12), dataset.Rows[0][2])
}

func TestHistoricalService_RetrievalWindow(t *testing.T) {
	svc, offline := historicalFixture(t, 24*time.Hour)

	early := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	offline.On("PullRows", mock.Anything, mock.MatchedBy(func(req output.PullRequest) bool {
		return req.Start.Equal(early.Add(-24*time.Hour)) && req.End.Equal(late.Add(time.Nanosecond))
	})).Return([]domain.FeatureRow{}, nil)

	_, err := svc.GetHistoricalFeatures(context.Background(), HistoricalRequest{
		Project:     "default",
		FeatureRefs: []string{"driver_stats:trips"},
		EntityRows: []domain.EntityRow{
			{JoinKeyValues: map[string]interface{}{"driver_id": int64(1)}, EventTimestamp: late},
			{JoinKeyValues: map[string]interface{}{"driver_id": int64(2)}, EventTimestamp: early},
		},
	})
	assert.NoError(t, err)
	offline.AssertExpectations(t)
}

func TestHistoricalService_EntityQuery(t *testing.T) {
	svc, offline := historicalFixture(t, 24*time.Hour)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	query := "SELECT driver_id, label, event_timestamp FROM orders"

	offline.On("QueryEntityRows", mock.Anything, query, "event_timestamp").Return([]domain.EntityRow{
		{JoinKeyValues: map[string]interface{}{"driver_id": int64(1001), "label": int64(0)}, EventTimestamp: asOf},
	}, nil)
	offline.On("PullRows", mock.Anything, mock.Anything).Return([]domain.FeatureRow{
		featureRow(1001, asOf.Add(-1*time.Hour), 12, 4.6),
	}, nil)

	dataset, err := svc.GetHistoricalFeatures(context.Background(), HistoricalRequest{
		Project:     "default",
		FeatureRefs: []string{"driver_stats:trips", "driver_stats:rating"},
		EntityQuery: query,
	})
	assert.NoError(t, err)
	assert.Len(t, dataset.Rows, 1)
	assert.Equal(t, int64(0), dataset.Rows[0][1])
	offline.AssertExpectations(t)
}

func TestHistoricalService_NoEntityRows(t *testing.T) {
	svc, _ := historicalFixture(t, 24*time.Hour)

	_, err := svc.GetHistoricalFeatures(context.Background(), HistoricalRequest{
		Project:     "default",
		FeatureRefs: []string{"driver_stats:trips"},
	})
	assert.ErrorIs(t, err, domain.ErrNoEntityRows)
}

func TestHistoricalService_MissingEventTimestamp(t *testing.T) {
	svc, _ := historicalFixture(t, 24*time.Hour)

	_, err := svc.GetHistoricalFeatures(context.Background(), HistoricalRequest{
		Project:     "default",
		FeatureRefs: []string{"driver_stats:trips"},
		EntityRows: []domain.EntityRow{
			{JoinKeyValues: map[string]interface{}{"driver_id": int64(1001)}},
		},
	})
	assert.ErrorIs(t, err, domain.ErrMissingEventTime)
}

func TestHistoricalService_JoinKeyAbsentEverywhere(t *testing.T) {
	svc, _ := historicalFixture(t, 24*time.Hour)

	_, err := svc.GetHistoricalFeatures(context.Background(), HistoricalRequest{
		Project:     "default",
		FeatureRefs: []string{"driver_stats:trips"},
		EntityRows: []domain.EntityRow{
			{JoinKeyValues: map[string]interface{}{"customer_id": int64(5)}, EventTimestamp: time.Now()},
		},
	})
	assert.ErrorIs(t, err, domain.ErrMissingJoinKeyValue)
}
