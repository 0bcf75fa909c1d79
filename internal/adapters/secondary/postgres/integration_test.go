package postgres

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
)

// livePool connects to the database named by TEST_DATABASE_URL and
// applies the schema, skipping the test when none is configured.
func livePool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping live postgres test")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect to postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := EnsureSchema(context.Background(), pool); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return pool
}

// testProject returns a unique project name and registers cleanup of
// every registry row written under it.
func testProject(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	project := "it_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	t.Cleanup(func() {
		ctx := context.Background()
		for _, table := range []string{"fs_feature_service", "fs_feature_view", "fs_data_source", "fs_entity", "registered_model", "inference_endpoint"} {
			_, _ = pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE project = $1", table), project)
		}
	})
	return project
}

func TestEntityRepo_RoundTrip(t *testing.T) {
	pool := livePool(t)
	project := testProject(t, pool)
	repo := NewEntityRepository(pool)
	ctx := context.Background()

	entity, err := domain.NewEntity(project, "driver", "driver_id", domain.ValueTypeInt64, "driver identity")
	assert.NoError(t, err)
	entity.Labels = map[string]string{"team": "rides"}
	assert.NoError(t, repo.Create(ctx, entity))

	got, err := repo.GetByName(ctx, project, "driver")
	assert.NoError(t, err)
	assert.Equal(t, entity.ID, got.ID)
	assert.Equal(t, "driver_id", got.JoinKey)
	assert.Equal(t, domain.ValueTypeInt64, got.ValueType)
	assert.Equal(t, "rides", got.Labels["team"])

	// Same project and name again is a conflict, not an upsert.
	dup, err := domain.NewEntity(project, "driver", "other_id", domain.ValueTypeString, "")
	assert.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrEntityNameConflict)

	got.Description = "updated"
	assert.NoError(t, repo.Update(ctx, got))

	entities, total, err := repo.List(ctx, output.RegistryFilter{Project: project, Limit: 10})
	assert.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "updated", entities[0].Description)

	assert.NoError(t, repo.Delete(ctx, project, "driver"))
	_, err = repo.GetByName(ctx, project, "driver")
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, project, "driver"), domain.ErrEntityNotFound)
}

func TestFeatureViewRepo_MaterializationHistory(t *testing.T) {
	pool := livePool(t)
	project := testProject(t, pool)
	repo := NewFeatureViewRepository(pool)
	ctx := context.Background()

	view, err := domain.NewFeatureView(project, "driver_stats", []string{"driver"},
		[]domain.Feature{
			{Name: "trips", ValueType: domain.ValueTypeInt64},
			{Name: "rating", ValueType: domain.ValueTypeFloat64},
		}, "driver_source", 36*time.Hour, true)
	assert.NoError(t, err)
	assert.NoError(t, repo.Create(ctx, view))

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	view.AddMaterializedInterval(domain.Interval{Start: start, End: end})
	assert.NoError(t, repo.Update(ctx, view))

	got, err := repo.GetByName(ctx, project, "driver_stats")
	assert.NoError(t, err)
	assert.Equal(t, 36*time.Hour, got.TTL)
	assert.Len(t, got.MaterializedIntervals, 1)
	assert.True(t, got.MaterializedIntervals[0].Start.Equal(start))
	assert.True(t, got.MaterializedIntervals[0].End.Equal(end))
	assert.Len(t, got.Features, 2)
	assert.Equal(t, "rating", got.Features[1].Name)

	online, err := repo.ListOnline(ctx, project)
	assert.NoError(t, err)
	assert.Len(t, online, 1)
}

func TestOfflineStore_PullRows(t *testing.T) {
	pool := livePool(t)
	project := testProject(t, pool)
	ctx := context.Background()

	table := "it_stats_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	_, err := pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE %s (
			driver_id BIGINT,
			event_timestamp TIMESTAMPTZ,
			total_trips BIGINT,
			rating DOUBLE PRECISION
		)
	`, table))
	assert.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+table)
	})

	base := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	for _, row := range []struct {
		driver int64
		offset time.Duration
		trips  int64
		rating float64
	}{
		{1001, 1 * time.Hour, 24, 4.7},
		{1001, 30 * time.Hour, 25, 4.8},
		{1002, 2 * time.Hour, 3, 2.1},
	} {
		_, err := pool.Exec(ctx,
			fmt.Sprintf("INSERT INTO %s VALUES ($1, $2, $3, $4)", table),
			row.driver, base.Add(row.offset), row.trips, row.rating)
		assert.NoError(t, err)
	}

	source, err := domain.NewDataSource(project, "driver_source", table, "", "event_timestamp")
	assert.NoError(t, err)
	source.FieldMapping = map[string]string{"total_trips": "trips"}

	store := NewOfflineStore(pool)
	rows, err := store.PullRows(ctx, output.PullRequest{
		Source:         source,
		JoinKeys:       []string{"driver_id"},
		FeatureColumns: []string{"trips", "rating"},
		Start:          base,
		End:            base.Add(24 * time.Hour),
	})
	assert.NoError(t, err)

	// The row at +30h falls outside the window.
	assert.Len(t, rows, 2)
	byDriver := make(map[interface{}]domain.FeatureRow, len(rows))
	for _, r := range rows {
		byDriver[r.JoinKeyValues["driver_id"]] = r
	}
	assert.Equal(t, int64(24), byDriver[int64(1001)].Values["trips"])
	assert.Equal(t, 4.7, byDriver[int64(1001)].Values["rating"])
	assert.Equal(t, int64(3), byDriver[int64(1002)].Values["trips"])
}

func TestOfflineStore_QueryEntityRows(t *testing.T) {
	pool := livePool(t)
	store := NewOfflineStore(pool)

	rows, err := store.QueryEntityRows(context.Background(),
		"SELECT 1001::BIGINT AS driver_id, NOW() AS event_timestamp", "event_timestamp")
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, int64(1001), rows[0].JoinKeyValues["driver_id"])

	_, err = store.QueryEntityRows(context.Background(),
		"SELECT 1001::BIGINT AS driver_id", "event_timestamp")
	assert.Error(t, err)
}
