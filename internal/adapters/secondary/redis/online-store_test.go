package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"

	output "feature-store-service/internal/core/ports/output"
)

// liveStore connects to the Redis named by TEST_REDIS_ADDR, skipping
// the test when none is configured. Each test gets its own view name so
// runs never see each other's keys.
func liveStore(t *testing.T) (output.OnlineStore, string) {
	t.Helper()
	_ = godotenv.Load()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping live redis test")
	}

	store, err := NewOnlineStore(addr, os.Getenv("TEST_REDIS_PASSWORD"), 0)
	if err != nil {
		t.Fatalf("connect to redis: %v", err)
	}

	view := "it_" + uuid.NewString()[:8]
	t.Cleanup(func() {
		_ = store.Purge(context.Background(), "default", view)
	})
	return store, view
}

func TestOnlineStore_WriteRead(t *testing.T) {
	store, view := liveStore(t)
	ctx := context.Background()
	eventTime := time.Now().Add(-10 * time.Minute)

	written, err := store.Write(ctx, "default", view, []output.OnlineWrite{
		{
			EntityKey:      "1001",
			EventTimestamp: eventTime,
			Values:         map[string]interface{}{"trips": 24.0, "rating": 4.7, "tier": "gold"},
		},
		{
			EntityKey:      "1002",
			EventTimestamp: eventTime,
			Values:         map[string]interface{}{"trips": 3.0, "rating": 2.1, "tier": "bronze"},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, written)

	rows, err := store.Read(ctx, "default", view,
		[]string{"1001", "ghost", "1002"},
		[]string{"trips", "rating", "tier"})
	assert.NoError(t, err)
	assert.Len(t, rows, 3)

	assert.True(t, rows[0].Found)
	assert.Equal(t, 24.0, rows[0].Values["trips"])
	assert.Equal(t, "gold", rows[0].Values["tier"])
	assert.WithinDuration(t, eventTime, rows[0].EventTimestamp, time.Second)

	assert.False(t, rows[1].Found)

	assert.True(t, rows[2].Found)
	assert.Equal(t, 2.1, rows[2].Values["rating"])
}

func TestOnlineStore_NeverOverwritesNewer(t *testing.T) {
	store, view := liveStore(t)
	ctx := context.Background()
	now := time.Now()

	written, err := store.Write(ctx, "default", view, []output.OnlineWrite{
		{EntityKey: "1001", EventTimestamp: now, Values: map[string]interface{}{"trips": 30.0}},
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, written)

	// A replayed materialization carrying an older timestamp is dropped.
	written, err = store.Write(ctx, "default", view, []output.OnlineWrite{
		{EntityKey: "1001", EventTimestamp: now.Add(-time.Hour), Values: map[string]interface{}{"trips": 1.0}},
	})
	assert.NoError(t, err)
	assert.Equal(t, 0, written)

	rows, err := store.Read(ctx, "default", view, []string{"1001"}, []string{"trips"})
	assert.NoError(t, err)
	assert.Equal(t, 30.0, rows[0].Values["trips"])
}

func TestOnlineStore_Purge(t *testing.T) {
	store, view := liveStore(t)
	ctx := context.Background()

	_, err := store.Write(ctx, "default", view, []output.OnlineWrite{
		{EntityKey: "1001", EventTimestamp: time.Now(), Values: map[string]interface{}{"trips": 5.0}},
	})
	assert.NoError(t, err)

	assert.NoError(t, store.Purge(ctx, "default", view))

	rows, err := store.Read(ctx, "default", view, []string{"1001"}, []string{"trips"})
	assert.NoError(t, err)
	assert.False(t, rows[0].Found)
}
