package localfs

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArtifactStore_SaveLoad(t *testing.T) {
	root := t.TempDir()
	store, err := NewArtifactStore(root)
	assert.NoError(t, err)

	payload := []byte(`{"model_name":"churn","intercept":-0.5}`)
	uri, err := store.Save(context.Background(), "demo/churn/v1/model.json", payload)
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "file://"))
	assert.True(t, strings.HasSuffix(uri, filepath.Join("demo", "churn", "v1", "model.json")))

	loaded, err := store.Load(context.Background(), uri)
	assert.NoError(t, err)
	assert.Equal(t, payload, loaded)
}

func TestArtifactStore_SaveConfinesPathsToRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewArtifactStore(root)
	assert.NoError(t, err)

	uri, err := store.Save(context.Background(), "../../etc/model.json", []byte("x"))
	assert.NoError(t, err)

	full := strings.TrimPrefix(uri, "file://")
	rel, err := filepath.Rel(root, full)
	assert.NoError(t, err)
	assert.False(t, strings.HasPrefix(rel, ".."))
}

func TestArtifactStore_LoadMissing(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir())
	assert.NoError(t, err)

	_, err = store.Load(context.Background(), "file:///nope/model.json")
	assert.Error(t, err)
}

func TestArtifactStore_OverwriteKeepsLatest(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir())
	assert.NoError(t, err)

	_, err = store.Save(context.Background(), "demo/churn/v1/model.json", []byte("old"))
	assert.NoError(t, err)
	uri, err := store.Save(context.Background(), "demo/churn/v1/model.json", []byte("new"))
	assert.NoError(t, err)

	loaded, err := store.Load(context.Background(), uri)
	assert.NoError(t, err)
	assert.Equal(t, []byte("new"), loaded)
}
