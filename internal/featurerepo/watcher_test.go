package featurerepo

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"feature-store-service/internal/core/domain"
)

const watcherYAML = `
project: fraud
entities:
  - name: customer
    join_key: customer_id
    value_type: INT64
`

func TestWatcherReappliesOnChange(t *testing.T) {
	applier, entityRepo, _, _, _ := newApplier()
	path := writeRepoFile(t, watcherYAML)

	var applies atomic.Int32
	entityRepo.On("GetByName", mock.Anything, "fraud", "customer").
		Run(func(args mock.Arguments) { applies.Add(1) }).
		Return(nil, domain.ErrEntityNotFound)
	entityRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	w, err := NewWatcher(path, "", applier)
	assert.NoError(t, err)
	defer w.Close()

	assert.NoError(t, os.WriteFile(path, []byte(watcherYAML), 0o644))

	assert.Eventually(t, func() bool { return applies.Load() >= 1 },
		5*time.Second, 50*time.Millisecond)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	applier, entityRepo, _, _, _ := newApplier()
	path := writeRepoFile(t, watcherYAML)

	w, err := NewWatcher(path, "", applier)
	assert.NoError(t, err)
	defer w.Close()

	// A sibling file in the watched directory never triggers a reload.
	sibling := path + ".bak"
	assert.NoError(t, os.WriteFile(sibling, []byte("scratch"), 0o644))
	time.Sleep(500 * time.Millisecond)

	entityRepo.AssertNotCalled(t, "GetByName", mock.Anything, mock.Anything, mock.Anything)
}

func TestWatcherKeepsRegistryOnBrokenFile(t *testing.T) {
	applier, entityRepo, _, _, _ := newApplier()
	path := writeRepoFile(t, watcherYAML)

	w, err := NewWatcher(path, "", applier)
	assert.NoError(t, err)
	defer w.Close()

	assert.NoError(t, os.WriteFile(path, []byte("entities: [:::"), 0o644))
	time.Sleep(500 * time.Millisecond)

	entityRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
