package featurerepo

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const debounceDelay = 100 * time.Millisecond

// Watcher re-applies the feature repository file whenever it changes
// on disk. A reload that fails to parse or apply keeps the registry
// as it was.
type Watcher struct {
	path    string
	project string
	applier *Applier
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

// NewWatcher starts watching the repo file's directory. Editors
// replace files on save, so the directory is watched and events are
// filtered by path.
func NewWatcher(path, project string, applier *Applier) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve repo path: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:    absPath,
		project: project,
		applier: applier,
		watcher: fsWatcher,
		cancel:  cancel,
	}

	go w.watchLoop(ctx)
	log.WithField("path", absPath).Info("watching feature repository file")

	return w, nil
}

// Close stops the watcher
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != w.path {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Chmod) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDelay, w.reload)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("feature repo watcher error")
		}
	}
}

func (w *Watcher) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := w.applier.ApplyFile(ctx, w.path, w.project); err != nil {
		log.WithError(err).Error("feature repo reload failed, keeping previous definitions")
		return
	}
	log.WithField("path", w.path).Info("feature repository reloaded")
}
