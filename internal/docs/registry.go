package docs

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ragdemo/internal/domain"
)

// reloadDelay coalesces bursts of filesystem events into a single reload.
const reloadDelay = 200 * time.Millisecond

// Registry keeps the current document set for a watched directory. Readers
// get an immutable snapshot; the watcher goroutine swaps in a fresh set when
// files change.
type Registry struct {
	log  *slog.Logger
	root string

	mu   sync.RWMutex
	docs []domain.Document
}

// NewRegistry creates a registry over the given directory.
func NewRegistry(root string, log *slog.Logger) *Registry {
	return &Registry{log: log, root: root}
}

// Load scans the directory tree and replaces the current document set.
func (r *Registry) Load() error {
	var docs []domain.Document
	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("read document %s: %w", path, readErr)
		}
		rel, relErr := filepath.Rel(r.root, path)
		if relErr != nil {
			rel = filepath.Base(path)
		}
		docs = append(docs, domain.Document{Name: rel, Text: string(data)})
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan documents dir %s: %w", r.root, err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })

	r.mu.Lock()
	r.docs = docs
	r.mu.Unlock()
	r.log.Info("documents loaded", "dir", r.root, "count", len(docs))
	return nil
}

// Documents returns a snapshot of the current document set.
func (r *Registry) Documents() []domain.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Document, len(r.docs))
	copy(out, r.docs)
	return out
}

// Watch blocks until ctx is done, reloading the document set whenever files
// under the directory are created, written, removed or renamed.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchTargets(watcher, r.root); err != nil {
		return err
	}

	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if addErr := watcher.Add(event.Name); addErr != nil {
						r.log.Error("watch new directory failed", "dir", event.Name, "error", addErr)
					}
				}
			}
			r.log.Debug("documents changed", "event", event.String())
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(reloadDelay, func() {
				if err := r.Load(); err != nil {
					r.log.Error("reload documents failed", "error", err)
				}
			})
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Error("watcher error", "error", watchErr)
		}
	}
}

// addWatchTargets registers the root and every subdirectory with the
// watcher; fsnotify watches are not recursive.
func addWatchTargets(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
