package template

import (
	"bytes"
	"context"
	"crypto/sha256"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher monitors template pack files for changes and re-imports edited
// packs into a [Store]. It uses polling (not fsnotify) to keep dependencies
// minimal.
//
// After each successful re-import the onReload callback receives the keys of
// the definitions that were imported, so the caller can invalidate cached
// renders for them.
type Watcher struct {
	paths    []string
	interval time.Duration
	store    Store
	onReload func(keys []string)

	mu       sync.Mutex
	lastHash map[string][sha256.Size]byte
	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithOnReload sets the callback invoked after a pack is re-imported.
func WithOnReload(fn func(keys []string)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// NewWatcher creates a pack watcher over paths. It performs the initial
// import of every pack immediately and starts polling in a background
// goroutine. An initial import failure is returned; later failures are
// logged and the previous definitions stay in effect.
func NewWatcher(ctx context.Context, store Store, paths []string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		paths:    paths,
		interval: 5 * time.Second,
		store:    store,
		lastHash: make(map[string][sha256.Size]byte, len(paths)),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, p := range paths {
		if _, err := w.importPath(ctx, p, false); err != nil {
			return nil, err
		}
	}

	go w.poll()
	return w, nil
}

// Stop stops the watcher's polling goroutine. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

// poll runs in a background goroutine, checking every pack file
// periodically.
func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			for _, p := range w.paths {
				keys, err := w.importPath(context.Background(), p, true)
				if err != nil {
					slog.Warn("template watcher: reload failed, keeping previous definitions",
						"path", p, "err", err)
					continue
				}
				if len(keys) > 0 && w.onReload != nil {
					w.onReload(keys)
				}
			}
		}
	}
}

// importPath reads, hashes, and imports one pack file. When onlyIfChanged
// is true an unchanged content hash short-circuits with no keys. Returns the
// imported keys.
func (w *Watcher) importPath(ctx context.Context, path string, onlyIfChanged bool) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(data)
	w.mu.Lock()
	unchanged := onlyIfChanged && hash == w.lastHash[path]
	w.mu.Unlock()
	if unchanged {
		return nil, nil
	}

	pack, err := LoadPackFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if _, err := ImportPack(ctx, w.store, pack); err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.lastHash[path] = hash
	w.mu.Unlock()

	keys := make([]string, 0, len(pack.Templates))
	for _, def := range pack.Templates {
		keys = append(keys, def.Key)
	}
	slog.Info("template watcher: pack imported", "path", path, "templates", len(keys))
	return keys, nil
}
