package keystore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mxcd/apikey-fwd-auth/pkg/apikeyauth"
	"github.com/rs/zerolog/log"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher reloads a key store file whenever it changes on disk and hands the
// fresh store to a callback. A file that fails to parse keeps the previous
// store in place.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload func(*apikeyauth.KeyStore)
	watcher  *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer

	// held for the whole of reload
	reloadMu sync.Mutex
}

func NewWatcher(path string, debounce time.Duration, onReload func(*apikeyauth.KeyStore)) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	// Watch the directory, editors and config maps replace files instead of
	// writing them in place.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onReload: onReload,
		watcher:  w,
	}, nil
}

// Run processes file events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	log.Info().Str("path", w.path).Msg("watching key store file")

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.Debug().Str("op", event.Op.String()).Msg("key store file changed")
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			log.Error().Err(err).Msg("key store watcher error")
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	// A truncated file shows up between the truncate and write of an update.
	if info, err := os.Stat(w.path); err == nil && info.Size() == 0 {
		log.Debug().Str("path", w.path).Msg("key store file is empty, waiting for content")
		return
	}
	store, err := LoadFile(w.path)
	if err != nil {
		log.Error().Err(err).Str("path", w.path).Msg("failed to reload key store, keeping previous one")
		return
	}
	log.Info().Str("path", w.path).Int("keys", store.Len()).Str("shape", string(store.Kind())).Msg("reloaded key store")
	w.onReload(store)
}
