package ingest

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"policyrag/internal/logger"
)

const DefaultDebounce = 500 * time.Millisecond

// ReloadFunc rebuilds the corpus after the documents directory changed.
type ReloadFunc func(ctx context.Context) error

// Watcher triggers a reload when files matching a pattern change in a directory.
// Bursts of events within the debounce window produce a single reload.
type Watcher struct {
	watcher  *fsnotify.Watcher
	pattern  string
	debounce time.Duration
	reload   ReloadFunc
	log      *logger.Logger
}

// NewWatcher starts watching dir. Call Run to process events and Close when done.
func NewWatcher(dir, pattern string, debounce time.Duration, reload ReloadFunc, log *logger.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	if pattern == "" {
		pattern = "*.json"
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Watcher{
		watcher:  w,
		pattern:  pattern,
		debounce: debounce,
		reload:   reload,
		log:      log.Component("watcher"),
	}, nil
}

// Run processes events until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Documents changed")
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Stop()
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if err := w.reload(ctx); err != nil {
				w.log.Error().Err(err).Msg("Reload failed, keeping previous corpus")
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("Watcher error")
		}
	}
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	ok, err := filepath.Match(w.pattern, filepath.Base(event.Name))
	return err == nil && ok
}
