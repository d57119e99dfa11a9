package seed

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

const defaultSettleDelay = 200 * time.Millisecond

// CatalogWriter replaces the whole catalog in one go.
type CatalogWriter interface {
	ReplaceCatalog(ctx context.Context, bottles []domain.Bottle) error
}

// Loader applies the seed file to a CatalogWriter and keeps it applied.
type Loader struct {
	writer   CatalogWriter
	onApply  func(count int)
	logger   *slog.Logger
	path     string
	settle   time.Duration
	mu       sync.Mutex
	applied  int
}

// Options configures a Loader.
type Options struct {
	// OnApply runs after every successful apply, e.g. to invalidate caches.
	OnApply     func(count int)
	Logger      *slog.Logger
	SettleDelay time.Duration
}

// NewLoader creates a Loader for the file at path.
func NewLoader(path string, writer CatalogWriter, opts Options) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	settle := opts.SettleDelay
	if settle <= 0 {
		settle = defaultSettleDelay
	}
	return &Loader{
		path:    filepath.Clean(path),
		writer:  writer,
		onApply: opts.OnApply,
		logger:  logger,
		settle:  settle,
	}
}

// Apply loads the file and writes it to the catalog.
func (l *Loader) Apply(ctx context.Context) error {
	bottles, err := Load(l.path)
	if err != nil {
		return err
	}
	if err := l.writer.ReplaceCatalog(ctx, bottles); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}

	l.mu.Lock()
	l.applied++
	l.mu.Unlock()

	l.logger.Info("catalog seed applied", "path", l.path, "bottles", len(bottles))
	if l.onApply != nil {
		l.onApply(len(bottles))
	}
	return nil
}

// Applied returns how many times the seed has been applied.
func (l *Loader) Applied() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.applied
}

// Watch reapplies the seed whenever the file is written, until ctx ends.
// Bursts of events are collapsed into one reload. A file that fails to
// parse is logged and the previous catalog stays.
func (l *Loader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Editors often replace the file, so watch the directory.
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(l.path), err)
	}

	timer := time.NewTimer(l.settle)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != l.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(l.settle)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("catalog seed watcher error", "error", err)

		case <-timer.C:
			if err := l.Apply(ctx); err != nil {
				l.logger.Error("catalog seed reload failed", "path", l.path, "error", err)
			}
		}
	}
}
