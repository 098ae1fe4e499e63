package batch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ScheduleWatcher reloads a schedule file whenever it changes on disk
type ScheduleWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(*ScheduleConfig)
	logger   *zap.Logger
	debounce time.Duration
}

// NewScheduleWatcher watches path. onChange receives every schedule that
// loads and validates; broken edits are logged and skipped.
func NewScheduleWatcher(path string, onChange func(*ScheduleConfig), logger *zap.Logger) (*ScheduleWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors often replace the file instead of writing it
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	return &ScheduleWatcher{
		watcher:  watcher,
		path:     abs,
		onChange: onChange,
		logger:   logger,
		debounce: 500 * time.Millisecond,
	}, nil
}

// Run processes file events until ctx is done, then releases the watcher
func (w *ScheduleWatcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
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
			// Debounce rapid saves into one reload
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("schedule watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *ScheduleWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}

func (w *ScheduleWatcher) reload() {
	// a moved or deleted file keeps the running schedule; recreating it reloads
	if _, err := os.Stat(w.path); errors.Is(err, fs.ErrNotExist) {
		w.logger.Warn("schedule file gone, keeping current schedule", zap.String("path", w.path))
		return
	}
	cfg, err := LoadScheduleConfig(w.path)
	if err != nil {
		w.logger.Error("schedule reload rejected", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.logger.Info("schedule reloaded", zap.String("path", w.path), zap.Int("batches", len(cfg.Batches)))
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
