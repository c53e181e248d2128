// Package watcher rescans armies of a local storage root when their folders
// change on disk.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"printvault/internal/domain"
)

// ArmyScanner is the part of the reconciler the watcher drives.
type ArmyScanner interface {
	ScanArmy(ctx context.Context, armyID string) (*domain.ArmyScan, error)
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce sets how long a folder must stay quiet before its army is
// scanned.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// Watcher watches root/<allegiance>/<faction>/<unit> and scans an army once
// the changes under its faction folder settle.
type Watcher struct {
	root     string
	scanner  ArmyScanner
	debounce time.Duration
	logger   *zap.Logger
	fsw      *fsnotify.Watcher

	mu    sync.Mutex
	dirty map[string]struct{}
	timer *time.Timer
	fire  chan struct{}
}

// New watches every folder under root up to unit depth.
func New(root string, scanner ArmyScanner, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		root:     filepath.Clean(root),
		scanner:  scanner,
		debounce: 2 * time.Second,
		logger:   zap.NewNop(),
		dirty:    make(map[string]struct{}),
		fire:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w.fsw = fsw
	if err := os.MkdirAll(w.root, 0755); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to create directory %s: %w", w.root, err)
	}
	if err := w.addTree(w.root, false); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// rel splits p into its segments below root; nil for root itself or
// anything outside it.
func (w *Watcher) rel(p string) []string {
	rel, err := filepath.Rel(w.root, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}

// addTree watches dir and its folders down to unit depth. When mark is set,
// armies found on the way are queued, covering files written before the
// watch was in place.
func (w *Watcher) addTree(dir string, mark bool) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		segs := w.rel(p)
		if !d.IsDir() {
			if mark && len(segs) >= 2 {
				w.markDirty(segs[1])
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && p != w.root {
			return filepath.SkipDir
		}
		if len(segs) > 3 {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		if mark && len(segs) >= 2 {
			w.markDirty(segs[1])
		}
		return nil
	})
}

func (w *Watcher) markDirty(armyID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirty[armyID] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) takeDirty() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.dirty))
	for id := range w.dirty {
		ids = append(ids, id)
	}
	clear(w.dirty)
	return ids
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-w.fire:
			for _, id := range w.takeDirty() {
				w.scan(ctx, id)
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	segs := w.rel(event.Name)
	if len(segs) == 0 {
		return
	}
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name, true); err != nil {
				w.logger.Warn("failed to watch new folder", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
	}
	if len(segs) >= 2 {
		w.markDirty(segs[1])
	}
}

func (w *Watcher) scan(ctx context.Context, armyID string) {
	scan, err := w.scanner.ScanArmy(ctx, armyID)
	switch {
	case domain.IsNotFound(err):
		w.logger.Debug("change outside the catalog", zap.String("army", armyID))
	case err != nil:
		w.logger.Warn("scan after change failed", zap.String("army", armyID), zap.Error(err))
	default:
		w.logger.Info("scanned after change",
			zap.String("army", armyID),
			zap.Int("added", scan.Added),
			zap.Int("updated", scan.Updated),
		)
	}
}
