// SPDX-License-Identifier: MPL-2.0

// Package watch monitors plugin descriptor directories and fires a debounced
// callback when descriptor files change. Events inside the debounce window
// coalesce, so an editor writing a temp file and renaming it over the
// descriptor produces one callback, not two. The default patterns track the
// loader: *.cue and *.json files count as descriptors, everything else is
// noise.
package watch

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the quiet period after the last filesystem event before
// the callback fires.
const defaultDebounce = 500 * time.Millisecond

// defaultPatterns matches the descriptor extensions the loader accepts.
var defaultPatterns = []string{"**/*.cue", "**/*.json"}

// defaultIgnores excludes VCS metadata, editor swap files, and OS metadata
// that generate high-frequency noise next to descriptors.
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

// Config holds the parameters for a Watcher.
type Config struct {
	// Dirs are the directory trees to monitor, typically the configured
	// plugin directories. Directories that do not exist yet are skipped,
	// matching how the loader treats them, but at least one must exist.
	Dirs []string

	// Patterns are doublestar globs selecting which files trigger the
	// callback, relative to the directory they live under. Empty means
	// the descriptor defaults.
	Patterns []string

	// Ignore adds globs for paths that never trigger the callback, merged
	// with the built-in defaults.
	Ignore []string

	// Debounce is the quiet period after the last event before the
	// callback fires. Zero or negative falls back to the default.
	Debounce time.Duration

	// OnChange receives the deduplicated absolute paths that changed since
	// the last callback. A nil callback is a no-op.
	OnChange func(ctx context.Context, changed []string) error

	// Logger receives skip and error reports. Nil falls back to the
	// package default logger.
	Logger *log.Logger
}

// Watcher monitors descriptor directories and fires a debounced callback when
// matching files change. Run must be called exactly once.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	roots    []string
	patterns []string
	ignores  []string
	debounce time.Duration
	logger   *log.Logger
	started  atomic.Bool
}

// New creates a Watcher from cfg. It resolves every existing directory in
// cfg.Dirs to an absolute path and registers its whole tree for monitoring.
func New(cfg Config) (*Watcher, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = defaultPatterns
	}
	if err := validatePatterns(patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	var roots []string
	for _, dir := range cfg.Dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			logger.Debug("skipping missing watch directory", "dir", dir)
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve directory %q: %w", dir, err)
		}
		roots = append(roots, abs)
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("watch: none of the %d configured directories exist", len(cfg.Dirs))
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	ignores := make([]string, 0, len(defaultIgnores)+len(cfg.Ignore))
	ignores = append(ignores, defaultIgnores...)
	ignores = append(ignores, cfg.Ignore...)

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		roots:    roots,
		patterns: patterns,
		ignores:  ignores,
		debounce: debounce,
		logger:   logger,
	}

	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			if closeErr := fsw.Close(); closeErr != nil {
				logger.Warn("close after init failure", "error", closeErr)
			}
			return nil, err
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks for
// descriptor changes. It returns nil on clean cancellation and propagates
// fatal watcher errors. A second call returns an error immediately.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire drains the pending set and invokes the callback. The timer may
	// schedule it after cancellation, so it checks ctx first. The busy
	// guard skips the callback while a previous run is still in progress
	// and reschedules, so pending changes are never silently dropped.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Warn("descriptor change deferred, previous run still in progress")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange == nil {
			return
		}
		if err := w.cfg.OnChange(ctx, changed); err != nil {
			w.logger.Error("change callback failed", "error", err)
		}
	}

	defer func() {
		mu.Lock()
		localTimer := timer
		mu.Unlock()
		if localTimer != nil && !localTimer.Stop() {
			select {
			case <-localTimer.C:
			default:
			}
		}
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("close fsnotify watcher", "error", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed unexpectedly")
			}

			// New directories extend the watch so descriptors dropped
			// into them later are seen.
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			rel, ok := w.relToRoot(evt.Name)
			if !ok || matchAny(w.ignores, rel) || !matchAny(w.patterns, rel) {
				continue
			}

			mu.Lock()
			pending[evt.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed unexpectedly")
			}
			// Resource exhaustion means the watcher cannot recover; see
			// the platform-specific classification in fatal_*.go.
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// addTree walks root and registers every non-ignored directory with the
// fsnotify watcher. Directories are registered regardless of the watch
// patterns; pattern filtering happens when events arrive.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Permission errors on individual subdirectories should not
			// abort the whole walk.
			w.logger.Debug("skipping inaccessible path", "path", path, "error", walkErr)
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if matchAny(w.ignores, rel) || matchAny(w.ignores, rel+"/") {
			return filepath.SkipDir
		}

		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
}

// maybeAddDir registers path if it is a non-ignored directory under one of
// the roots.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	rel, ok := w.relToRoot(path)
	if !ok || matchAny(w.ignores, rel) || matchAny(w.ignores, rel+"/") {
		return
	}

	if addErr := w.fsw.Add(path); addErr != nil {
		w.logger.Warn("add new directory", "path", path, "error", addErr)
	}
}

// relToRoot returns path relative to the root that contains it. Events for
// paths outside every root, such as the roots' own parents, report false.
func (w *Watcher) relToRoot(path string) (string, bool) {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return rel, true
	}
	return "", false
}

// matchAny reports whether the slash-normalized rel matches at least one of
// the doublestar patterns.
func matchAny(patterns []string, rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
			return true
		}
	}
	return false
}

// validatePatterns rejects invalid doublestar globs at construction time
// rather than letting them silently match nothing at runtime.
func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if _, err := doublestar.Match(pat, ""); err != nil {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, err)
		}
	}
	return nil
}
