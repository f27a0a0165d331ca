// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
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

// defaultDebounce is the delay before firing the callback after the last
// filesystem event, so an editor's write-then-rename counts once.
const defaultDebounce = 500 * time.Millisecond

// DefaultPatterns selects the files a combine run reads: fragments, Starlark
// scripts and shell scripts.
var DefaultPatterns = []string{"**/*.conf", "**/*.toml", "**/*.star", "**/*.sh"}

// defaultIgnores lists paths that never trigger a run.
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

var (
	// ErrAlreadyRunning is returned when Run is called a second time.
	ErrAlreadyRunning = errors.New("watch: Run called more than once")

	// ErrStopped is returned by Run when the platform reports an error
	// after which no further changes to the config tree would be seen.
	ErrStopped = errors.New("watch: stopped watching config files")
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// BaseDir is watched recursively. Patterns are matched against paths
		// relative to it. An empty value defaults to the working directory.
		BaseDir string

		// Dirs are additional directories watched without recursion, for
		// fragments that live outside BaseDir.
		Dirs []string

		// Patterns are doublestar globs selecting the files that trigger the
		// callback. An empty slice means DefaultPatterns.
		Patterns []string

		// Ignore are additional doublestar globs that never trigger the callback.
		Ignore []string

		// IgnorePaths are files that never trigger the callback, typically the
		// combined output itself.
		IgnorePaths []string

		// Debounce is the quiet period after the last event before the callback
		// fires. Zero or negative values fall back to defaultDebounce.
		Debounce time.Duration

		// OnChange is called with the deduplicated, sorted list of changed
		// paths. A nil callback is a no-op.
		OnChange func(ctx context.Context, changed []string) error

		// Logger receives progress and error messages; nil discards them.
		Logger *log.Logger
	}

	// Watcher monitors the inputs of a combine run and fires a debounced
	// callback when they change. Run must be called exactly once.
	Watcher struct {
		cfg         Config
		fsw         *fsnotify.Watcher
		patterns    []string
		ignores     []string
		ignorePaths map[string]struct{}
		logger      *log.Logger
		debounce    time.Duration
		baseDir     string
		started     atomic.Bool
	}
)

// New creates a Watcher from cfg and registers BaseDir, its non-ignored
// subdirectories and cfg.Dirs for monitoring.
func New(cfg Config) (*Watcher, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		baseDir = wd
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	if err := validatePatterns(patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	ignorePaths := make(map[string]struct{}, len(cfg.IgnorePaths))
	for _, p := range cfg.IgnorePaths {
		if abs, err := filepath.Abs(p); err == nil {
			ignorePaths[abs] = struct{}{}
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:         cfg,
		fsw:         fsw,
		patterns:    patterns,
		ignores:     slices.Concat(defaultIgnores, cfg.Ignore),
		ignorePaths: ignorePaths,
		logger:      logger,
		debounce:    debounce,
		baseDir:     absBase,
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("watch: close after init failure", "err", closeErr)
		}
		return nil, err
	}

	return w, nil
}

// Run blocks until ctx is cancelled, processing filesystem events and
// dispatching debounced callbacks. It returns nil on cancellation and
// propagates fatal watcher errors.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire drains the pending set and invokes the callback. A run that is
	// still busy reschedules the timer instead of overlapping.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("watch: previous run still in progress, retrying")
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

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("watch: callback failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("watch: close fsnotify", "err", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
				continue
			}

			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			rel, ok := w.relevant(evt.Name)
			if !ok {
				continue
			}
			w.logger.Debug("watch: change", "path", rel, "op", evt.Op.String())

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if ferr := stoppedError(err); ferr != nil {
				return ferr
			}
			w.logger.Warn("watch: fsnotify error", "err", err)
		}
	}
}

// stoppedError wraps err in ErrStopped when the watcher cannot recover from
// it, and returns nil otherwise.
func stoppedError(err error) error {
	hint, broken := brokenWatcherHint(err)
	if !broken {
		return nil
	}
	return fmt.Errorf("%w (%s): %w", ErrStopped, hint, err)
}

// relevant reports whether an event on path should trigger the callback and
// returns the path relative to BaseDir (slash separated).
func (w *Watcher) relevant(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	if _, skip := w.ignorePaths[abs]; skip {
		return "", false
	}

	rel, err := filepath.Rel(w.baseDir, abs)
	if err != nil {
		rel = abs
	}
	rel = filepath.ToSlash(rel)

	if w.isIgnored(rel) {
		return "", false
	}
	// Files in the extra directories are matched by name only.
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return rel, w.matches(filepath.Base(abs))
	}
	return rel, w.matches(rel)
}

// addDirectories walks BaseDir and adds every non-ignored directory, then the
// extra directories.
func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.baseDir, func(path string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			// Skip unreadable directories rather than aborting the walk.
			w.logger.Warn("watch: skipping inaccessible path", "path", path, "err", walkDirErr)
			return nil //nolint:nilerr // intentional skip of inaccessible paths
		}
		if !d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(w.baseDir, path)
		if relErr != nil {
			return nil //nolint:nilerr // skip paths that cannot be made relative
		}
		if w.isIgnored(rel) || w.isIgnored(rel+"/") {
			return filepath.SkipDir
		}

		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk directory tree: %w", walkErr)
	}

	for _, dir := range w.cfg.Dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("watch: resolve directory %q: %w", dir, err)
		}
		if addErr := w.fsw.Add(abs); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", abs, addErr)
		}
	}
	return nil
}

// maybeAddDir adds path if it is a new, non-ignored directory below BaseDir.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return
	}
	if w.isIgnored(rel) || w.isIgnored(rel+"/") {
		return
	}

	if addErr := w.fsw.Add(path); addErr != nil {
		w.logger.Warn("watch: add new directory", "path", path, "err", addErr)
	}
}

func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, filepath.ToSlash(rel))
}

func (w *Watcher) matches(rel string) bool {
	return matchAny(w.patterns, rel)
}

func matchAny(patterns []string, path string) bool {
	for _, pat := range patterns {
		if matched, matchErr := doublestar.Match(pat, path); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// validatePatterns checks that every pattern is a valid doublestar glob.
func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, doublestar.ErrBadPattern)
		}
	}
	return nil
}
