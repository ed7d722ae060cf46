package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches an input tree for changes to percy files and reports
// them in debounced batches.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	config   FileWatcherConfig
	debounce *Debouncer

	mu      sync.Mutex
	running bool
	pending map[string]struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// FileWatcherConfig contains configuration for the file watcher.
type FileWatcherConfig struct {
	// Root is the directory to watch recursively.
	Root string

	// Debounce is the quiet period after the last event before changes are
	// reported (default: 250ms).
	Debounce time.Duration

	// Extensions are the file extensions that count as changes.
	Extensions []string

	// Names are file names that count as changes regardless of extension,
	// such as the percy rc file. Hidden names listed here are not skipped.
	Names []string

	// Ignore lists directories whose events are dropped, typically the
	// output directory when it lives under Root.
	Ignore []string
}

// DefaultFileWatcherConfig returns the default watcher configuration.
func DefaultFileWatcherConfig(root string) FileWatcherConfig {
	return FileWatcherConfig{
		Root:       root,
		Debounce:   250 * time.Millisecond,
		Extensions: []string{".yaml", ".yml"},
		Names:      []string{".percyrc"},
	}
}

// NewFileWatcher creates a new file watcher.
func NewFileWatcher(cfg FileWatcherConfig, logger *slog.Logger) (*FileWatcher, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("watch root cannot be empty")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 250 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	for i, dir := range cfg.Ignore {
		if abs, err := filepath.Abs(dir); err == nil {
			cfg.Ignore[i] = abs
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  watcher,
		logger:   logger,
		config:   cfg,
		debounce: NewDebouncer(cfg.Debounce),
		pending:  make(map[string]struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until ctx is cancelled or Stop is called. After each burst of
// relevant events it calls onChange with the sorted changed paths. Calls to
// onChange never overlap.
func (fw *FileWatcher) Watch(ctx context.Context, onChange func(paths []string)) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	fw.running = true
	fw.mu.Unlock()

	defer close(fw.doneCh)

	if err := fw.addDirectory(fw.config.Root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", fw.config.Root, err)
	}

	fw.logger.Info("file watcher started",
		"root", fw.config.Root,
		"debounce_ms", fw.config.Debounce.Milliseconds(),
	)

	var flushMu sync.Mutex
	flush := func() {
		flushMu.Lock()
		defer flushMu.Unlock()

		fw.mu.Lock()
		paths := make([]string, 0, len(fw.pending))
		for p := range fw.pending {
			paths = append(paths, p)
		}
		clear(fw.pending)
		fw.mu.Unlock()

		if len(paths) == 0 {
			return
		}
		slices.Sort(paths)
		onChange(paths)
	}

	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("file watcher stopped")
			return nil

		case <-fw.stopCh:
			fw.logger.Info("file watcher stopped")
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !fw.handleEvent(event) {
				continue
			}
			fw.logger.Debug("file event detected", "path", event.Name, "op", event.Op.String())

			fw.mu.Lock()
			fw.pending[event.Name] = struct{}{}
			fw.mu.Unlock()
			fw.debounce.Trigger(flush)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			fw.logger.Error("file watcher error", "error", err)
		}
	}
}

// Stop stops the watcher and releases the fsnotify handle. It is safe to
// call before, during or after Watch.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	running := fw.running
	select {
	case <-fw.stopCh:
		fw.mu.Unlock()
		return nil
	default:
		close(fw.stopCh)
	}
	fw.mu.Unlock()

	if running {
		<-fw.doneCh
	}
	fw.debounce.Stop()

	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// handleEvent reports whether event is a relevant change. New directories
// are added to the watch, and their creation counts as a change because
// they may already hold files.
func (fw *FileWatcher) handleEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod || fw.ignored(event.Name) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if isHidden(event.Name) {
				return false
			}
			if err := fw.addDirectory(event.Name); err != nil {
				fw.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return true
		}
	}
	return fw.isRelevantFile(event.Name)
}

func (fw *FileWatcher) isRelevantFile(path string) bool {
	base := filepath.Base(path)
	if slices.Contains(fw.config.Names, base) {
		return true
	}
	if isHidden(path) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range fw.config.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

func (fw *FileWatcher) ignored(path string) bool {
	if len(fw.config.Ignore) == 0 {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, dir := range fw.config.Ignore {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// addDirectory adds dir and all its non-hidden subdirectories.
func (fw *FileWatcher) addDirectory(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(path) || fw.ignored(path) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", path, err)
		}
		fw.logger.Debug("watching directory", "path", path)
		return nil
	})
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// Debouncer runs the latest callback once events stop arriving for the
// configured interval.
type Debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Trigger (re)starts the quiet period; callback replaces any pending one.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
			d.mu.Lock()
			cb := d.callback
			d.mu.Unlock()

			if cb != nil {
				cb()
			}
		}
	})
}

// Stop cancels any pending callback. Stop is idempotent.
func (d *Debouncer) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
