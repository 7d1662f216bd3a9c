package vault

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventKind distinguishes the two vault events a watcher surfaces.
type EventKind int

const (
	// Changed covers both Create and Modify.
	Changed EventKind = iota
	Removed
)

// VaultEvent is a single change observed under the watched root, reported
// as a path relative to that root.
type VaultEvent struct {
	Kind EventKind
	Path string
}

// Watcher surfaces a lazy sequence of VaultEvents for a vault root: a
// blocking-with-timeout RecvTimeout and a non-blocking TryRecv, backed by an
// OS-native fsnotify watcher with a debounce window collapsing bursts of
// writes to the same file into a single Changed event. Cancellation is by
// calling Close, which releases the OS watch handles.
type Watcher struct {
	root string

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer

	events chan VaultEvent
	errs   chan error
	done   chan struct{}
	closed bool
}

// DebounceDelay is the window over which bursts of Create/Write/Rename
// events on the same path collapse to a single Changed delivery.
const DebounceDelay = 2 * time.Second

// NewWatcher starts watching every non-hidden directory under root
// (recursively) and returns a Watcher ready to be drained via RecvTimeout or
// TryRecv. Newly created subdirectories are watched automatically.
func NewWatcher(root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:    root,
		fsw:     fsw,
		pending: make(map[string]bool),
		events:  make(chan VaultEvent, 256),
		errs:    make(chan error, 16),
		done:    make(chan struct{}),
	}

	for _, d := range walkDirs(root) {
		_ = fsw.Add(d) // best effort; unreadable dirs are skipped silently
	}

	go w.loop()
	return w, nil
}

// RecvTimeout blocks until an event is available or the timeout elapses,
// returning ok=false on timeout or after Close.
func (w *Watcher) RecvTimeout(d time.Duration) (ev VaultEvent, ok bool) {
	select {
	case ev, ok = <-w.events:
		return ev, ok
	case <-time.After(d):
		return VaultEvent{}, false
	}
}

// TryRecv returns immediately; ok is false when no event is currently
// queued.
func (w *Watcher) TryRecv() (ev VaultEvent, ok bool) {
	select {
	case ev, ok = <-w.events:
		return ev, ok
	default:
		return VaultEvent{}, false
	}
}

// Errors exposes watcher-internal errors. A send on this channel never
// terminates the watcher itself (spec §7: file-watcher errors terminate the
// watcher only, never the core); callers may simply ignore it.
func (w *Watcher) Errors() <-chan error { return w.errs }

// Close stops the underlying notifier and releases OS resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	defer close(w.events)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if isHidden(w.root, event.Name) {
		return
	}

	if event.Has(fsnotify.Create) {
		if isDir(event.Name) {
			name := filepath.Base(event.Name)
			if !strings.HasPrefix(name, ".") {
				_ = w.fsw.Add(event.Name)
			}
			return
		}
	}

	if !strings.HasSuffix(event.Name, ".md") {
		return
	}

	if event.Has(fsnotify.Remove) {
		w.emit(VaultEvent{Kind: Removed, Path: relPath(w.root, event.Name)})
		return
	}

	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
		w.debounce(event.Name)
	}
}

func (w *Watcher) debounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending[path] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(DebounceDelay, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	closed := w.closed
	w.mu.Unlock()

	if closed {
		return
	}
	for _, p := range paths {
		w.emit(VaultEvent{Kind: Changed, Path: relPath(w.root, p)})
	}
}

func (w *Watcher) emit(ev VaultEvent) {
	select {
	case w.events <- ev:
	case <-w.done:
	}
}

func walkDirs(root string) []string {
	var dirs []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if name != "." && strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// isHidden reports whether the first path component after root begins with
// a dot.
func isHidden(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	return len(parts) > 0 && strings.HasPrefix(parts[0], ".")
}
