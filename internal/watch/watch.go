// Package watch recompiles specifications as they change on disk.
//
// Events are debounced per spec so editors that write in bursts
// trigger one compile, not five. Compiles run serially inside the
// event loop: the agent owns the terminal while it works, and events
// arriving meanwhile queue up for the next flush.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tlc-tools/tlc/internal/logbook"
	"github.com/tlc-tools/tlc/internal/specset"
)

// DefaultDebounce is the quiet period after the last event before
// queued specs are compiled.
const DefaultDebounce = 400 * time.Millisecond

// CompileFunc is invoked once per changed spec after the debounce
// window closes. Reporting the outcome is the callback's business.
type CompileFunc func(ctx context.Context, specPath string)

// Options configures one watch loop.
type Options struct {
	Root     string
	Globs    []string
	Ignore   []string
	Debounce time.Duration    // zero selects DefaultDebounce
	Log      *logbook.Logbook // nil disables the journal
}

// Run watches the project tree under opts.Root until ctx is canceled,
// calling compile for every spec that changes. Hidden directories are
// never watched, which keeps .tlc/ and .git/ churn out of the loop.
func Run(ctx context.Context, opts Options, compile CompileFunc) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	if err := addTree(w, opts.Root); err != nil {
		return fmt.Errorf("watch: %s: %w", opts.Root, err)
	}
	opts.Log.Info("watching %s", opts.Root)

	timer := time.NewTimer(opts.Debounce)
	stopTimer(timer)
	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			// Directories created mid-run join the watch so specs
			// born inside them are seen too.
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if !strings.HasPrefix(filepath.Base(ev.Name), ".") {
						_ = addTree(w, ev.Name)
					}
				}
			}

			rel, inside := relPath(opts.Root, ev.Name)
			if !inside || !wantOp(ev.Op) {
				continue
			}
			if !specset.Matches(rel, opts.Globs, opts.Ignore) {
				continue
			}
			pending[rel] = struct{}{}
			resetTimer(timer, opts.Debounce)

		case <-timer.C:
			for _, spec := range drain(pending) {
				if ctx.Err() != nil {
					return nil
				}
				// A rename can leave a queued spec that no longer
				// exists; compiling it would only report a missing file.
				if _, err := os.Stat(filepath.Join(opts.Root, filepath.FromSlash(spec))); err != nil {
					continue
				}
				opts.Log.Info("watch: %s changed, compiling", spec)
				compile(ctx, spec)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			opts.Log.Warn("watch: %v", err)
		}
	}
}

// wantOp filters for events that can change a spec's content or bring
// one into existence. Removals compile nothing.
func wantOp(op fsnotify.Op) bool {
	return op.Has(fsnotify.Create) || op.Has(fsnotify.Write) || op.Has(fsnotify.Rename)
}

// relPath maps an event path to a slash-separated path relative to
// root; ok is false for paths outside the tree.
func relPath(root, name string) (string, bool) {
	rel, err := filepath.Rel(root, name)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// addTree registers dir and every non-hidden directory below it.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if addErr := w.Add(path); addErr != nil && path == dir {
			return addErr
		}
		return nil
	})
}

func drain(pending map[string]struct{}) []string {
	specs := make([]string, 0, len(pending))
	for spec := range pending {
		specs = append(specs, spec)
		delete(pending, spec)
	}
	sort.Strings(specs)
	return specs
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	t.Reset(d)
}
