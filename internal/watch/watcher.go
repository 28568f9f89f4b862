package watch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/def2cmake/internal/plan"
)

// RunFunc is called each time the watcher triggers an export.
type RunFunc func(ctx context.Context) (*RunResult, error)

// RunResult summarises one export for the status line.
type RunResult struct {
	Root       string
	Components int
	Files      int
	Scripts    int
	Pruned     int
	Warnings   int

	// Changes compares the export with the one before it; nil on the
	// first run.
	Changes *plan.EvolutionResult
}

// Options configures the watch behaviour.
type Options struct {
	// DefinitionsDir is the definitions repository root to watch recursively.
	DefinitionsDir string

	// OutputDir is the export target. Events below it are ignored so that
	// an output dir inside the repository does not retrigger itself.
	OutputDir string

	// ExtraFiles are additional files to watch (e.g. the config file).
	ExtraFiles []string

	// Debounce is the quiet period before triggering an export.
	Debounce time.Duration

	// Gitignore skips paths matched by the repository's .gitignore files.
	Gitignore bool

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Debounce:  500 * time.Millisecond,
		Gitignore: true,
		Logger:    slog.Default(),
		Out:       os.Stderr,
	}
}

// Run starts the file watcher and blocks until the context is cancelled
// or a SIGINT/SIGTERM signal is received.
func Run(ctx context.Context, opts Options, runFn RunFunc) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	filter := newIgnoreFilter(opts.DefinitionsDir, opts.OutputDir, opts.Gitignore)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, opts.DefinitionsDir, filter); err != nil {
		return fmt.Errorf("watching definitions directory: %w", err)
	}

	extra := make(map[string]bool, len(opts.ExtraFiles))

	for _, f := range opts.ExtraFiles {
		abs, absErr := filepath.Abs(f)
		if absErr != nil {
			return fmt.Errorf("resolving extra file %q: %w", f, absErr)
		}

		if err := watcher.Add(abs); err != nil {
			return fmt.Errorf("watching file %q: %w", abs, err)
		}

		extra[filepath.Clean(abs)] = true
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(opts.Out, "watching %s (debounce=%s)\n", opts.DefinitionsDir, opts.Debounce)

	doRun(sigCtx, opts, runFn, "(initial)", 0)

	debouncer := NewDebouncer(opts.Debounce, func(path string, events int) {
		doRun(sigCtx, opts, runFn, displayPath(opts.DefinitionsDir, path), events)
	})
	defer debouncer.Stop()

	for {
		select {
		case <-sigCtx.Done():
			fmt.Fprintln(opts.Out, "\nshutting down watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Extra files such as .def2cmake.yaml are hidden but always count.
			relevant := isRelevant(event)
			if extra[absClean(event.Name)] {
				relevant = changesContent(event)
			}

			if !relevant {
				continue
			}

			info, statErr := os.Stat(event.Name)
			isDir := statErr == nil && info.IsDir()

			if filter.ignored(event.Name, isDir) {
				opts.Logger.Debug("ignoring event", slog.String("path", event.Name), slog.String("op", event.Op.String()))
				continue
			}

			if isDir && event.Has(fsnotify.Create) {
				_ = addRecursive(watcher, event.Name, filter)
			}

			debouncer.Trigger(event.Name)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// doRun executes a single export and prints the status line.
func doRun(ctx context.Context, opts Options, runFn RunFunc, trigger string, events int) {
	now := time.Now().Format("15:04:05")

	if events > 1 {
		trigger = fmt.Sprintf("%s (+%d more)", trigger, events-1)
	}

	result, err := runFn(ctx)
	if err != nil {
		fmt.Fprintf(opts.Out, "[%s] %s → ERROR: %v\n", now, trigger, err)
		return
	}

	fmt.Fprintf(opts.Out, "[%s] %s → OK %s (%d components, %d files, %d scripts, %d pruned)\n",
		now, trigger, result.Root, result.Components, result.Files, result.Scripts, result.Pruned)

	if result.Changes != nil && result.Changes.HasChanges() {
		fmt.Fprintf(opts.Out, "  changes: %s (%d to rebuild)\n",
			plan.FormatCompactSummary(result.Changes), result.Changes.RebuildCount())
	}

	if result.Warnings > 0 {
		fmt.Fprintf(opts.Out, "  validate: %d warnings\n", result.Warnings)
	}
}

func displayPath(root, p string) string {
	if rel, err := filepath.Rel(root, p); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}

	return p
}

// addRecursive walks root and adds every directory that is neither hidden
// nor ignored to the watcher.
func addRecursive(watcher *fsnotify.Watcher, root string, filter *ignoreFilter) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != root {
			if strings.HasPrefix(d.Name(), ".") || (filter != nil && filter.ignored(path, true)) {
				return filepath.SkipDir
			}
		}

		return watcher.Add(path)
	})
}

// isRelevant filters out events that cannot change a definition.
func isRelevant(event fsnotify.Event) bool {
	if !changesContent(event) {
		return false
	}

	name := filepath.Base(event.Name)

	// Editor temporary files and hidden files.
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") || strings.HasPrefix(name, "#") {
		return false
	}

	return true
}

// changesContent reports whether event may have altered a file's content.
func changesContent(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
