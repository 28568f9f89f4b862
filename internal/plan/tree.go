package plan

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hupe1980/def2cmake/internal/output"
)

// FileStatus classifies a file of a tree diff.
type FileStatus string

// File statuses.
const (
	FileAdded    FileStatus = "added"
	FileModified FileStatus = "modified"
	FileRemoved  FileStatus = "removed"
)

// FileDiff is the difference of one generated file.
type FileDiff struct {
	Path    string      `json:"path"`
	Status  FileStatus  `json:"status"`
	Added   int         `json:"added"`
	Removed int         `json:"removed"`
	Diff    *DiffResult `json:"-"`
}

func newFileDiff(path string, status FileStatus, d *DiffResult) FileDiff {
	return FileDiff{Path: path, Status: status, Added: d.Added, Removed: d.Removed, Diff: d}
}

// DiffTree compares a rendered tree with what is on disk below dir. It
// reports files that would be created or changed, then generated files that
// pruning would remove. Unchanged files are omitted.
func DiffTree(dir string, tree *output.Tree, opts DiffOptions) ([]FileDiff, error) {
	var diffs []FileDiff

	for _, f := range tree.Files() {
		current, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f.Path))) //nolint:gosec // output dir chosen by the user
		status := FileModified

		switch {
		case errors.Is(err, fs.ErrNotExist):
			status = FileAdded
		case err != nil:
			return nil, fmt.Errorf("reading %s: %w", f.Path, err)
		}

		if status == FileModified && string(current) == string(f.Content) {
			continue
		}

		d, err := ComputeDiff(string(current), string(f.Content), labelled(opts, f.Path))
		if err != nil {
			return nil, err
		}

		diffs = append(diffs, newFileDiff(f.Path, status, d))
	}

	stale, err := output.Stale(dir, tree)
	if err != nil {
		return nil, err
	}

	for _, rel := range stale {
		current, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel))) //nolint:gosec // output dir chosen by the user
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}

		d, err := ComputeDiff(string(current), "", labelled(opts, rel))
		if err != nil {
			return nil, err
		}

		diffs = append(diffs, newFileDiff(rel, FileRemoved, d))
	}

	return diffs, nil
}

func labelled(opts DiffOptions, path string) DiffOptions {
	opts.OldLabel += "/" + path
	opts.NewLabel += "/" + path

	return opts
}

// WriteTreeDiff writes a "<status> <path> (+a -r)" line and the unified
// diff of every file, or a single "No differences found." line when there
// are none.
func WriteTreeDiff(w io.Writer, diffs []FileDiff, color bool) {
	if len(diffs) == 0 {
		_, _ = fmt.Fprintln(w, "No differences found.")
		return
	}

	for _, d := range diffs {
		_, _ = fmt.Fprintf(w, "%s %s (+%d -%d)\n", d.Status, d.Path, d.Added, d.Removed)
		WriteDiff(w, d.Diff, color)
	}
}
