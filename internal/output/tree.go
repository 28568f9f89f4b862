package output

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// File is one generated file. Path is relative to the output directory and
// always uses forward slashes.
type File struct {
	Path    string
	Content []byte
	Mode    os.FileMode
}

// Tree is an ordered set of generated files. Files keep the order in which
// they were added, which is the order they are written in.
type Tree struct {
	files []File
	index map[string]int
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{index: make(map[string]int)}
}

// Add appends a file. The path must be relative, clean, stay inside the
// output directory and not have been added before.
func (t *Tree) Add(p string, content []byte, mode os.FileMode) error {
	clean := path.Clean(p)
	if p == "" || clean != p || path.IsAbs(p) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("invalid output path %q", p)
	}

	if _, dup := t.index[p]; dup {
		return fmt.Errorf("duplicate output path %q", p)
	}

	if mode == 0 {
		mode = 0o644
	}

	t.index[p] = len(t.files)
	t.files = append(t.files, File{Path: p, Content: content, Mode: mode})

	return nil
}

// Files returns the files in emission order.
func (t *Tree) Files() []File {
	return t.files
}

// Paths returns the relative file paths in emission order.
func (t *Tree) Paths() []string {
	paths := make([]string, 0, len(t.files))
	for _, f := range t.files {
		paths = append(paths, f.Path)
	}

	return paths
}

// Get returns the file stored under p.
func (t *Tree) Get(p string) (File, bool) {
	i, ok := t.index[p]
	if !ok {
		return File{}, false
	}

	return t.files[i], true
}

// Has reports whether the tree contains p.
func (t *Tree) Has(p string) bool {
	_, ok := t.index[p]
	return ok
}

// Len returns the number of files.
func (t *Tree) Len() int {
	return len(t.files)
}

// WriteDir writes every file below dir, in emission order. Writing stops at
// the first failure; files written before it are left in place.
func (t *Tree) WriteDir(dir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	unchanged := 0

	for _, f := range t.files {
		target := filepath.Join(dir, filepath.FromSlash(f.Path))
		w := NewFileWriter(target, WithPermissions(f.Mode), WithLogger(logger))

		if err := w.Write(f.Content); err != nil {
			return err
		}

		if w.Unchanged() {
			unchanged++
			continue
		}

		logger.Debug("wrote file", slog.String("path", target), slog.Int("bytes", len(f.Content)))
	}

	logger.Debug("output directory up to date",
		slog.String("dir", dir),
		slog.Int("written", len(t.files)-unchanged),
		slog.Int("unchanged", unchanged),
	)

	return nil
}

// Dump writes every file to w, each preceded by a "==> path <==" banner.
func (t *Tree) Dump(w Writer) error {
	for i, f := range t.files {
		var b strings.Builder

		if i > 0 {
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "==> %s <==\n", f.Path)
		b.Write(f.Content)

		if err := w.Write([]byte(b.String())); err != nil {
			return err
		}
	}

	return nil
}
