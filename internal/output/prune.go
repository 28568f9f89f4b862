package output

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const manifestName = "CMakeLists.txt"

var scriptNamePattern = regexp.MustCompile(`^.+-(configure|build|install)\.sh$`)

// IsGeneratedPath reports whether rel, a slash-separated path relative to an
// output directory, is a place an export writes to: a CMakeLists.txt or a
// phase script, at the top level or one directory down.
func IsGeneratedPath(rel string) bool {
	parts := strings.Split(rel, "/")
	if len(parts) > 2 {
		return false
	}

	name := parts[len(parts)-1]

	return name == manifestName || scriptNamePattern.MatchString(name)
}

// IsGenerated reports whether a file with the given base name and content
// looks like something this tool writes: a phase script starting with its
// "# <phase> commands for <name>" header, or a CMakeLists.txt using
// ExternalProject.
func IsGenerated(name string, content []byte) bool {
	if name == manifestName {
		return bytes.Contains(content, []byte("ExternalProject"))
	}

	m := scriptNamePattern.FindStringSubmatch(name)
	if m == nil {
		return false
	}

	return bytes.HasPrefix(content, []byte("# "+m[1]+" commands for "))
}

// Stale lists the generated files in dir that keep does not contain,
// relative to dir in slash form and sorted. Only the top level and its
// direct subdirectories are searched, since nothing deeper is ever
// generated. A missing dir has none.
func Stale(dir string, keep *Tree) ([]string, error) {
	candidates, err := candidatePaths(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("scanning output directory %s: %w", dir, err)
	}

	var stale []string

	for _, rel := range candidates {
		if keep != nil && keep.Has(rel) {
			continue
		}

		p := filepath.Join(dir, filepath.FromSlash(rel))

		content, err := os.ReadFile(p) //nolint:gosec // inside the output dir
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}

		if IsGenerated(path.Base(rel), content) {
			stale = append(stale, rel)
		}
	}

	sort.Strings(stale)

	return stale, nil
}

// candidatePaths returns the regular files of dir and of its non-hidden
// subdirectories whose location matches IsGeneratedPath.
func candidatePaths(dir string) ([]string, error) {
	top, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var rels []string

	for _, e := range top {
		switch {
		case e.Type().IsRegular():
			if IsGeneratedPath(e.Name()) {
				rels = append(rels, e.Name())
			}
		case e.IsDir() && !strings.HasPrefix(e.Name(), "."):
			sub, err := os.ReadDir(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, err
			}

			for _, s := range sub {
				rel := e.Name() + "/" + s.Name()
				if s.Type().IsRegular() && IsGeneratedPath(rel) {
					rels = append(rels, rel)
				}
			}
		}
	}

	return rels, nil
}

// Prune removes generated files below dir that keep does not contain, then
// removes directories emptied by that. Files that do not look generated are
// never touched. It returns the removed paths relative to dir, sorted.
func Prune(dir string, keep *Tree, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	stale, err := Stale(dir, keep)
	if err != nil {
		return nil, err
	}

	touched := make(map[string]struct{})

	for _, rel := range stale {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.Remove(p); err != nil {
			return nil, fmt.Errorf("removing stale file %s: %w", p, err)
		}

		logger.Info("removed stale file", slog.String("path", p))

		for parent := filepath.Dir(p); parent != filepath.Clean(dir); parent = filepath.Dir(parent) {
			touched[parent] = struct{}{}
		}
	}

	// Deepest directories first so parents see their children gone.
	dirs := make([]string, 0, len(touched))
	for d := range touched {
		dirs = append(dirs, d)
	}

	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })

	for _, d := range dirs {
		entries, err := os.ReadDir(d)
		if err != nil || len(entries) > 0 {
			continue
		}

		if err := os.Remove(d); err != nil {
			return nil, fmt.Errorf("removing empty directory %s: %w", d, err)
		}
	}

	return stale, nil
}
