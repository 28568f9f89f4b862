package watch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/hupe1980/def2cmake/internal/output"
)

// ignoreFilter decides which paths below the definitions root never
// trigger a run.
type ignoreFilter struct {
	root      string
	outputDir string
	gitignore bool

	// sharedRoot is set when the definitions live inside the output dir.
	// Only generated files are skipped then, not the whole tree.
	sharedRoot bool
}

func newIgnoreFilter(root, outputDir string, useGitignore bool) *ignoreFilter {
	f := &ignoreFilter{root: absClean(root), gitignore: useGitignore}

	if outputDir != "" {
		f.outputDir = absClean(outputDir)
		f.sharedRoot = within(f.root, f.outputDir)
	}

	return f
}

func absClean(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}

	return filepath.Clean(p)
}

func within(p, dir string) bool {
	return p == dir || strings.HasPrefix(p, dir+string(filepath.Separator))
}

// ignored reports whether path is exported output or matches a .gitignore
// pattern of the definitions repository. Exported output is everything
// below the output dir, or only the generated files when the definitions
// themselves live there.
func (f *ignoreFilter) ignored(path string, isDir bool) bool {
	abs := absClean(path)

	switch {
	case f.outputDir == "":
	case f.sharedRoot:
		if rel, err := filepath.Rel(f.outputDir, abs); err == nil && !isDir && output.IsGeneratedPath(filepath.ToSlash(rel)) {
			return true
		}
	case within(abs, f.outputDir):
		return true
	}

	if !f.gitignore {
		return false
	}

	rel, err := filepath.Rel(f.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}

	patterns := readPatterns(f.root, parentDirs(rel))
	if len(patterns) == 0 {
		return false
	}

	return gitignore.NewMatcher(patterns).Match(strings.Split(filepath.ToSlash(rel), "/"), isDir)
}

// parentDirs returns ".", then every directory on the way to rel's parent.
func parentDirs(rel string) []string {
	dirs := []string{"."}

	dir := filepath.Dir(rel)
	if dir == "." {
		return dirs
	}

	cur := ""
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		cur = filepath.Join(cur, part)
		dirs = append(dirs, cur)
	}

	return dirs
}

// readPatterns loads the .gitignore files of dirs, each pattern scoped to
// the directory it was read from.
func readPatterns(root string, dirs []string) []gitignore.Pattern {
	var patterns []gitignore.Pattern

	for _, d := range dirs {
		data, err := os.ReadFile(filepath.Join(root, d, ".gitignore")) //nolint:gosec // inside the definitions repository
		if err != nil {
			continue
		}

		var domain []string
		if d != "." {
			domain = strings.Split(filepath.ToSlash(d), "/")
		}

		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			patterns = append(patterns, gitignore.ParsePattern(line, domain))
		}
	}

	return patterns
}
