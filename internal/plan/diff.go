package plan

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DiffOptions labels the two sides of a file diff.
type DiffOptions struct {
	OldLabel string
	NewLabel string
	Context  int
}

// DefaultDiffOptions labels the sides a/ and b/, as git does.
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		OldLabel: "a",
		NewLabel: "b",
		Context:  3,
	}
}

// DiffResult is the unified diff of one generated file between what is on
// disk and what the export would write.
type DiffResult struct {
	Unified string
	Added   int
	Removed int
}

// HasDifferences reports whether the two sides differ.
func (d *DiffResult) HasDifferences() bool {
	return d != nil && d.Unified != ""
}

// Stat returns the changed line counts in the form "+3 -1".
func (d *DiffResult) Stat() string {
	return fmt.Sprintf("+%d -%d", d.Added, d.Removed)
}

// ComputeDiff diffs the current content of a file against its regenerated
// content. Either side may be empty for added and removed files.
func ComputeDiff(current, generated string, opts DiffOptions) (*DiffResult, error) {
	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        fileLines(current),
		B:        fileLines(generated),
		FromFile: opts.OldLabel,
		ToFile:   opts.NewLabel,
		Context:  opts.Context,
	})
	if err != nil {
		return nil, fmt.Errorf("computing diff: %w", err)
	}

	result := &DiffResult{Unified: unified}

	inHunk := false

	for _, line := range strings.Split(unified, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			inHunk = true
		case !inHunk:
		case strings.HasPrefix(line, "+"):
			result.Added++
		case strings.HasPrefix(line, "-"):
			result.Removed++
		}
	}

	return result, nil
}

// fileLines splits s into newline-terminated lines. A missing final newline
// is added so the last line diffs like the others.
func fileLines(s string) []string {
	if s == "" {
		return nil
	}

	lines := strings.SplitAfter(s, "\n")

	if last := lines[len(lines)-1]; last == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] = last + "\n"
	}

	return lines
}

const ansiReset = "\033[0m"

func lineColor(line string) string {
	switch {
	case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
		return "\033[1m"
	case strings.HasPrefix(line, "@@"):
		return "\033[36m"
	case strings.HasPrefix(line, "-"):
		return "\033[31m"
	case strings.HasPrefix(line, "+"):
		return "\033[32m"
	default:
		return ""
	}
}

// WriteDiff writes the unified diff of d, optionally with ANSI colors.
func WriteDiff(w io.Writer, d *DiffResult, color bool) {
	if !d.HasDifferences() {
		_, _ = fmt.Fprintln(w, "No differences found.")
		return
	}

	for _, line := range strings.Split(strings.TrimSuffix(d.Unified, "\n"), "\n") {
		if c := lineColor(line); color && c != "" {
			_, _ = fmt.Fprintf(w, "%s%s%s\n", c, line, ansiReset)
			continue
		}

		_, _ = fmt.Fprintln(w, line)
	}
}
