// Package watch re-exports a definition whenever the definitions
// repository changes. It watches the repository recursively, ignores
// editor noise, git-ignored paths and the export's own output, debounces
// bursts of events and reports what each run produced.
package watch
