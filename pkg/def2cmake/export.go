// Package def2cmake provides a public Go API for exporting Baserock
// definitions as CMake ExternalProject builds.
//
// This package exposes the def2cmake export pipeline as a library,
// allowing programmatic use without the CLI.
//
// Basic usage:
//
//	result, err := def2cmake.Export(ctx, "definitions/systems/base-system-x86_64.morph")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(string(result.Files["CMakeLists.txt"]))
//
// With options:
//
//	result, err := def2cmake.Export(ctx, "systems/base-system-x86_64.morph",
//	    def2cmake.WithDefinitionsDir("definitions"),
//	    def2cmake.WithOutputDir("build"),
//	    def2cmake.WithLayout(def2cmake.LayoutFlat),
//	)
package def2cmake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hupe1980/def2cmake/internal/cmake"
	"github.com/hupe1980/def2cmake/internal/definitions"
	"github.com/hupe1980/def2cmake/internal/gitcache"
	"github.com/hupe1980/def2cmake/internal/logging"
)

// Layout selects how the generated files are arranged.
type Layout = cmake.Layout

// Output layouts.
const (
	LayoutFlat         = cmake.LayoutFlat
	LayoutSubdirectory = cmake.LayoutSubdirectory
)

// Alias maps a repository prefix such as "upstream:" to a CMake variable.
type Alias = cmake.Alias

// DefaultAliases returns the Baserock repository aliases.
func DefaultAliases() []Alias { return cmake.DefaultAliases() }

// Option configures the export pipeline.
// Use the With* functions to create Options.
type Option func(*options)

type options struct {
	definitionsDir string
	outputDir      string
	cacheDir       string
	dryRun         bool
	logger         *slog.Logger
	exporter       cmake.Options
}

// WithDefinitionsDir sets the definitions repository. Relative definition
// files are resolved against it. Defaults to the directory of the
// definition file.
func WithDefinitionsDir(dir string) Option { return func(o *options) { o.definitionsDir = dir } }

// WithOutputDir writes the export below dir. Without it nothing is written.
func WithOutputDir(dir string) Option { return func(o *options) { o.outputDir = dir } }

// WithDryRun leaves the output directory untouched even when one is set.
func WithDryRun() Option { return func(o *options) { o.dryRun = true } }

// WithLayout sets the output layout (default: subdirectory).
func WithLayout(l Layout) Option { return func(o *options) { o.exporter.Layout = l } }

// WithMinimumVersion sets the version passed to cmake_minimum_required
// (default: 3.3).
func WithMinimumVersion(v string) Option { return func(o *options) { o.exporter.MinimumVersion = v } }

// WithAliases replaces the default repository aliases. An empty list keeps
// every repository verbatim.
func WithAliases(aliases []Alias) Option {
	return func(o *options) { o.exporter.Aliases = append([]Alias{}, aliases...) }
}

// WithoutPrune keeps generated files of a previous export that the
// current export no longer produces.
func WithoutPrune() Option { return func(o *options) { o.exporter.Prune = false } }

// WithCacheDir resolves symbolic refs against the git mirrors below dir.
func WithCacheDir(dir string) Option { return func(o *options) { o.cacheDir = dir } }

// WithLogger sets the logger. Logging is discarded by default.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// Component is one step of the build order.
type Component struct {
	Name       string
	Kind       string
	Repository string
	Ref        string
	DependsOn  []string
}

// Result holds the output of a successful export.
type Result struct {
	// Root is the component declared by the definition file.
	Root string

	// Components is the build order, dependencies first.
	Components []Component

	// Files maps each generated path, relative to the output directory and
	// slash-separated, to its content.
	Files map[string][]byte

	// Paths lists the keys of Files in write order.
	Paths []string

	// Pruned lists the files removed from the output directory.
	Pruned []string

	// Warnings are the validation warnings of the build order, such as
	// refs that are not commit SHAs.
	Warnings []string
}

// Export resolves the component declared by definitionFile, orders its
// dependency closure and renders the CMake manifests. With WithOutputDir
// the files are also written.
//
// Pass no options to use all defaults:
//
//	result, err := def2cmake.Export(ctx, "systems/base-system-x86_64.morph")
func Export(ctx context.Context, definitionFile string, opts ...Option) (*Result, error) {
	if definitionFile == "" {
		return nil, errors.New("definition file must not be empty")
	}

	o := &options{exporter: cmake.DefaultOptions()}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = logging.Discard()
	}

	o.exporter.Logger = o.logger

	exporter, err := cmake.New(o.exporter)
	if err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	srcOpts := []definitions.Option{definitions.WithLogger(o.logger)}

	if o.cacheDir != "" {
		aliases := o.exporter.Aliases

		resolver, err := gitcache.New(o.cacheDir,
			gitcache.WithURLExpander(func(repo string) string { return cmake.ExpandRepoAlias(repo, aliases) }),
			gitcache.WithLogger(o.logger),
		)
		if err != nil {
			return nil, err
		}

		srcOpts = append(srcOpts, definitions.WithResolver(resolver))
	}

	repoDir := o.definitionsDir
	if repoDir == "" {
		repoDir = filepath.Dir(definitionFile)
	}

	src, err := definitions.Open(repoDir, srcOpts...)
	if err != nil {
		return nil, fmt.Errorf("opening definitions: %w", err)
	}

	res, err := exporter.Plan(ctx, src, definitionFile)
	if err != nil {
		return nil, err
	}

	if o.outputDir != "" && !o.dryRun {
		if err := exporter.Write(res, o.outputDir); err != nil {
			return nil, fmt.Errorf("writing output: %w", err)
		}
	}

	return newResult(exporter, res), nil
}

func newResult(exporter *cmake.Exporter, res *cmake.Result) *Result {
	result := &Result{
		Root:   res.Root.Name,
		Files:  make(map[string][]byte, res.Tree.Len()),
		Paths:  res.Tree.Paths(),
		Pruned: res.Pruned,
	}

	for _, c := range res.Sequence {
		result.Components = append(result.Components, Component{
			Name:       c.Name,
			Kind:       string(c.Kind),
			Repository: c.Repo,
			Ref:        c.Ref,
			DependsOn:  cmake.DependsOf(c),
		})
	}

	for _, f := range res.Tree.Files() {
		result.Files[f.Path] = f.Content
	}

	for _, w := range exporter.Validate(res.Sequence).Warnings() {
		result.Warnings = append(result.Warnings, w.Component+": "+w.Message)
	}

	return result
}
