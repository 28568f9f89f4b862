package cmake

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/hupe1980/def2cmake/internal/graph"
	"github.com/hupe1980/def2cmake/internal/logging"
	"github.com/hupe1980/def2cmake/internal/output"
	"github.com/hupe1980/def2cmake/internal/source"
)

// ManifestName is the file name of every generated CMake manifest.
const ManifestName = "CMakeLists.txt"

// DefaultMinimumVersion is the CMake version required by the preamble.
const DefaultMinimumVersion = "3.3"

// Layout selects how descriptors are distributed over files.
type Layout string

const (
	// LayoutFlat writes every descriptor into the top-level manifest, with
	// scripts next to it.
	LayoutFlat Layout = "flat"

	// LayoutSubdirectory gives each component its own directory holding its
	// manifest fragment and scripts; the top-level manifest includes them
	// with add_subdirectory.
	LayoutSubdirectory Layout = "subdirectory"
)

// minimumVersionFloor is the oldest CMake whose ExternalProject supports
// every keyword we emit.
var minimumVersionFloor = semver.MustParse("3.0.0")

// Options configures an Exporter.
type Options struct {
	// MinimumVersion is written to cmake_minimum_required.
	MinimumVersion string

	// Aliases are checked in order; the first matching prefix wins.
	Aliases []Alias

	Layout Layout

	// Prune removes generated files of a previous export that the current
	// export no longer produces.
	Prune bool

	// ScriptMode is the permission of generated scripts.
	ScriptMode os.FileMode

	Logger *slog.Logger
}

// DefaultOptions returns the options matching the Baserock conventions.
func DefaultOptions() Options {
	return Options{
		MinimumVersion: DefaultMinimumVersion,
		Aliases:        DefaultAliases(),
		Layout:         LayoutSubdirectory,
		Prune:          true,
		ScriptMode:     0o644,
	}
}

// Validate checks that the options can produce a usable manifest.
func (o Options) Validate() error {
	v, err := semver.NewVersion(o.MinimumVersion)
	if err != nil {
		return fmt.Errorf("invalid minimum CMake version %q: %w", o.MinimumVersion, err)
	}

	if v.LessThan(minimumVersionFloor) {
		return fmt.Errorf("minimum CMake version %s is older than %s", o.MinimumVersion, minimumVersionFloor)
	}

	switch o.Layout {
	case LayoutFlat, LayoutSubdirectory:
	default:
		return fmt.Errorf("invalid layout %q: must be one of flat, subdirectory", o.Layout)
	}

	return ValidateAliases(o.Aliases)
}

// Exporter renders ordered build sequences into CMake manifests.
type Exporter struct {
	opts   Options
	logger *slog.Logger
}

// New creates an Exporter after validating opts.
func New(opts Options) (*Exporter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	if opts.ScriptMode == 0 {
		opts.ScriptMode = 0o644
	}

	return &Exporter{opts: opts, logger: logger}, nil
}

// Options returns the exporter's configuration.
func (e *Exporter) Options() Options {
	return e.opts
}

// Preamble returns the fixed head of the top-level manifest.
func (e *Exporter) Preamble() string {
	var b strings.Builder

	fmt.Fprintf(&b, "cmake_minimum_required(VERSION %s)\n\n", e.opts.MinimumVersion)
	b.WriteString("include(ExternalProject)\n\n")

	for _, a := range e.opts.Aliases {
		fmt.Fprintf(&b, "set(%s %s)\n", a.Variable, Escape(a.BaseURL))
	}

	if len(e.opts.Aliases) > 0 {
		b.WriteString("\n")
	}

	return b.String()
}

// Describe builds the descriptors of seq in sequence order.
func (e *Exporter) Describe(seq []*source.Component) ([]Descriptor, error) {
	descs := make([]Descriptor, 0, len(seq))

	for _, c := range seq {
		d, err := NewDescriptor(c, e.opts.Aliases)
		if err != nil {
			return nil, err
		}

		descs = append(descs, d)
	}

	return descs, nil
}

// Render produces the generated files for seq, which must already be in
// build order: component files in sequence order, then the top-level
// manifest. Nothing is written to disk.
func (e *Exporter) Render(seq []*source.Component) (*output.Tree, error) {
	descs, err := e.Describe(seq)
	if err != nil {
		return nil, err
	}

	return e.RenderDescriptors(descs)
}

// RenderDescriptors is Render for descriptors that were already built.
func (e *Exporter) RenderDescriptors(descs []Descriptor) (*output.Tree, error) {
	tree := output.NewTree()

	var manifest strings.Builder

	manifest.WriteString(e.Preamble())

	for i, d := range descs {
		e.logger.Debug("exporting component",
			slog.String("component", d.Name),
			slog.String("repository", d.GitRepository),
			slog.String("ref", d.GitTag),
			slog.Any("depends", d.Depends),
		)

		dir := ""

		switch e.opts.Layout {
		case LayoutSubdirectory:
			if d.Name == ManifestName {
				return nil, &source.GraphError{Component: d.Name, Reason: "name collides with the top-level manifest"}
			}

			dir = d.Name

			if err := tree.Add(path.Join(dir, ManifestName), []byte(d.Render()), 0); err != nil {
				return nil, fmt.Errorf("component %s: %w", d.Name, err)
			}

			fmt.Fprintf(&manifest, "add_subdirectory(%s)\n", d.Name)
		default:
			if i > 0 {
				manifest.WriteString("\n")
			}

			manifest.WriteString(d.Render())
		}

		for _, s := range d.Scripts {
			e.logger.Info("command sequence moved to script",
				slog.String("component", d.Name),
				slog.String("phase", string(s.Phase)),
				slog.String("script", s.Name),
			)

			if err := tree.Add(path.Join(dir, s.Name), []byte(s.Content), e.opts.ScriptMode); err != nil {
				return nil, fmt.Errorf("component %s: %w", d.Name, err)
			}
		}
	}

	if err := tree.Add(ManifestName, []byte(manifest.String()), 0); err != nil {
		return nil, err
	}

	return tree, nil
}

// Result summarises one export run.
type Result struct {
	Root        *source.Component
	Sequence    []*source.Component
	Descriptors []Descriptor
	Tree        *output.Tree
	Pruned      []string
}

// Plan resolves the root declared by definitionFile, orders its closure and
// renders it, without touching the file system.
func (e *Exporter) Plan(ctx context.Context, src source.GraphSource, definitionFile string) (*Result, error) {
	root, seq, err := graph.OrderedSequence(ctx, src, definitionFile)
	if err != nil {
		return nil, err
	}

	e.logger.Info("resolved build order",
		slog.String("root", root.Name),
		slog.Int("components", len(seq)),
	)

	descs, err := e.Describe(seq)
	if err != nil {
		return nil, err
	}

	tree, err := e.RenderDescriptors(descs)
	if err != nil {
		return nil, err
	}

	return &Result{Root: root, Sequence: seq, Descriptors: descs, Tree: tree}, nil
}

// Export plans the export of definitionFile and writes the result below
// outDir. A root or graph failure leaves outDir untouched; a write failure
// may leave it partially written.
func (e *Exporter) Export(ctx context.Context, src source.GraphSource, definitionFile, outDir string) (*Result, error) {
	res, err := e.Plan(ctx, src, definitionFile)
	if err != nil {
		return nil, err
	}

	if err := e.Write(res, outDir); err != nil {
		return nil, err
	}

	return res, nil
}

// Write writes a planned result below outDir and, when pruning is enabled,
// removes the generated files it no longer contains. Removed paths are
// recorded in res.Pruned.
func (e *Exporter) Write(res *Result, outDir string) error {
	if err := res.Tree.WriteDir(outDir, e.logger); err != nil {
		return err
	}

	if e.opts.Prune {
		pruned, err := output.Prune(outDir, res.Tree, e.logger)
		if err != nil {
			return err
		}

		res.Pruned = pruned
	}

	e.logger.Info("export complete",
		slog.String("root", res.Root.Name),
		slog.String("output", outDir),
		slog.Int("files", res.Tree.Len()),
		slog.Int("pruned", len(res.Pruned)),
	)

	return nil
}
