package definitions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hupe1980/def2cmake/internal/graph"
	"github.com/hupe1980/def2cmake/internal/logging"
	"github.com/hupe1980/def2cmake/internal/source"
)

// RefResolver turns a symbolic ref of a component repository into an
// immutable revision. Implementations return ref unchanged when it cannot
// be resolved.
type RefResolver interface {
	ResolveRef(ctx context.Context, repo, ref string) string
}

// Option configures a Source.
type Option func(*Source)

// WithResolver resolves chunk refs through r.
func WithResolver(r RefResolver) Option {
	return func(s *Source) {
		s.resolver = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// Source is a GraphSource reading morphologies from a definitions
// repository.
type Source struct {
	repo     *Repository
	resolver RefResolver
	logger   *slog.Logger

	mu       sync.Mutex
	catalogs map[string]map[string]*source.Component
}

var _ source.GraphSource = (*Source)(nil)

// Open creates a Source for the definitions repository enclosing path.
func Open(path string, opts ...Option) (*Source, error) {
	repo, err := OpenRepository(path)
	if err != nil {
		return nil, err
	}

	s := &Source{
		repo:     repo,
		logger:   logging.Discard(),
		catalogs: make(map[string]map[string]*source.Component),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger.Debug("opened definitions repository",
		slog.String("root", repo.Root),
		slog.String("url", repo.URL),
		slog.String("head", repo.Head),
	)

	return s, nil
}

// Repository returns the definitions repository.
func (s *Source) Repository() *Repository {
	return s.repo
}

// Relative maps a definition file given on the command line to its path
// relative to the definitions root. Relative inputs are tried against the
// root first, then against the working directory.
func (s *Source) Relative(definitionFile string) (string, error) {
	if filepath.IsAbs(definitionFile) {
		rel, ok := s.within(definitionFile)
		if !ok {
			return "", fmt.Errorf("%s is outside the definitions repository %s", definitionFile, s.repo.Root)
		}

		return rel, nil
	}

	clean := filepath.Clean(definitionFile)

	if _, err := os.Stat(filepath.Join(s.repo.Root, clean)); err == nil {
		return filepath.ToSlash(clean), nil
	}

	if abs, err := filepath.Abs(clean); err == nil {
		if _, err := os.Stat(abs); err == nil {
			if rel, ok := s.within(abs); ok {
				return rel, nil
			}
		}
	}

	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the definitions repository %s", definitionFile, s.repo.Root)
	}

	return filepath.ToSlash(clean), nil
}

func (s *Source) within(abs string) (string, bool) {
	rel, err := filepath.Rel(s.repo.Root, canonical(abs))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	return filepath.ToSlash(rel), true
}

// Roots returns the component declared by definitionFile. A missing file
// yields no candidates.
func (s *Source) Roots(ctx context.Context, definitionFile string) ([]*source.Component, error) {
	rel, err := s.Relative(definitionFile)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(filepath.Join(s.repo.Root, filepath.FromSlash(rel))); os.IsNotExist(err) {
		return nil, nil
	}

	catalog, err := s.catalog(ctx, rel)
	if err != nil {
		return nil, err
	}

	var roots []*source.Component

	for _, c := range catalog {
		if c.Filename == rel {
			roots = append(roots, c)
		}
	}

	return roots, nil
}

// Closure returns every component reachable from root.
func (s *Source) Closure(ctx context.Context, root *source.Component) ([]*source.Component, error) {
	catalog, err := s.catalog(ctx, root.Filename)
	if err != nil {
		return nil, err
	}

	return graph.Walk(root, func(name string) (*source.Component, bool) {
		c, ok := catalog[name]
		return c, ok
	})
}

func (s *Source) catalog(ctx context.Context, rel string) (map[string]*source.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.catalogs[rel]; ok {
		return c, nil
	}

	l := &loader{
		ctx:        ctx,
		src:        s,
		components: make(map[string]*source.Component),
		strata:     make(map[string]string),
	}

	if err := l.loadTop(rel); err != nil {
		return nil, err
	}

	s.catalogs[rel] = l.components

	return l.components, nil
}

// Invalidate drops every cached catalog so the next call re-reads the
// morphologies from disk.
func (s *Source) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalogs = make(map[string]map[string]*source.Component)
}

type loader struct {
	ctx        context.Context
	src        *Source
	components map[string]*source.Component

	// strata maps a stratum morphology path to its name once parsed.
	strata map[string]string
}

func (l *loader) read(rel string) (*Morphology, error) {
	if err := l.ctx.Err(); err != nil {
		return nil, err
	}

	clean := path.Clean(rel)
	if rel == "" || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return nil, fmt.Errorf("morphology path %q must be relative to the definitions root", rel)
	}

	data, err := os.ReadFile(filepath.Join(l.src.repo.Root, filepath.FromSlash(clean))) //nolint:gosec // path below the definitions root
	if err != nil {
		return nil, fmt.Errorf("reading morphology: %w", err)
	}

	return ParseMorphology(data, clean)
}

func (l *loader) add(c *source.Component) error {
	if prev, ok := l.components[c.Name]; ok {
		if prev.Kind == c.Kind && prev.Repo == c.Repo && prev.Ref == c.Ref {
			return nil
		}

		return &source.GraphError{
			Component: c.Name,
			Reason:    fmt.Sprintf("declared by both %s (%s) and %s (%s)", describe(prev), prev.Kind, describe(c), c.Kind),
		}
	}

	l.components[c.Name] = c

	return nil
}

func describe(c *source.Component) string {
	if c.Filename != "" {
		return c.Filename
	}

	return c.Repo
}

func (l *loader) loadTop(rel string) error {
	m, err := l.read(rel)
	if err != nil {
		return err
	}

	switch source.Kind(m.Kind) {
	case source.KindSystem:
		return l.loadSystem(rel, m)
	case source.KindStratum:
		_, err := l.loadStratum(rel, m)
		return err
	default:
		return fmt.Errorf("%s is a %s morphology; export a stratum or system that includes it", rel, m.Kind)
	}
}

func (l *loader) loadSystem(rel string, m *Morphology) error {
	sys := &source.Component{
		Name:     m.Name,
		Kind:     source.KindSystem,
		Repo:     l.src.repo.URL,
		Ref:      l.src.repo.Head,
		Filename: path.Clean(rel),
	}

	for _, ref := range m.Strata {
		name, err := l.stratum(ref.Morph)
		if err != nil {
			return fmt.Errorf("system %s: %w", m.Name, err)
		}

		sys.Dependencies = append(sys.Dependencies, name)
	}

	return l.add(sys)
}

// stratum loads the stratum at rel once and returns its name.
func (l *loader) stratum(rel string) (string, error) {
	rel = path.Clean(rel)
	if name, ok := l.strata[rel]; ok {
		return name, nil
	}

	m, err := l.read(rel)
	if err != nil {
		return "", err
	}

	if source.Kind(m.Kind) != source.KindStratum {
		return "", fmt.Errorf("%s: expected a stratum morphology, got %s", rel, m.Kind)
	}

	return l.loadStratum(rel, m)
}

func (l *loader) loadStratum(rel string, m *Morphology) (string, error) {
	rel = path.Clean(rel)

	// Record the name before following build-depends so that cyclic
	// strata become graph edges instead of endless recursion.
	l.strata[rel] = m.Name

	st := &source.Component{
		Name:     m.Name,
		Kind:     source.KindStratum,
		Repo:     l.src.repo.URL,
		Ref:      l.src.repo.Head,
		Filename: rel,
	}

	var stratumDeps []string

	for _, ref := range m.BuildDepends {
		name, err := l.stratum(ref.Morph)
		if err != nil {
			return "", fmt.Errorf("stratum %s: %w", m.Name, err)
		}

		stratumDeps = append(stratumDeps, name)
	}

	inStratum := make(map[string]bool, len(m.Chunks))
	for _, spec := range m.Chunks {
		inStratum[spec.Name] = true
	}

	st.Dependencies = append(st.Dependencies, stratumDeps...)

	for _, spec := range m.Chunks {
		chunk, err := l.chunk(spec, stratumDeps, inStratum)
		if err != nil {
			return "", fmt.Errorf("stratum %s: %w", m.Name, err)
		}

		if err := l.add(chunk); err != nil {
			return "", err
		}

		st.Dependencies = append(st.Dependencies, chunk.Name)
	}

	if err := l.add(st); err != nil {
		return "", err
	}

	return m.Name, nil
}

func (l *loader) chunk(spec ChunkSpec, stratumDeps []string, inStratum map[string]bool) (*source.Component, error) {
	if spec.Name == "" {
		return nil, errors.New("chunk without name")
	}

	if spec.Repo == "" {
		return nil, &source.GraphError{Component: spec.Name, Reason: "chunk has no repo"}
	}

	c := &source.Component{
		Name: spec.Name,
		Kind: source.KindChunk,
		Repo: spec.Repo,
		Ref:  spec.Ref,
	}

	if l.src.resolver != nil && spec.Ref != "" {
		c.Ref = l.src.resolver.ResolveRef(l.ctx, spec.Repo, spec.Ref)
	}

	m := &Morphology{Name: spec.Name, Kind: string(source.KindChunk)}

	if spec.Morph != "" {
		c.Filename = path.Clean(spec.Morph)

		parsed, err := l.read(spec.Morph)
		if err != nil {
			return nil, err
		}

		if source.Kind(parsed.Kind) != source.KindChunk {
			return nil, fmt.Errorf("%s: expected a chunk morphology, got %s", c.Filename, parsed.Kind)
		}

		m = parsed
	}

	bsName := spec.BuildSystem
	if m.BuildSystem != "" {
		bsName = m.BuildSystem
	}

	bs, err := lookupBuildSystem(bsName)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", spec.Name, err)
	}

	c.Configure, c.Build, c.Install = m.phaseCommands(bs)

	c.Dependencies = append(c.Dependencies, stratumDeps...)

	for _, dep := range spec.BuildDepends {
		if !inStratum[dep] {
			return nil, &source.GraphError{Component: spec.Name, Missing: dep}
		}

		c.Dependencies = append(c.Dependencies, dep)
	}

	return c, nil
}
