package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hupe1980/def2cmake/internal/cmake"
	"github.com/hupe1980/def2cmake/internal/config"
	"github.com/hupe1980/def2cmake/internal/definitions"
	"github.com/hupe1980/def2cmake/internal/gitcache"
	"github.com/hupe1980/def2cmake/internal/graph"
	"github.com/hupe1980/def2cmake/internal/logging"
	"github.com/hupe1980/def2cmake/internal/source"
)

// sourceOptions selects the definitions repository.
type sourceOptions struct {
	definitions string
}

// session holds what every command needs to plan an export of one
// definition file.
type session struct {
	definitionFile string
	source         *definitions.Source
	exporter       *cmake.Exporter
	config         *config.Config
	logger         *slog.Logger
}

// newSession opens the definitions repository for definitionFile and builds
// an exporter from the loaded configuration.
func newSession(ctx context.Context, definitionFile string, opts *sourceOptions) (*session, error) {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx).With(slog.String("definition", definitionFile))

	aliases := aliasesFromConfig(cfg)

	exporter, err := cmake.New(cmake.Options{
		MinimumVersion: cfg.CMakeMinimumVersion,
		Aliases:        aliases,
		Layout:         cmake.Layout(cfg.Layout),
		Prune:          cfg.Prune,
		Logger:         logger,
	})
	if err != nil {
		return nil, &ExitError{Code: 2, Err: fmt.Errorf("invalid export settings: %w", err)}
	}

	srcOpts := []definitions.Option{definitions.WithLogger(logger)}

	if cfg.CacheDir != "" {
		resolver, err := gitcache.New(cfg.CacheDir,
			gitcache.WithURLExpander(func(repo string) string {
				return cmake.ExpandRepoAlias(repo, aliases)
			}),
			gitcache.WithLogger(logger),
		)
		if err != nil {
			return nil, &ExitError{Code: 2, Err: err}
		}

		srcOpts = append(srcOpts, definitions.WithResolver(resolver))
	}

	repoDir := opts.definitions
	if repoDir == "" {
		repoDir = filepath.Dir(definitionFile)
	}

	src, err := definitions.Open(repoDir, srcOpts...)
	if err != nil {
		return nil, exitError(err)
	}

	return &session{
		definitionFile: definitionFile,
		source:         src,
		exporter:       exporter,
		config:         cfg,
		logger:         logger,
	}, nil
}

// plan resolves, orders and renders the definition file.
func (s *session) plan(ctx context.Context) (*cmake.Result, error) {
	res, err := s.exporter.Plan(ctx, s.source, s.definitionFile)
	if err != nil {
		return nil, exitError(err)
	}

	return res, nil
}

// sequence resolves the root component and its build order without
// rendering anything.
func (s *session) sequence(ctx context.Context) (*source.Component, []*source.Component, error) {
	root, seq, err := graph.OrderedSequence(ctx, s.source, s.definitionFile)
	if err != nil {
		return nil, nil, exitError(err)
	}

	return root, seq, nil
}

// write writes a planned result below dir. Failures exit with code 6.
func (s *session) write(res *cmake.Result, dir string) error {
	if err := s.exporter.Write(res, dir); err != nil {
		return &ExitError{Code: 6, Err: fmt.Errorf("writing output: %w", err)}
	}

	return nil
}

// aliasesFromConfig returns the configured aliases, or the Baserock ones
// when the config file has no aliases section.
func aliasesFromConfig(cfg *config.Config) []cmake.Alias {
	if cfg.Aliases == nil {
		return cmake.DefaultAliases()
	}

	aliases := make([]cmake.Alias, 0, len(cfg.Aliases))
	for _, a := range cfg.Aliases {
		aliases = append(aliases, cmake.Alias{Prefix: a.Prefix, Variable: a.Variable, BaseURL: a.BaseURL})
	}

	return aliases
}
