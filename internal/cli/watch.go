package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/def2cmake/internal/cmake"
	"github.com/hupe1980/def2cmake/internal/plan"
	"github.com/hupe1980/def2cmake/internal/watch"
)

type watchOptions struct {
	sourceOptions

	outputDir string
	debounce  time.Duration
	gitignore bool
}

func newWatchCommand() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <definition-file>",
		Short: "Watch the definitions and re-export on change",
		Long: `Watch monitors the definitions repository for file changes and
re-runs the export when a morphology is modified.

File changes are debounced to avoid rapid re-runs. Each export reports
the number of components, files, scripts and pruned files, which
components changed since the previous export and how many validation
warnings the build order has.

The output directory and paths ignored by .gitignore are not watched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, args[0], opts)
		},
	}

	registerSourceFlags(cmd, &opts.sourceOptions)
	registerExportSettingFlags(cmd)
	registerOutputDirFlag(cmd, &opts.outputDir)

	f := cmd.Flags()
	f.DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "debounce interval for file changes")
	f.BoolVar(&opts.gitignore, "gitignore", true, "skip paths ignored by .gitignore")

	registerDefinitionCompletion(cmd)

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, definitionFile string, opts *watchOptions) error {
	s, err := newSession(ctx, definitionFile, &opts.sourceOptions)
	if err != nil {
		return err
	}

	previous, err := plan.ReadExisting(opts.outputDir)
	if err != nil {
		s.logger.Warn("ignoring unreadable previous export", "error", err)

		previous = nil
	}

	haveBaseline := len(previous) > 0

	runFn := func(fnCtx context.Context) (*watch.RunResult, error) {
		s.source.Invalidate()

		res, err := s.plan(fnCtx)
		if err != nil {
			return nil, err
		}

		if err := s.write(res, opts.outputDir); err != nil {
			return nil, err
		}

		result := &watch.RunResult{
			Root:       res.Root.Name,
			Components: len(res.Sequence),
			Files:      res.Tree.Len(),
			Scripts:    countScripts(res.Descriptors),
			Pruned:     len(res.Pruned),
			Warnings:   len(s.exporter.Validate(res.Sequence).Warnings()),
		}

		if haveBaseline {
			result.Changes = plan.Analyze(previous, res.Descriptors)
		}

		previous = res.Descriptors
		haveBaseline = true

		return result, nil
	}

	watchOpts := watch.DefaultOptions()
	watchOpts.DefinitionsDir = s.source.Repository().Root
	watchOpts.OutputDir = opts.outputDir
	watchOpts.Debounce = opts.debounce
	watchOpts.Gitignore = opts.gitignore
	watchOpts.Logger = s.logger
	watchOpts.Out = cmd.ErrOrStderr()

	if s.config.ConfigFile != "" {
		watchOpts.ExtraFiles = []string{s.config.ConfigFile}
	}

	if err := watch.Run(ctx, watchOpts, runFn); err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("watch: %w", err)}
	}

	return nil
}

func countScripts(descs []cmake.Descriptor) int {
	n := 0
	for _, d := range descs {
		n += len(d.Scripts)
	}

	return n
}
