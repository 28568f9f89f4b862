package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/def2cmake/internal/cmake"
	"github.com/hupe1980/def2cmake/internal/plan"
)

type planOptions struct {
	sourceOptions

	outputDir string

	// Output format: "table" (default), "json", "compact".
	format string
}

func newPlanCommand() *cobra.Command {
	opts := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan <definition-file>",
		Short: "Preview what an export would produce",
		Long: `Plan shows what an export would produce without writing any
output: the build order with each component's repository and ref, the
generated files and the scripts.

When the output directory already holds an export, the plan includes the
components that were added, removed or modified since, and how many of
them CMake would rebuild.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0], opts)
		},
	}

	registerSourceFlags(cmd, &opts.sourceOptions)
	registerExportSettingFlags(cmd)
	registerOutputDirFlag(cmd, &opts.outputDir)
	cmd.Flags().StringVar(&opts.format, "format", "table", "output format: table, json, compact")

	registerDefinitionCompletion(cmd)

	return cmd
}

func runPlan(cmd *cobra.Command, definitionFile string, opts *planOptions) error {
	switch opts.format {
	case "table", "json", "compact":
	default:
		return &ExitError{Code: 2, Err: fmt.Errorf("unsupported format %q (supported: table, json, compact)", opts.format)}
	}

	ctx := cmd.Context()

	s, err := newSession(ctx, definitionFile, &opts.sourceOptions)
	if err != nil {
		return err
	}

	res, err := s.plan(ctx)
	if err != nil {
		return err
	}

	p := plan.BuildPlan(res, cmake.Layout(s.config.Layout))

	previous, err := plan.ReadExisting(opts.outputDir)
	if err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("reading previous export: %w", err)}
	}

	if len(previous) > 0 {
		plan.ApplyEvolution(p, plan.Analyze(previous, res.Descriptors))
	}

	w := cmd.OutOrStdout()

	switch opts.format {
	case "json":
		if err := plan.FormatPlanJSON(w, p); err != nil {
			return &ExitError{Code: 1, Err: fmt.Errorf("formatting JSON: %w", err)}
		}
	case "compact":
		plan.FormatPlanCompact(w, p)
	default:
		plan.FormatPlan(w, p)
	}

	return nil
}
