package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/def2cmake/internal/plan"
)

type diffOptions struct {
	sourceOptions

	outputDir string

	// Output format: "unified" (default), "json".
	format string
}

func newDiffCommand() *cobra.Command {
	opts := &diffOptions{}

	cmd := &cobra.Command{
		Use:   "diff <definition-file>",
		Short: "Compare an export against the files on disk",
		Long: `Diff renders the export of a definition file and compares it with
the generated files already in the output directory, printing a unified
diff for every file that would be created, changed or, with pruning
enabled, removed.

Exit codes:
  0  No differences
  1  Error
  2  Invalid arguments
  3  Definition file declares no single root component
  4  Dependency graph error
  8  Differences found`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, args[0], opts)
		},
	}

	registerSourceFlags(cmd, &opts.sourceOptions)
	registerExportSettingFlags(cmd)
	registerOutputDirFlag(cmd, &opts.outputDir)
	cmd.Flags().StringVar(&opts.format, "format", "unified", "output format: unified, json")

	registerDefinitionCompletion(cmd)

	return cmd
}

// diffReport is the JSON output of the diff command.
type diffReport struct {
	Files     []plan.FileDiff       `json:"files"`
	Evolution *plan.EvolutionResult `json:"evolution,omitempty"`
}

func runDiff(cmd *cobra.Command, definitionFile string, opts *diffOptions) error {
	switch opts.format {
	case "unified", "json":
	default:
		return &ExitError{Code: 2, Err: fmt.Errorf("unsupported format %q (supported: unified, json)", opts.format)}
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

	diffs, err := plan.DiffTree(opts.outputDir, res.Tree, plan.DefaultDiffOptions())
	if err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("computing diff: %w", err)}
	}

	if !s.config.Prune {
		diffs = withoutRemovals(diffs)
	}

	w := cmd.OutOrStdout()

	switch opts.format {
	case "json":
		report := diffReport{Files: diffs}
		if report.Files == nil {
			report.Files = []plan.FileDiff{}
		}

		if previous, readErr := plan.ReadExisting(opts.outputDir); readErr == nil && len(previous) > 0 {
			report.Evolution = plan.Analyze(previous, res.Descriptors)
		}

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(report); err != nil {
			return &ExitError{Code: 1, Err: fmt.Errorf("formatting JSON: %w", err)}
		}
	default:
		plan.WriteTreeDiff(w, diffs, !s.config.NoColor)
	}

	if len(diffs) > 0 {
		return &ExitError{Code: 8, Err: fmt.Errorf("%d file(s) differ from %s", len(diffs), opts.outputDir)}
	}

	return nil
}

func withoutRemovals(diffs []plan.FileDiff) []plan.FileDiff {
	kept := diffs[:0]

	for _, d := range diffs {
		if d.Status != plan.FileRemoved {
			kept = append(kept, d)
		}
	}

	return kept
}
