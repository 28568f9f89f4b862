package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/def2cmake/internal/output"
)

type exportOptions struct {
	sourceOptions

	outputDir string
	dryRun    bool
}

func newExportCommand() *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export <definition-file>",
		Short: "Export a system or stratum as a CMake project",
		Long: `Export resolves the component declared by a system or stratum
morphology, orders its dependency closure and writes one
ExternalProject_Add block per component.

Command sequences that cannot be written inline are moved into
<component>-<phase>.sh scripts next to the descriptor. Generated files of a
previous export that are no longer produced are removed unless --prune=false.

Exit codes:
  0  Success
  1  Error
  2  Invalid arguments or configuration
  3  Definition file declares no single root component
  4  Dependency graph error (missing dependency, cycle)
  6  Writing the output failed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], opts)
		},
	}

	registerSourceFlags(cmd, &opts.sourceOptions)
	registerExportSettingFlags(cmd)
	registerOutputDirFlag(cmd, &opts.outputDir)
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the generated files instead of writing them")

	registerDefinitionCompletion(cmd)

	return cmd
}

func runExport(cmd *cobra.Command, definitionFile string, opts *exportOptions) error {
	ctx := cmd.Context()

	s, err := newSession(ctx, definitionFile, &opts.sourceOptions)
	if err != nil {
		return err
	}

	res, err := s.plan(ctx)
	if err != nil {
		return err
	}

	if opts.dryRun {
		if err := res.Tree.Dump(output.NewStreamWriter(cmd.OutOrStdout())); err != nil {
			return &ExitError{Code: 6, Err: fmt.Errorf("writing output: %w", err)}
		}

		return nil
	}

	if err := s.write(res, opts.outputDir); err != nil {
		return err
	}

	w := cmd.ErrOrStderr()

	for _, p := range res.Pruned {
		_, _ = fmt.Fprintf(w, "Removed %s\n", p)
	}

	if !s.config.Quiet {
		_, _ = fmt.Fprintf(w, "Exported %s: %d components, %d files to %s\n",
			res.Root.Name, len(res.Sequence), res.Tree.Len(), opts.outputDir)
	}

	return nil
}
