package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/def2cmake/internal/cmake"
)

type validateOptions struct {
	sourceOptions

	strict bool
}

func newValidateCommand() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <definition-file>",
		Short: "Check that a definition can be exported",
		Long: `Validate resolves and orders the dependency closure of a definition
file and reports every component the exporter would reject, such as
invalid names or a build order that violates a dependency.

Warnings flag output that is valid but not reproducible: symbolic refs
that are not commit SHAs, missing refs and unknown repository aliases.

Exit codes:
  0  No errors (and no warnings with --strict)
  3  Definition file declares no single root component
  4  Dependency graph error
  7  Validation failed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], opts)
		},
	}

	registerSourceFlags(cmd, &opts.sourceOptions)
	registerExportSettingFlags(cmd)
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail on warnings in addition to errors")

	registerDefinitionCompletion(cmd)

	return cmd
}

func runValidate(cmd *cobra.Command, definitionFile string, opts *validateOptions) error {
	ctx := cmd.Context()

	s, err := newSession(ctx, definitionFile, &opts.sourceOptions)
	if err != nil {
		return err
	}

	_, seq, err := s.sequence(ctx)
	if err != nil {
		return err
	}

	result := s.exporter.Validate(seq)

	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), cmake.FormatValidationResult(result))

	if result.HasErrors() {
		return &ExitError{Code: 7, Err: fmt.Errorf("validation failed with %d error(s)", len(result.Errors()))}
	}

	if opts.strict && result.HasWarnings() {
		return &ExitError{Code: 7, Err: fmt.Errorf("validation failed with %d warning(s) (strict mode)", len(result.Warnings()))}
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Validation passed: %d components.\n", len(seq))

	return nil
}
