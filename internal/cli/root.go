// Package cli implements the cobra command tree for def2cmake.
package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/def2cmake/internal/config"
	"github.com/hupe1980/def2cmake/internal/definitions"
	"github.com/hupe1980/def2cmake/internal/logging"
	"github.com/hupe1980/def2cmake/internal/source"
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitError attaches the exit code matching err:
//
//	2  not inside a definitions repository
//	3  the definition file names no single root
//	4  inconsistent dependency graph
//	1  anything else
//
// An error that already is an *ExitError is returned unchanged.
func exitError(err error) error {
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	var rootErr *source.RootNotFoundError

	switch {
	case errors.As(err, &rootErr):
		return &ExitError{Code: 3, Err: err}
	case errors.Is(err, source.ErrGraph):
		return &ExitError{Code: 4, Err: err}
	case errors.Is(err, definitions.ErrNotInRepository):
		return &ExitError{Code: 2, Err: err}
	default:
		return &ExitError{Code: 1, Err: err}
	}
}

// Execute builds the command tree, runs it, and returns the exit code.
func Execute() int {
	cmd := NewRootCommand()

	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)

		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}

		return 1
	}

	return 0
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "def2cmake",
		Short: "Export Baserock definitions as CMake ExternalProject builds",
		Long: `def2cmake reads a Baserock system or stratum morphology from a
definitions repository, orders its components so that every component
follows its dependencies, and writes a CMake project that fetches and
builds each of them with ExternalProject_Add.

The generated tree can be built with any CMake 3.x:

  def2cmake export systems/base-system-x86_64-generic.morph -o build
  cmake -S build -B build/_work && cmake --build build/_work`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			logger := logging.Setup(cfg, cmd.ErrOrStderr())

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = logging.NewContext(ctx, logger)
			ctx = logging.With(ctx, slog.String("command", cmd.Name()))
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("logLevel", cfg.LogLevel),
				slog.String("layout", cfg.Layout),
				slog.Bool("prune", cfg.Prune),
				slog.String("cacheDir", cfg.CacheDir),
				slog.String("configFile", cfg.ConfigFile),
			)

			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .def2cmake.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")
	pf.Bool("no-color", false, "disable colored output")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")

	// Flag parsing errors return exit code 2.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})

	cmd.AddCommand(
		newVersionCommand(),
		newExportCommand(),
		newInspectCommand(),
		newValidateCommand(),
		newPlanCommand(),
		newDiffCommand(),
		newWatchCommand(),
		newCompletionCommand(),
	)

	return cmd
}
