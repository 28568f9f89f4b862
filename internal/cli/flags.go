package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/def2cmake/internal/config"
)

// registerSourceFlags adds the flags locating the definitions repository.
func registerSourceFlags(cmd *cobra.Command, opts *sourceOptions) {
	f := cmd.Flags()
	f.StringVarP(&opts.definitions, "definitions", "C", "",
		"definitions repository (default: the repository enclosing the definition file)")
}

// registerExportSettingFlags adds the flags backed by config keys. Their
// values are read from the loaded config, so a flag only wins over the
// environment and the config file when it is given explicitly.
func registerExportSettingFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("layout", config.LayoutSubdirectory, "output layout: flat, subdirectory")
	f.Bool("prune", true, "remove generated files the export no longer produces")
	f.String("cache-dir", "", "git mirror cache used to resolve symbolic refs")
	f.String("cmake-minimum-version", config.DefaultCMakeMinimumVersion, "version written to cmake_minimum_required")
}

// registerOutputDirFlag adds the --output-dir flag.
func registerOutputDirFlag(cmd *cobra.Command, dir *string) {
	cmd.Flags().StringVarP(dir, "output-dir", "o", ".", "directory holding the generated CMake project")
}
