// Package config resolves the settings of a def2cmake run.
//
// Values are taken from, in decreasing precedence, command-line flags,
// DEF2CMAKE_* environment variables and a .def2cmake.yaml file. Repository
// aliases can only be set in the file.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Output layouts.
const (
	LayoutFlat         = "flat"
	LayoutSubdirectory = "subdirectory"
)

// DefaultCMakeMinimumVersion is the cmake_minimum_required of generated
// manifests.
const DefaultCMakeMinimumVersion = "3.3"

const (
	envPrefix = "DEF2CMAKE"
	fileName  = ".def2cmake"
)

var (
	logLevels  = []string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}
	logFormats = []string{LogFormatText, LogFormatJSON}
	layouts    = []string{LayoutFlat, LayoutSubdirectory}
)

// Config holds the settings of one run.
type Config struct {
	LogLevel  string `mapstructure:"log-level" json:"logLevel"`
	LogFormat string `mapstructure:"log-format" json:"logFormat"`
	NoColor   bool   `mapstructure:"no-color" json:"noColor"`

	// Quiet raises the log level to error.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	// CacheDir holds git mirrors under gits/. Without one, chunk refs are
	// exported as written. A leading ~/ is expanded.
	CacheDir string `mapstructure:"cache-dir" json:"cacheDir,omitempty"`

	CMakeMinimumVersion string `mapstructure:"cmake-minimum-version" json:"cmakeMinimumVersion"`
	Layout              string `mapstructure:"layout" json:"layout"`

	// Prune removes generated files an export no longer produces.
	Prune bool `mapstructure:"prune" json:"prune"`

	// Aliases replace the built-in repository aliases when non-nil. An empty
	// list disables alias rewriting.
	Aliases []Alias `mapstructure:"-" json:"aliases,omitempty"`

	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel:            LogLevelInfo,
		LogFormat:           LogFormatText,
		CMakeMinimumVersion: DefaultCMakeMinimumVersion,
		Layout:              LayoutSubdirectory,
		Prune:               true,
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	errs := []error{
		oneOf("log level", c.LogLevel, logLevels),
		oneOf("log format", c.LogFormat, logFormats),
		oneOf("layout", c.Layout, layouts),
	}

	if _, err := semver.NewVersion(c.CMakeMinimumVersion); err != nil {
		errs = append(errs, fmt.Errorf("invalid cmake-minimum-version %q: %w", c.CMakeMinimumVersion, err))
	}

	return errors.Join(errs...)
}

func oneOf(setting, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}

	return fmt.Errorf("invalid %s %q: must be one of %s", setting, value, strings.Join(allowed, ", "))
}

// EffectiveLogLevel is LogLevel, or error when Quiet is set.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Load resolves the settings for cmd. configFile names an explicit config
// file; when empty, .def2cmake.yaml is looked up in the working directory
// and then in ~/.config/def2cmake. Every call uses its own viper instance.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.ConfigFile = v.ConfigFileUsed()
	cfg.CacheDir = expandHome(cfg.CacheDir)

	if cfg.ConfigFile != "" {
		data, err := os.ReadFile(cfg.ConfigFile) //nolint:gosec // user-provided config path
		if err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", cfg.ConfigFile, err)
		}

		if cfg.Aliases, err = ParseAliases(data); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() map[string]any {
	d := Default()

	return map[string]any{
		"log-level":             d.LogLevel,
		"log-format":            d.LogFormat,
		"no-color":              d.NoColor,
		"quiet":                 d.Quiet,
		"cache-dir":             d.CacheDir,
		"cmake-minimum-version": d.CMakeMinimumVersion,
		"layout":                d.Layout,
		"prune":                 d.Prune,
	}
}

func readFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "def2cmake"))
	}

	err := v.ReadInConfig()

	var notFound viper.ConfigFileNotFoundError
	if err == nil || errors.As(err, &notFound) {
		return nil
	}

	return fmt.Errorf("parsing config file: %w", err)
}

// bindFlags makes the local flags of cmd and the persistent flags of cmd
// and its ancestors visible to v.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags of %s: %w", cmd.Name(), err)
	}

	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags of %s: %w", c.Name(), err)
		}
	}

	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext returns the Config carried by ctx, or Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
