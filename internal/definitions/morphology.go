package definitions

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/def2cmake/internal/source"
)

// Reference points at another morphology, relative to the definitions root.
type Reference struct {
	Name  string `yaml:"name,omitempty"`
	Morph string `yaml:"morph"`
}

// ChunkSpec is a chunk entry of a stratum.
type ChunkSpec struct {
	Name         string   `yaml:"name"`
	Repo         string   `yaml:"repo"`
	Ref          string   `yaml:"ref"`
	Morph        string   `yaml:"morph,omitempty"`
	BuildSystem  string   `yaml:"build-system,omitempty"`
	BuildDepends []string `yaml:"build-depends,omitempty"`
}

// Morphology is a single definition file. Which fields are meaningful
// depends on Kind; unknown keys are ignored.
type Morphology struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	Description string `yaml:"description,omitempty"`

	// system
	Strata []Reference `yaml:"strata,omitempty"`

	// stratum
	BuildDepends []Reference `yaml:"build-depends,omitempty"`
	Chunks       []ChunkSpec `yaml:"chunks,omitempty"`

	// chunk
	BuildSystem           string   `yaml:"build-system,omitempty"`
	PreConfigureCommands  []string `yaml:"pre-configure-commands,omitempty"`
	ConfigureCommands     []string `yaml:"configure-commands,omitempty"`
	PostConfigureCommands []string `yaml:"post-configure-commands,omitempty"`
	PreBuildCommands      []string `yaml:"pre-build-commands,omitempty"`
	BuildCommands         []string `yaml:"build-commands,omitempty"`
	PostBuildCommands     []string `yaml:"post-build-commands,omitempty"`
	PreInstallCommands    []string `yaml:"pre-install-commands,omitempty"`
	InstallCommands       []string `yaml:"install-commands,omitempty"`
	PostInstallCommands   []string `yaml:"post-install-commands,omitempty"`
}

// ParseMorphology decodes a morphology and checks its name and kind. path is
// only used in error messages.
func ParseMorphology(data []byte, path string) (*Morphology, error) {
	var m Morphology
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing morphology %s: %w", path, err)
	}

	if m.Name == "" {
		return nil, fmt.Errorf("morphology %s: missing name", path)
	}

	switch source.Kind(m.Kind) {
	case source.KindSystem, source.KindStratum, source.KindChunk:
	case "":
		return nil, fmt.Errorf("morphology %s: missing kind", path)
	default:
		return nil, fmt.Errorf("morphology %s: unsupported kind %q", path, m.Kind)
	}

	return &m, nil
}

// phaseCommands merges the chunk's own commands over the build-system
// defaults. A declared main command list, even an empty one, replaces the
// default for that phase.
func (m *Morphology) phaseCommands(defaults buildSystem) (configure, build, install source.PhaseCommands) {
	configure = source.PhaseCommands{Pre: m.PreConfigureCommands, Main: defaults.configure, Post: m.PostConfigureCommands}
	build = source.PhaseCommands{Pre: m.PreBuildCommands, Main: defaults.build, Post: m.PostBuildCommands}
	install = source.PhaseCommands{Pre: m.PreInstallCommands, Main: defaults.install, Post: m.PostInstallCommands}

	if m.ConfigureCommands != nil {
		configure.Main = m.ConfigureCommands
	}

	if m.BuildCommands != nil {
		build.Main = m.BuildCommands
	}

	if m.InstallCommands != nil {
		install.Main = m.InstallCommands
	}

	return configure, build, install
}
