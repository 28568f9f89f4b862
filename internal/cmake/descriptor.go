package cmake

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hupe1980/def2cmake/internal/source"
)

// Descriptor is the exported ExternalProject_Add declaration of one
// component. The field set is closed: one field per keyword emitted.
type Descriptor struct {
	Name             string   `json:"name"`
	GitRepository    string   `json:"gitRepository"`
	GitTag           string   `json:"gitTag,omitempty"`
	ConfigureCommand string   `json:"configureCommand"`
	BuildCommand     string   `json:"buildCommand"`
	InstallCommand   string   `json:"installCommand"`
	Depends          []string `json:"depends,omitempty"`
	Scripts          []Script `json:"-"`
}

var componentNamePattern = regexp.MustCompile(`^[A-Za-z0-9_+][A-Za-z0-9._+-]*$`)

// NewDescriptor builds the descriptor of c: alias-resolved repository,
// revision, one command field per phase and the names c depends on.
// Components without a repository or whose name cannot be used as a file
// name are rejected.
func NewDescriptor(c *source.Component, aliases []Alias) (Descriptor, error) {
	if !componentNamePattern.MatchString(c.Name) {
		return Descriptor{}, &source.GraphError{
			Component: c.Name,
			Reason:    "name is not usable as a CMake target and file name",
		}
	}

	if c.Repo == "" {
		return Descriptor{}, &source.GraphError{Component: c.Name, Reason: "no repository"}
	}

	d := Descriptor{
		Name:          c.Name,
		GitRepository: ResolveRepoAlias(c.Repo, aliases),
		GitTag:        c.Ref,
		Depends:       DependsOf(c),
	}

	for _, phase := range source.Phases {
		field, script := PhaseCommand(c, phase)
		d.setCommand(phase, field)

		if script != nil {
			d.Scripts = append(d.Scripts, *script)
		}
	}

	return d, nil
}

// Command returns the command field of a phase.
func (d Descriptor) Command(phase source.Phase) string {
	switch phase {
	case source.PhaseConfigure:
		return d.ConfigureCommand
	case source.PhaseBuild:
		return d.BuildCommand
	case source.PhaseInstall:
		return d.InstallCommand
	default:
		return ""
	}
}

func (d *Descriptor) setCommand(phase source.Phase, field string) {
	switch phase {
	case source.PhaseConfigure:
		d.ConfigureCommand = field
	case source.PhaseBuild:
		d.BuildCommand = field
	case source.PhaseInstall:
		d.InstallCommand = field
	}
}

// Render returns the ExternalProject_Add block, newline terminated.
//
//	ExternalProject_Add(foo
//	    GIT_REPOSITORY
//	        ${GIT_UPSTREAM}/foo
//	    ...
//	    )
func (d Descriptor) Render() string {
	var b strings.Builder

	b.WriteString("ExternalProject_Add(" + Escape(d.Name) + "\n")

	keyword := func(key, value string) {
		b.WriteString("    " + key + "\n")
		b.WriteString("        " + Escape(value) + "\n")
	}

	keyword("GIT_REPOSITORY", d.GitRepository)

	if d.GitTag != "" {
		keyword("GIT_TAG", d.GitTag)
	}

	keyword("CONFIGURE_COMMAND", d.ConfigureCommand)
	keyword("BUILD_COMMAND", d.BuildCommand)
	keyword("INSTALL_COMMAND", d.InstallCommand)

	if len(d.Depends) > 0 {
		keyword("DEPENDS", strings.Join(d.Depends, " "))
	}

	b.WriteString("    )\n")

	return b.String()
}

// DependsOf returns the distinct names c depends on, sorted, without c
// itself.
func DependsOf(c *source.Component) []string {
	seen := make(map[string]bool, len(c.Dependencies))
	deps := make([]string, 0, len(c.Dependencies))

	for _, dep := range c.Dependencies {
		if dep == "" || dep == c.Name || seen[dep] {
			continue
		}

		seen[dep] = true
		deps = append(deps, dep)
	}

	sort.Strings(deps)

	return deps
}
