// Package source defines the result shapes produced by an upstream graph
// builder: components, their per-phase build commands, and the capability
// used to obtain a root component and its dependency closure.
package source

import (
	"context"
	"fmt"
)

// Phase names one of the three build phases of a component.
type Phase string

// Build phases, in execution order.
const (
	PhaseConfigure Phase = "configure"
	PhaseBuild     Phase = "build"
	PhaseInstall   Phase = "install"
)

// Phases lists every build phase in execution order.
var Phases = []Phase{PhaseConfigure, PhaseBuild, PhaseInstall}

// Kind classifies the definition that declared a component.
type Kind string

// Component kinds.
const (
	KindSystem  Kind = "system"
	KindStratum Kind = "stratum"
	KindChunk   Kind = "chunk"
)

// PhaseCommands holds the shell commands of one build phase.
type PhaseCommands struct {
	Pre  []string `json:"pre,omitempty"`
	Main []string `json:"main,omitempty"`
	Post []string `json:"post,omitempty"`
}

// Sequence returns pre, main and post commands concatenated in that order.
// The result is a fresh slice; the receiver is never modified.
func (p PhaseCommands) Sequence() []string {
	seq := make([]string, 0, len(p.Pre)+len(p.Main)+len(p.Post))
	seq = append(seq, p.Pre...)
	seq = append(seq, p.Main...)
	seq = append(seq, p.Post...)

	return seq
}

// Empty reports whether the phase has no commands at all.
func (p PhaseCommands) Empty() bool {
	return len(p.Pre) == 0 && len(p.Main) == 0 && len(p.Post) == 0
}

// Component is a single buildable unit ("source") with its own repository,
// revision and build commands.
type Component struct {
	// Name is unique within a dependency closure.
	Name string `json:"name"`

	// Kind is informative only; the exporter treats all kinds alike.
	Kind Kind `json:"kind,omitempty"`

	// Repo is a literal repository URL or an alias-prefixed shorthand
	// such as "upstream:glibc".
	Repo string `json:"repo"`

	// Ref is an immutable revision identifier (commit SHA or tag).
	Ref string `json:"ref"`

	Configure PhaseCommands `json:"configure"`
	Build     PhaseCommands `json:"build"`
	Install   PhaseCommands `json:"install"`

	// Filename is the definition file that declared the component.
	Filename string `json:"filename"`

	// Dependencies names the components that must be built first, as
	// supplied by the graph builder. It may contain duplicates.
	Dependencies []string `json:"dependencies,omitempty"`
}

// Commands returns the commands of the given phase.
func (c *Component) Commands(phase Phase) PhaseCommands {
	switch phase {
	case PhaseConfigure:
		return c.Configure
	case PhaseBuild:
		return c.Build
	case PhaseInstall:
		return c.Install
	default:
		return PhaseCommands{}
	}
}

// String implements fmt.Stringer.
func (c *Component) String() string {
	return fmt.Sprintf("%s@%s", c.Name, c.Ref)
}

// GraphSource is the capability offered by an external graph builder.
type GraphSource interface {
	// Roots returns the candidate root components declared by the given
	// definition file.
	Roots(ctx context.Context, definitionFile string) ([]*Component, error)

	// Closure returns the full dependency closure of root, root included,
	// in no particular order.
	Closure(ctx context.Context, root *Component) ([]*Component, error)
}
