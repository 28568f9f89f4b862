package source

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGraph is matched by every error describing an inconsistent or
// ambiguous dependency graph.
var ErrGraph = errors.New("dependency graph error")

// RootNotFoundError is returned when a definition file does not correspond
// to exactly one candidate root component.
type RootNotFoundError struct {
	DefinitionFile string
	Candidates     []string
}

func (e *RootNotFoundError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("no root component found for definition %q", e.DefinitionFile)
	}

	return fmt.Sprintf("definition %q is ambiguous: %d candidate roots (%s)",
		e.DefinitionFile, len(e.Candidates), strings.Join(e.Candidates, ", "))
}

// Is makes errors.Is(err, ErrGraph) hold for root location failures.
func (e *RootNotFoundError) Is(target error) bool {
	return target == ErrGraph
}

// GraphError describes an inconsistent dependency closure.
type GraphError struct {
	// Component is the component at which the problem was detected.
	Component string

	// Missing is set when Component depends on a name absent from the closure.
	Missing string

	// Cycle holds the offending path when the graph is cyclic, first == last.
	Cycle []string

	// Reason is a free-form description used when no field above applies.
	Reason string
}

func (e *GraphError) Error() string {
	switch {
	case len(e.Cycle) > 0:
		return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
	case e.Missing != "":
		return fmt.Sprintf("component %q depends on %q which is not in the dependency closure", e.Component, e.Missing)
	case e.Component != "":
		return fmt.Sprintf("component %q: %s", e.Component, e.Reason)
	default:
		return e.Reason
	}
}

// Is makes errors.Is(err, ErrGraph) hold.
func (e *GraphError) Is(target error) bool {
	return target == ErrGraph
}
