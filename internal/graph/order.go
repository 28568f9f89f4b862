package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/hupe1980/def2cmake/internal/source"
)

// Order returns the closure as a build sequence: de-duplicated by name and
// topologically sorted so that every dependency precedes its dependents.
//
// A name appearing twice must describe the same repository and revision;
// conflicting duplicates are a GraphError since resolving them is the
// graph builder's job.
func Order(closure []*source.Component) ([]*source.Component, error) {
	g := NewDependencyGraph()

	for _, c := range closure {
		if c == nil {
			continue
		}

		if c.Name == "" {
			return nil, &source.GraphError{Reason: "component with empty name in dependency closure"}
		}

		if prev := g.Component(c.Name); prev != nil {
			if prev.Repo != c.Repo || prev.Ref != c.Ref {
				return nil, &source.GraphError{
					Component: c.Name,
					Reason: fmt.Sprintf("declared twice with different sources (%s@%s, %s@%s)",
						prev.Repo, prev.Ref, c.Repo, c.Ref),
				}
			}

			continue
		}

		g.AddNode(c)
	}

	for _, name := range g.Nodes() {
		for _, dep := range g.Component(name).Dependencies {
			if err := g.AddEdge(name, dep); err != nil {
				return nil, err
			}
		}
	}

	names, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	seq := make([]*source.Component, 0, len(names))
	for _, name := range names {
		seq = append(seq, g.Component(name))
	}

	return seq, nil
}

// ResolveRoot locates the single root component declared by definitionFile.
// Zero or several candidates yield a RootNotFoundError.
func ResolveRoot(ctx context.Context, src source.GraphSource, definitionFile string) (*source.Component, error) {
	candidates, err := src.Roots(ctx, definitionFile)
	if err != nil {
		return nil, fmt.Errorf("listing root candidates for %s: %w", definitionFile, err)
	}

	if len(candidates) != 1 {
		names := make([]string, 0, len(candidates))
		for _, c := range candidates {
			names = append(names, c.Name)
		}

		sort.Strings(names)

		return nil, &source.RootNotFoundError{DefinitionFile: definitionFile, Candidates: names}
	}

	return candidates[0], nil
}

// OrderedSequence resolves the root for definitionFile, walks its closure
// and returns the root together with the ordered build sequence.
func OrderedSequence(ctx context.Context, src source.GraphSource, definitionFile string) (*source.Component, []*source.Component, error) {
	root, err := ResolveRoot(ctx, src, definitionFile)
	if err != nil {
		return nil, nil, err
	}

	closure, err := src.Closure(ctx, root)
	if err != nil {
		return nil, nil, fmt.Errorf("walking dependency closure of %s: %w", root.Name, err)
	}

	seq, err := Order(closure)
	if err != nil {
		return nil, nil, err
	}

	return root, seq, nil
}

// Walk collects the closure reachable from root by following dependency
// names through lookup. It is the building block for GraphSource
// implementations backed by a flat component index.
func Walk(root *source.Component, lookup func(name string) (*source.Component, bool)) ([]*source.Component, error) {
	seen := map[string]bool{root.Name: true}
	closure := []*source.Component{root}
	stack := []*source.Component{root}

	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, dep := range c.Dependencies {
			if seen[dep] {
				continue
			}

			next, ok := lookup(dep)
			if !ok {
				return nil, &source.GraphError{Component: c.Name, Missing: dep}
			}

			seen[dep] = true
			closure = append(closure, next)
			stack = append(stack, next)
		}
	}

	return closure, nil
}
