// Package graph turns an unordered dependency closure into the ordered,
// de-duplicated build sequence consumed by the exporter.
package graph

import (
	"container/heap"
	"sort"

	"github.com/hupe1980/def2cmake/internal/source"
)

// DependencyGraph holds components by name and, per component, the set of
// names it depends on.
type DependencyGraph struct {
	nodes map[string]*source.Component
	deps  map[string]map[string]struct{}
}

// NewDependencyGraph creates an empty dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*source.Component),
		deps:  make(map[string]map[string]struct{}),
	}
}

// AddNode registers c under its name, replacing an earlier component of the
// same name but keeping its edges.
func (g *DependencyGraph) AddNode(c *source.Component) {
	g.nodes[c.Name] = c

	if g.deps[c.Name] == nil {
		g.deps[c.Name] = make(map[string]struct{})
	}
}

// AddEdge records that from depends on to. Self edges are ignored. An
// unregistered target is reported as a GraphError naming it as missing.
func (g *DependencyGraph) AddEdge(from, to string) error {
	if from == to {
		return nil
	}

	if g.nodes[from] == nil {
		return &source.GraphError{Component: from, Reason: "not registered in the dependency graph"}
	}

	if g.nodes[to] == nil {
		return &source.GraphError{Component: from, Missing: to}
	}

	g.deps[from][to] = struct{}{}

	return nil
}

// Nodes returns all component names, sorted.
func (g *DependencyGraph) Nodes() []string {
	return sortedSet(g.nodes)
}

// DependenciesOf returns the sorted names name depends on.
func (g *DependencyGraph) DependenciesOf(name string) []string {
	return sortedSet(g.deps[name])
}

// Component returns the component registered under name, or nil.
func (g *DependencyGraph) Component(name string) *source.Component {
	return g.nodes[name]
}

// TopologicalSort returns the component names so that every dependency
// precedes its dependents. Among components that are ready at the same
// time the alphabetically smallest goes first, so the order is stable. A
// cyclic graph yields a GraphError carrying one cycle.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	pending := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))

	for name, deps := range g.deps {
		pending[name] = len(deps)

		for dep := range deps {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	ready := &nameHeap{}

	for name, n := range pending {
		if n == 0 {
			heap.Push(ready, name)
		}
	}

	order := make([]string, 0, len(g.nodes))

	for ready.Len() > 0 {
		name := heap.Pop(ready).(string)
		order = append(order, name)

		for _, d := range dependents[name] {
			pending[d]--
			if pending[d] == 0 {
				heap.Push(ready, d)
			}
		}
	}

	if len(order) < len(g.nodes) {
		cycle := g.cycleAmong(pending)
		return nil, &source.GraphError{Component: cycle[0], Cycle: cycle}
	}

	return order, nil
}

// cycleAmong returns a closed cycle through the components still pending
// after a sort. Each of them waits on at least one other pending
// component, so following the smallest such dependency from the smallest
// pending name must revisit a component.
func (g *DependencyGraph) cycleAmong(pending map[string]int) []string {
	stuck := make(map[string]struct{})

	for name, n := range pending {
		if n > 0 {
			stuck[name] = struct{}{}
		}
	}

	pos := make(map[string]int)
	walk := []string{}

	for cur := sortedSet(stuck)[0]; ; {
		if i, seen := pos[cur]; seen {
			return append(walk[i:], cur)
		}

		pos[cur] = len(walk)
		walk = append(walk, cur)

		for _, dep := range g.DependenciesOf(cur) {
			if _, ok := stuck[dep]; ok {
				cur = dep
				break
			}
		}
	}
}

func sortedSet[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// nameHeap is a min-heap of component names.
type nameHeap []string

func (h nameHeap) Len() int           { return len(h) }
func (h nameHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h nameHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nameHeap) Push(x any)        { *h = append(*h, x.(string)) }

func (h *nameHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]

	return x
}
