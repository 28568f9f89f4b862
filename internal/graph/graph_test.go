package graph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/def2cmake/internal/graph"
	"github.com/hupe1980/def2cmake/internal/source"
)

func comp(name string, deps ...string) *source.Component {
	return &source.Component{
		Name:         name,
		Repo:         "upstream:" + name,
		Ref:          "0000000000000000000000000000000000000000",
		Dependencies: deps,
	}
}

func names(seq []*source.Component) []string {
	out := make([]string, 0, len(seq))
	for _, c := range seq {
		out = append(out, c.Name)
	}

	return out
}

// assertTopological checks that every dependency appears before its dependent
// and that every name appears exactly once.
func assertTopological(t *testing.T, seq []*source.Component) {
	t.Helper()

	pos := make(map[string]int, len(seq))

	for i, c := range seq {
		_, dup := pos[c.Name]
		require.False(t, dup, "component %q appears twice", c.Name)

		pos[c.Name] = i
	}

	for _, c := range seq {
		for _, dep := range c.Dependencies {
			if dep == c.Name {
				continue
			}

			assert.Less(t, pos[dep], pos[c.Name], "%s must come before %s", dep, c.Name)
		}
	}
}

func TestDependencyGraph_AddNodeAndNodes(t *testing.T) {
	g := graph.NewDependencyGraph()
	g.AddNode(comp("zlib"))
	g.AddNode(comp("bash"))

	assert.Equal(t, []string{"bash", "zlib"}, g.Nodes())
	assert.Equal(t, "zlib", g.Component("zlib").Name)
	assert.Nil(t, g.Component("missing"))
}

func TestDependencyGraph_AddEdge(t *testing.T) {
	g := graph.NewDependencyGraph()
	g.AddNode(comp("foo"))
	g.AddNode(comp("bar"))

	require.NoError(t, g.AddEdge("foo", "bar"))
	assert.Equal(t, []string{"bar"}, g.DependenciesOf("foo"))
	assert.Empty(t, g.DependenciesOf("bar"))
}

func TestDependencyGraph_AddEdgeSelfReference(t *testing.T) {
	g := graph.NewDependencyGraph()
	g.AddNode(comp("foo"))

	require.NoError(t, g.AddEdge("foo", "foo"))
	assert.Empty(t, g.DependenciesOf("foo"))
}

func TestDependencyGraph_AddEdgeMissingTarget(t *testing.T) {
	g := graph.NewDependencyGraph()
	g.AddNode(comp("foo"))

	err := g.AddEdge("foo", "ghost")
	require.Error(t, err)

	var gerr *source.GraphError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "foo", gerr.Component)
	assert.Equal(t, "ghost", gerr.Missing)
}

func TestTopologicalSort_LinearChain(t *testing.T) {
	g := graph.NewDependencyGraph()
	for _, n := range []string{"a", "b", "c"} {
		g.AddNode(comp(n))
	}

	require.NoError(t, g.AddEdge("c", "b"))
	require.NoError(t, g.AddEdge("b", "a"))

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestTopologicalSort_AlphabeticalTieBreak(t *testing.T) {
	g := graph.NewDependencyGraph()
	for _, n := range []string{"zeta", "alpha", "mid", "app"} {
		g.AddNode(comp(n))
	}

	require.NoError(t, g.AddEdge("app", "zeta"))
	require.NoError(t, g.AddEdge("app", "alpha"))
	require.NoError(t, g.AddEdge("app", "mid"))

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zeta", "app"}, order)
}

func TestTopologicalSort_Cycle(t *testing.T) {
	g := graph.NewDependencyGraph()
	g.AddNode(comp("a"))
	g.AddNode(comp("b"))
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "a"))

	_, err := g.TopologicalSort()
	require.Error(t, err)
	assert.True(t, errors.Is(err, source.ErrGraph))

	var gerr *source.GraphError
	require.ErrorAs(t, err, &gerr)
	require.NotEmpty(t, gerr.Cycle)
	assert.Equal(t, gerr.Cycle[0], gerr.Cycle[len(gerr.Cycle)-1])
}

func TestTopologicalSort_ReportsOneCycle(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		want  []string
	}{
		{
			name:  "three node ring",
			nodes: []string{"a", "b", "c"},
			edges: [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}},
			want:  []string{"a", "b", "c", "a"},
		},
		{
			name:  "cycle behind a dependent",
			nodes: []string{"app", "glibc", "gcc", "zlib"},
			edges: [][2]string{{"app", "gcc"}, {"gcc", "glibc"}, {"glibc", "gcc"}, {"app", "zlib"}},
			want:  []string{"gcc", "glibc", "gcc"},
		},
		{
			name:  "two disjoint cycles",
			nodes: []string{"x", "y", "m", "n"},
			edges: [][2]string{{"x", "y"}, {"y", "x"}, {"m", "n"}, {"n", "m"}},
			want:  []string{"m", "n", "m"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graph.NewDependencyGraph()
			for _, n := range tt.nodes {
				g.AddNode(comp(n))
			}

			for _, e := range tt.edges {
				require.NoError(t, g.AddEdge(e[0], e[1]))
			}

			_, err := g.TopologicalSort()

			var gerr *source.GraphError
			require.ErrorAs(t, err, &gerr)
			assert.Equal(t, tt.want, gerr.Cycle)
			assert.Equal(t, tt.want[0], gerr.Component)
		})
	}
}

func TestOrder_Diamond(t *testing.T) {
	closure := []*source.Component{
		comp("app", "left", "right"),
		comp("left", "base"),
		comp("right", "base"),
		comp("base"),
	}

	seq, err := graph.Order(closure)
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "left", "right", "app"}, names(seq))
	assertTopological(t, seq)
}

func TestOrder_DeduplicatesRepeatedComponents(t *testing.T) {
	base := comp("base")
	closure := []*source.Component{
		comp("app", "base", "base", "lib"),
		base,
		comp("lib", "base"),
		base,
		comp("base"),
	}

	seq, err := graph.Order(closure)
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "lib", "app"}, names(seq))
}

func TestOrder_ConflictingDuplicate(t *testing.T) {
	other := comp("base")
	other.Ref = "ffffffffffffffffffffffffffffffffffffffff"

	_, err := graph.Order([]*source.Component{comp("base"), other})
	require.Error(t, err)
	assert.ErrorIs(t, err, source.ErrGraph)
	assert.Contains(t, err.Error(), "declared twice")
}

func TestOrder_MissingDependency(t *testing.T) {
	_, err := graph.Order([]*source.Component{comp("app", "ghost")})
	require.Error(t, err)

	var gerr *source.GraphError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "ghost", gerr.Missing)
}

func TestOrder_EmptyName(t *testing.T) {
	_, err := graph.Order([]*source.Component{{Repo: "x"}})
	assert.ErrorIs(t, err, source.ErrGraph)
}

func TestOrder_Deterministic(t *testing.T) {
	build := func() []*source.Component {
		return []*source.Component{
			comp("app", "c", "b", "a"),
			comp("c", "a"),
			comp("b"),
			comp("a"),
			comp("d"),
		}
	}

	first, err := graph.Order(build())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := graph.Order(build())
		require.NoError(t, err)
		assert.Equal(t, names(first), names(again))
	}

	assertTopological(t, first)
}

func TestOrder_DoesNotMutateInput(t *testing.T) {
	app := comp("app", "lib", "lib")
	closure := []*source.Component{app, comp("lib")}

	_, err := graph.Order(closure)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib", "lib"}, app.Dependencies)
}

// fakeSource is an in-memory GraphSource keyed by definition filename.
type fakeSource struct {
	components map[string]*source.Component
}

func newFakeSource(cs ...*source.Component) *fakeSource {
	f := &fakeSource{components: make(map[string]*source.Component)}
	for _, c := range cs {
		f.components[c.Name] = c
	}

	return f
}

func (f *fakeSource) Roots(_ context.Context, definitionFile string) ([]*source.Component, error) {
	var roots []*source.Component

	for _, c := range f.components {
		if c.Filename == definitionFile {
			roots = append(roots, c)
		}
	}

	return roots, nil
}

func (f *fakeSource) Closure(_ context.Context, root *source.Component) ([]*source.Component, error) {
	return graph.Walk(root, func(name string) (*source.Component, bool) {
		c, ok := f.components[name]
		return c, ok
	})
}

func TestOrderedSequence(t *testing.T) {
	foo := comp("foo", "bar")
	foo.Filename = "foo.morph"
	bar := comp("bar")
	bar.Filename = "bar.morph"
	unrelated := comp("unrelated")

	root, seq, err := graph.OrderedSequence(context.Background(), newFakeSource(foo, bar, unrelated), "foo.morph")
	require.NoError(t, err)
	assert.Equal(t, "foo", root.Name)
	assert.Equal(t, []string{"bar", "foo"}, names(seq))
}

func TestResolveRoot_NotFound(t *testing.T) {
	_, err := graph.ResolveRoot(context.Background(), newFakeSource(comp("foo")), "missing.morph")
	require.Error(t, err)

	var rnf *source.RootNotFoundError
	require.ErrorAs(t, err, &rnf)
	assert.Equal(t, "missing.morph", rnf.DefinitionFile)
	assert.Empty(t, rnf.Candidates)
}

func TestResolveRoot_Ambiguous(t *testing.T) {
	a := comp("a")
	a.Filename = "shared.morph"
	b := comp("b")
	b.Filename = "shared.morph"

	_, err := graph.ResolveRoot(context.Background(), newFakeSource(a, b), "shared.morph")

	var rnf *source.RootNotFoundError
	require.ErrorAs(t, err, &rnf)
	assert.Equal(t, []string{"a", "b"}, rnf.Candidates)
}

func TestWalk_MissingDependency(t *testing.T) {
	root := comp("root", "gone")

	_, err := graph.Walk(root, func(string) (*source.Component, bool) { return nil, false })
	require.Error(t, err)
	assert.ErrorIs(t, err, source.ErrGraph)
}

func TestWalk_VisitsEachOnce(t *testing.T) {
	index := map[string]*source.Component{
		"a": comp("a", "b", "c"),
		"b": comp("b", "c"),
		"c": comp("c"),
	}

	closure, err := graph.Walk(index["a"], func(name string) (*source.Component, bool) {
		c, ok := index[name]
		return c, ok
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, names(closure))
}
