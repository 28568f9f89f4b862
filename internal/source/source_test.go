package source

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseCommands_Sequence(t *testing.T) {
	p := PhaseCommands{
		Pre:  []string{"pre"},
		Main: []string{"main1", "main2"},
		Post: []string{"post"},
	}

	assert.Equal(t, []string{"pre", "main1", "main2", "post"}, p.Sequence())
	assert.False(t, p.Empty())
}

func TestPhaseCommands_SequenceDoesNotAlias(t *testing.T) {
	pre := make([]string, 1, 8)
	pre[0] = "pre"
	p := PhaseCommands{Pre: pre, Main: []string{"main"}}

	seq := p.Sequence()
	seq[0] = "changed"

	assert.Equal(t, "pre", p.Pre[0])
}

func TestPhaseCommands_Empty(t *testing.T) {
	assert.True(t, PhaseCommands{}.Empty())
	assert.Empty(t, PhaseCommands{}.Sequence())
}

func TestComponent_Commands(t *testing.T) {
	c := &Component{
		Name:      "foo",
		Configure: PhaseCommands{Main: []string{"./configure"}},
		Build:     PhaseCommands{Main: []string{"make"}},
		Install:   PhaseCommands{Main: []string{"make install"}},
	}

	assert.Equal(t, []string{"./configure"}, c.Commands(PhaseConfigure).Main)
	assert.Equal(t, []string{"make"}, c.Commands(PhaseBuild).Main)
	assert.Equal(t, []string{"make install"}, c.Commands(PhaseInstall).Main)
	assert.True(t, c.Commands(Phase("test")).Empty())
}

func TestPhases_Order(t *testing.T) {
	assert.Equal(t, []Phase{PhaseConfigure, PhaseBuild, PhaseInstall}, Phases)
}

func TestRootNotFoundError(t *testing.T) {
	t.Run("no candidates", func(t *testing.T) {
		err := &RootNotFoundError{DefinitionFile: "systems/base.morph"}
		assert.Contains(t, err.Error(), "no root component")
		assert.Contains(t, err.Error(), "systems/base.morph")
	})

	t.Run("ambiguous", func(t *testing.T) {
		err := &RootNotFoundError{DefinitionFile: "x.morph", Candidates: []string{"a", "b"}}
		assert.Contains(t, err.Error(), "ambiguous")
		assert.Contains(t, err.Error(), "a, b")
	})

	t.Run("matches ErrGraph when wrapped", func(t *testing.T) {
		err := fmt.Errorf("export: %w", &RootNotFoundError{DefinitionFile: "x"})
		assert.True(t, errors.Is(err, ErrGraph))

		var rnf *RootNotFoundError
		require.ErrorAs(t, err, &rnf)
		assert.Equal(t, "x", rnf.DefinitionFile)
	})
}

func TestGraphError(t *testing.T) {
	tests := []struct {
		name string
		err  *GraphError
		want string
	}{
		{"cycle", &GraphError{Cycle: []string{"a", "b", "a"}}, "dependency cycle detected: a -> b -> a"},
		{"missing", &GraphError{Component: "foo", Missing: "bar"}, `component "foo" depends on "bar"`},
		{"reason", &GraphError{Component: "foo", Reason: "bad name"}, `component "foo": bad name`},
		{"bare", &GraphError{Reason: "broken"}, "broken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.err.Error(), tt.want)
			assert.ErrorIs(t, tt.err, ErrGraph)
		})
	}
}
