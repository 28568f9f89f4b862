package plan

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/def2cmake/internal/cmake"
	"github.com/hupe1980/def2cmake/internal/source"
)

const shaBar = "1111111111111111111111111111111111111111"

// fooBarSequence is foo depending on bar, with a build step of foo that
// needs a script.
func fooBarSequence() []*source.Component {
	return []*source.Component{
		{Name: "bar", Kind: source.KindChunk, Repo: "baserock:bar", Ref: shaBar},
		{
			Name:         "foo",
			Kind:         source.KindStratum,
			Repo:         "upstream:foo",
			Ref:          "v1.0",
			Configure:    source.PhaseCommands{Main: []string{"./configure"}},
			Build:        source.PhaseCommands{Main: []string{"make $(nproc)"}},
			Dependencies: []string{"bar"},
		},
	}
}

func exportResult(t *testing.T, seq []*source.Component, layout cmake.Layout) *cmake.Result {
	t.Helper()

	opts := cmake.DefaultOptions()
	opts.Layout = layout

	e, err := cmake.New(opts)
	require.NoError(t, err)

	descs, err := e.Describe(seq)
	require.NoError(t, err)

	tree, err := e.RenderDescriptors(descs)
	require.NoError(t, err)

	return &cmake.Result{Root: seq[len(seq)-1], Sequence: seq, Descriptors: descs, Tree: tree}
}

func TestBuildPlan_Basic(t *testing.T) {
	plan := BuildPlan(exportResult(t, fooBarSequence(), cmake.LayoutSubdirectory), cmake.LayoutSubdirectory)

	assert.Equal(t, "foo", plan.Root)
	assert.Equal(t, "subdirectory", plan.Layout)
	require.Len(t, plan.Components, 2)

	assert.Equal(t, "bar", plan.Components[0].Name)
	assert.Equal(t, "chunk", plan.Components[0].Kind)
	assert.Equal(t, "${GIT_BASEROCK}/bar", plan.Components[0].Repository)
	assert.Empty(t, plan.Components[0].DependsOn)

	assert.Equal(t, []string{"bar"}, plan.Components[1].DependsOn)
	assert.Equal(t, []string{"foo-build.sh"}, plan.Components[1].Scripts)
	assert.Equal(t, 1, plan.Scripts)

	assert.Equal(t, []string{"bar/CMakeLists.txt", "foo/CMakeLists.txt", "foo/foo-build.sh", "CMakeLists.txt"}, plan.Files)
}

func TestFormatPlan(t *testing.T) {
	plan := BuildPlan(exportResult(t, fooBarSequence(), cmake.LayoutFlat), cmake.LayoutFlat)

	var buf bytes.Buffer
	FormatPlan(&buf, plan)
	out := buf.String()

	assert.Contains(t, out, "Plan: foo (flat layout)")
	assert.Contains(t, out, "Build Order:")
	assert.Contains(t, out, "${GIT_BASEROCK}/bar @ 111111111111")
	assert.Contains(t, out, "${GIT_UPSTREAM}/foo @ v1.0")
	assert.Contains(t, out, "depends on: bar")
	assert.Contains(t, out, "scripts: foo-build.sh")
	assert.Contains(t, out, "Summary: 2 components, 2 files, 1 scripts")
	assert.Less(t, strings.Index(out, "1. bar"), strings.Index(out, "2. foo"))
}

func TestFormatPlan_WithEvolution(t *testing.T) {
	plan := BuildPlan(exportResult(t, fooBarSequence(), cmake.LayoutFlat), cmake.LayoutFlat)
	ApplyEvolution(plan, &EvolutionResult{Changes: []ComponentChange{
		{Type: ChangeAdded, Component: "foo", Details: "component added", Rebuild: true},
	}})

	var buf bytes.Buffer
	FormatPlan(&buf, plan)
	assert.Contains(t, buf.String(), "Component Changes:")
	assert.Contains(t, buf.String(), "Components to rebuild: 1")
}

func TestFormatPlanJSON(t *testing.T) {
	plan := BuildPlan(exportResult(t, fooBarSequence(), cmake.LayoutSubdirectory), cmake.LayoutSubdirectory)

	var buf bytes.Buffer
	require.NoError(t, FormatPlanJSON(&buf, plan))

	var decoded PlanResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, plan.Root, decoded.Root)
	assert.Len(t, decoded.Components, 2)
	assert.Nil(t, decoded.Evolution)
}

func TestFormatPlanCompact(t *testing.T) {
	plan := BuildPlan(exportResult(t, fooBarSequence(), cmake.LayoutFlat), cmake.LayoutFlat)
	ApplyEvolution(plan, &EvolutionResult{Changes: []ComponentChange{
		{Type: ChangeModified, Component: "foo", Details: "ref a -> b", Rebuild: true},
		{Type: ChangeRemoved, Component: "baz", Details: "component removed"},
	}})

	var buf bytes.Buffer
	FormatPlanCompact(&buf, plan)
	assert.Contains(t, buf.String(), "Plan: foo -- 2 components, 2 files, 1 scripts")
	assert.Contains(t, buf.String(), "Changes: 1 components removed, 1 components modified (1 to rebuild)")
}
