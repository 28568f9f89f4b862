package cmake

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/def2cmake/internal/source"
)

const (
	shaBar = "1111111111111111111111111111111111111111"
	shaFoo = "2222222222222222222222222222222222222222"
)

func TestNewDescriptor(t *testing.T) {
	c := &source.Component{
		Name:         "foo",
		Repo:         "upstream:foo",
		Ref:          shaFoo,
		Configure:    source.PhaseCommands{Main: []string{"./configure"}},
		Build:        source.PhaseCommands{Main: []string{"make"}},
		Dependencies: []string{"bar", "baz", "bar", "foo"},
	}

	d, err := NewDescriptor(c, DefaultAliases())
	require.NoError(t, err)

	assert.Equal(t, "foo", d.Name)
	assert.Equal(t, "${GIT_UPSTREAM}/foo", d.GitRepository)
	assert.Equal(t, shaFoo, d.GitTag)
	assert.Equal(t, "./configure", d.ConfigureCommand)
	assert.Equal(t, "make", d.BuildCommand)
	assert.Equal(t, NoOpCommand, d.InstallCommand)
	assert.Equal(t, []string{"bar", "baz"}, d.Depends)
	assert.Empty(t, d.Scripts)

	assert.Equal(t, d.ConfigureCommand, d.Command(source.PhaseConfigure))
	assert.Equal(t, d.BuildCommand, d.Command(source.PhaseBuild))
	assert.Equal(t, d.InstallCommand, d.Command(source.PhaseInstall))
	assert.Empty(t, d.Command(source.Phase("check")))
}

func TestNewDescriptor_Rejects(t *testing.T) {
	tests := []struct {
		name string
		c    *source.Component
	}{
		{"empty name", &source.Component{Repo: "x"}},
		{"slash in name", &source.Component{Name: "a/b", Repo: "x"}},
		{"dot dot", &source.Component{Name: "..", Repo: "x"}},
		{"space", &source.Component{Name: "a b", Repo: "x"}},
		{"no repo", &source.Component{Name: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDescriptor(tt.c, DefaultAliases())
			assert.ErrorIs(t, err, source.ErrGraph)
		})
	}
}

func TestNewDescriptor_ScriptsInPhaseOrder(t *testing.T) {
	long := strings.Repeat("z", 300)
	c := &source.Component{
		Name:      "gcc",
		Repo:      "upstream:gcc",
		Install:   source.PhaseCommands{Main: []string{long}},
		Configure: source.PhaseCommands{Main: []string{"../configure --enable-languages=c,c++ (x)"}},
	}

	d, err := NewDescriptor(c, DefaultAliases())
	require.NoError(t, err)
	require.Len(t, d.Scripts, 2)
	assert.Equal(t, "gcc-configure.sh", d.Scripts[0].Name)
	assert.Equal(t, "gcc-install.sh", d.Scripts[1].Name)
	assert.Equal(t, NoOpCommand, d.BuildCommand)
}

func TestDescriptor_Render(t *testing.T) {
	c := &source.Component{
		Name:         "foo",
		Repo:         "upstream:foo",
		Ref:          shaFoo,
		Configure:    source.PhaseCommands{Main: []string{"./configure"}},
		Dependencies: []string{"bar"},
	}

	d, err := NewDescriptor(c, DefaultAliases())
	require.NoError(t, err)

	want := `ExternalProject_Add(foo
    GIT_REPOSITORY
        ${GIT_UPSTREAM}/foo
    GIT_TAG
        2222222222222222222222222222222222222222
    CONFIGURE_COMMAND
        ./configure
    BUILD_COMMAND
        echo no-op
    INSTALL_COMMAND
        echo no-op
    DEPENDS
        bar
    )
`
	assert.Equal(t, want, d.Render())
}

func TestDescriptor_RenderOmitsEmptyOptionalKeywords(t *testing.T) {
	d, err := NewDescriptor(&source.Component{Name: "bar", Repo: "https://example.com/bar.git"}, nil)
	require.NoError(t, err)

	out := d.Render()
	assert.NotContains(t, out, "GIT_TAG")
	assert.NotContains(t, out, "DEPENDS")
	assert.Contains(t, out, "        https://example.com/bar.git\n")
}

func TestDescriptor_RenderEscapesBackslashes(t *testing.T) {
	d := Descriptor{
		Name:             "win",
		GitRepository:    `C:\repos\win`,
		ConfigureCommand: NoOpCommand,
		BuildCommand:     NoOpCommand,
		InstallCommand:   NoOpCommand,
	}

	assert.Contains(t, d.Render(), `        C:\\repos\\win`+"\n")
}

func TestDependsOf(t *testing.T) {
	c := &source.Component{Name: "app", Dependencies: []string{"zlib", "", "app", "bash", "zlib"}}
	assert.Equal(t, []string{"bash", "zlib"}, DependsOf(c))
	assert.Empty(t, DependsOf(&source.Component{Name: "leaf"}))
}
