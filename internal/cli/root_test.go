package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/def2cmake/internal/definitions"
	"github.com/hupe1980/def2cmake/internal/source"
)

// executeCommand is a test helper that runs the CLI with the given args and
// captures both stdout and stderr.
func executeCommand(args ...string) (stdout, stderr string, err error) {
	return executeCommandContext(context.Background(), args...)
}

func executeCommandContext(ctx context.Context, args ...string) (stdout, stderr string, err error) {
	cmd := NewRootCommand()
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(ctx)

	return outBuf.String(), errBuf.String(), err
}

// requireExitCode asserts that err is an *ExitError with the given code.
func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()

	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, code, exitErr.Code, "error: %v", err)
}

// ---------------------------------------------------------------------------
// Definitions fixture
// ---------------------------------------------------------------------------

const (
	shaFoo = "1111111111111111111111111111111111111111"
	shaBar = "2222222222222222222222222222222222222222"
)

const fixtureOrigin = "git://git.example.com/definitions"

// fooBarFiles is a system with one stratum holding two chunks, where bar
// build-depends on foo and has a configure command that must go to a
// script.
func fooBarFiles() map[string]string {
	return map[string]string{
		"systems/foo-system.morph": `name: foo-system
kind: system
strata:
- name: core
  morph: strata/core.morph
`,
		"strata/core.morph": `name: core
kind: stratum
chunks:
- name: foo
  repo: upstream:foo
  ref: ` + shaFoo + `
  build-system: autotools
- name: bar
  repo: baserock:bar
  ref: ` + shaBar + `
  morph: strata/core/bar.morph
  build-depends:
  - foo
`,
		"strata/core/bar.morph": `name: bar
kind: chunk
configure-commands:
- ./configure --with-feature=$(pkg-config --modversion foo)
build-commands:
- make
install-commands:
- make install
`,
	}
}

// initDefinitions writes files into a fresh git repository with an origin
// remote, commits them and returns the worktree.
func initDefinitions(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	writeFiles(t, dir, files)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))

	_, err = wt.Commit("definitions", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{fixtureOrigin}})
	require.NoError(t, err)

	return dir
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path) //nolint:gosec // test fixture path
	require.NoError(t, err)

	return string(data)
}

// ---------------------------------------------------------------------------
// Help output
// ---------------------------------------------------------------------------

func TestRootCommand_Help(t *testing.T) {
	stdout, _, err := executeCommand("--help")
	require.NoError(t, err)

	for _, sub := range []string{
		"export", "inspect", "validate", "plan", "diff", "watch", "version", "completion",
	} {
		assert.Contains(t, stdout, sub, "help should mention %q subcommand", sub)
	}

	for _, flag := range []string{"--config", "--log-level", "--log-format", "--no-color", "--quiet"} {
		assert.Contains(t, stdout, flag, "help should mention %q flag", flag)
	}
}

func TestSubcommand_Help(t *testing.T) {
	tests := []struct {
		sub   string
		flags []string
	}{
		{"export", []string{"--output-dir", "--dry-run", "--layout", "--prune", "--cache-dir", "--cmake-minimum-version", "--definitions"}},
		{"inspect", []string{"--format", "--show-components", "--show-deps", "--cache-dir"}},
		{"validate", []string{"--strict", "--layout"}},
		{"plan", []string{"--format", "--output-dir"}},
		{"diff", []string{"--format", "--output-dir", "Differences found"}},
		{"watch", []string{"--debounce", "--gitignore", "--output-dir"}},
	}

	for _, tt := range tests {
		t.Run(tt.sub, func(t *testing.T) {
			stdout, _, err := executeCommand(tt.sub, "--help")
			require.NoError(t, err)

			for _, f := range tt.flags {
				assert.Contains(t, stdout, f)
			}
		})
	}
}

func TestSubcommands_RequireDefinitionFile(t *testing.T) {
	for _, sub := range []string{"export", "inspect", "validate", "plan", "diff", "watch"} {
		t.Run(sub, func(t *testing.T) {
			_, _, err := executeCommand(sub)
			require.Error(t, err)
		})
	}
}

// ---------------------------------------------------------------------------
// Unknown flags → exit code 2
// ---------------------------------------------------------------------------

func TestRootCommand_UnknownFlag(t *testing.T) {
	_, _, err := executeCommand("--nonexistent")
	requireExitCode(t, err, 2)
}

// ---------------------------------------------------------------------------
// SilenceErrors: cobra must not print errors itself
// ---------------------------------------------------------------------------

func TestRootCommand_SilenceErrors(t *testing.T) {
	_, stderr, err := executeCommand("--nonexistent")
	require.Error(t, err)
	assert.Empty(t, stderr, "cobra should not print errors to stderr (SilenceErrors)")
}

// ---------------------------------------------------------------------------
// Configuration errors → exit code 2
// ---------------------------------------------------------------------------

func TestRootCommand_InvalidConfig(t *testing.T) {
	_, _, err := executeCommand("--config", "/nonexistent/path.yaml", "inspect", "systems/x.morph")
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	_, _, err := executeCommand("--log-level", "trace", "inspect", "systems/x.morph")
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestRootCommand_InvalidLogFormat(t *testing.T) {
	_, _, err := executeCommand("--log-format", "xml", "inspect", "systems/x.morph")
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestRootCommand_InvalidLayout(t *testing.T) {
	_, _, err := executeCommand("export", "--layout", "nested", "systems/x.morph")
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "invalid layout")
}

func TestRootCommand_CMakeVersionTooOld(t *testing.T) {
	dir := initDefinitions(t, fooBarFiles())

	_, _, err := executeCommand("export", "--cmake-minimum-version", "2.8.12",
		filepath.Join(dir, "systems", "foo-system.morph"))
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "older than")
}

// ---------------------------------------------------------------------------
// Execute helper
// ---------------------------------------------------------------------------

// withArgs replaces os.Args for the duration of the test; Execute reads
// them through cobra.
func withArgs(t *testing.T, args ...string) {
	t.Helper()

	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = append([]string{"def2cmake"}, args...)
}

func TestExecute_Success(t *testing.T) {
	withArgs(t, "version", "--short")
	assert.Equal(t, 0, Execute())
}

func TestExecute_ReturnsExitCode(t *testing.T) {
	withArgs(t, "--nonexistent")
	assert.Equal(t, 2, Execute())

	withArgs(t, "inspect", filepath.Join(t.TempDir(), "x.morph"))
	assert.Equal(t, 2, Execute(), "outside a git repository")
}

// ---------------------------------------------------------------------------
// ExitError
// ---------------------------------------------------------------------------

func TestExitError_ErrorWithMessage(t *testing.T) {
	err := &ExitError{Code: 1, Err: assert.AnError}
	assert.Contains(t, err.Error(), assert.AnError.Error())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestExitError_ErrorWithoutMessage(t *testing.T) {
	err := &ExitError{Code: 42}
	assert.Equal(t, "exit code 42", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestExitErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"root not found", &source.RootNotFoundError{DefinitionFile: "x.morph"}, 3},
		{"wrapped root not found", fmt.Errorf("planning: %w", &source.RootNotFoundError{DefinitionFile: "x.morph"}), 3},
		{"cycle", &source.GraphError{Cycle: []string{"a", "b", "a"}}, 4},
		{"graph sentinel", fmt.Errorf("x: %w", source.ErrGraph), 4},
		{"not in repository", fmt.Errorf("%w: /tmp", definitions.ErrNotInRepository), 2},
		{"other", errors.New("boom"), 1},
		{"already coded", &ExitError{Code: 6, Err: errors.New("disk full")}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireExitCode(t, exitError(tt.err), tt.want)
		})
	}

	assert.NoError(t, exitError(nil))
}
