package cmake

import (
	"strings"

	"github.com/hupe1980/def2cmake/internal/source"
)

const (
	// MaxInlineLength is the longest joined command line kept inline.
	MaxInlineLength = 255

	// NoOpCommand replaces an empty phase. Leaving the field out would make
	// ExternalProject fall back to its own configure/build/install steps.
	NoOpCommand = "echo no-op"

	// CommandSeparator joins the commands of one phase into a shell line.
	CommandSeparator = " && "

	// ScriptInvocation prefixes the path of an externalised phase script.
	ScriptInvocation = "sh ${CMAKE_CURRENT_SOURCE_DIR}/"
)

// awkwardChars cannot be embedded in an ExternalProject command argument.
const awkwardChars = `()\`

// Script is an auxiliary shell script holding one phase of one component.
type Script struct {
	Name    string
	Phase   source.Phase
	Content string
}

// CommandSequence returns the pre, main and post commands of a phase.
func CommandSequence(c *source.Component, phase source.Phase) []string {
	return c.Commands(phase).Sequence()
}

// JoinCommands joins a command sequence into one shell line in which each
// command only runs if the previous one succeeded.
func JoinCommands(seq []string) string {
	return strings.Join(seq, CommandSeparator)
}

// CanInline reports whether a joined command line may be written directly
// into a command field.
func CanInline(command string) bool {
	if len(command) > MaxInlineLength {
		return false
	}

	return !strings.ContainsAny(command, awkwardChars)
}

// Escape doubles every backslash. Nothing else is escaped.
func Escape(s string) string {
	return strings.ReplaceAll(s, `\`, `\\`)
}

// ScriptName returns the file name of the script for a component phase.
func ScriptName(component string, phase source.Phase) string {
	return component + "-" + string(phase) + ".sh"
}

// RenderScript renders a phase script: a header comment naming the phase
// and component, then the original commands one per line, unescaped.
func RenderScript(component string, phase source.Phase, seq []string) string {
	var b strings.Builder

	b.WriteString("# " + string(phase) + " commands for " + component + "\n")

	for _, cmd := range seq {
		b.WriteString(cmd)
		b.WriteString("\n")
	}

	return b.String()
}

// PhaseCommand decides how a phase is expressed. An empty sequence yields
// NoOpCommand, an inlinable one its joined line; anything else is moved to
// a script that the returned field invokes.
// Blank commands are left out of the joined line so a phase never renders
// as an empty or dangling "&&" line. A script keeps the command list as
// written.
func PhaseCommand(c *source.Component, phase source.Phase) (string, *Script) {
	seq := CommandSequence(c, phase)

	cmds := dropBlank(seq)
	if len(cmds) == 0 {
		return NoOpCommand, nil
	}

	joined := JoinCommands(cmds)
	if CanInline(joined) {
		return joined, nil
	}

	name := ScriptName(c.Name, phase)

	return ScriptInvocation + name, &Script{
		Name:    name,
		Phase:   phase,
		Content: RenderScript(c.Name, phase, seq),
	}
}

func dropBlank(seq []string) []string {
	out := seq[:0:0]

	for _, cmd := range seq {
		if strings.TrimSpace(cmd) != "" {
			out = append(out, cmd)
		}
	}

	return out
}
