package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/hupe1980/def2cmake/internal/cmake"
	"github.com/hupe1980/def2cmake/internal/source"
)

type inspectOptions struct {
	sourceOptions

	showComponents bool
	showDeps       bool
	format         string
}

func newInspectCommand() *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <definition-file>",
		Short: "Show the build order of a definition without exporting",
		Long: `Inspect resolves the component declared by a definition file and
prints its dependency closure in build order: the kind, repository, ref and
declaring morphology of every component and what it depends on.

Nothing is rendered or written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], opts)
		},
	}

	registerSourceFlags(cmd, &opts.sourceOptions)

	f := cmd.Flags()
	f.String("cache-dir", "", "git mirror cache used to resolve symbolic refs")
	f.BoolVar(&opts.showComponents, "show-components", false, "show only the component table")
	f.BoolVar(&opts.showDeps, "show-deps", false, "show only the dependencies")
	f.StringVar(&opts.format, "format", "table", "output format: table, json, yaml")

	registerDefinitionCompletion(cmd)

	return cmd
}

// inspectResult is the structured output of the inspect command.
type inspectResult struct {
	Root        string          `json:"root"`
	Definitions definitionsInfo `json:"definitions"`
	Components  []componentInfo `json:"components"`
}

type definitionsInfo struct {
	Path string `json:"path"`
	URL  string `json:"url"`
	Head string `json:"head,omitempty"`
}

type componentInfo struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind,omitempty"`
	Repository string   `json:"repository"`
	URL        string   `json:"url"`
	Ref        string   `json:"ref,omitempty"`
	Filename   string   `json:"filename,omitempty"`
	DependsOn  []string `json:"dependsOn,omitempty"`
}

func runInspect(cmd *cobra.Command, definitionFile string, opts *inspectOptions) error {
	ctx := cmd.Context()

	s, err := newSession(ctx, definitionFile, &opts.sourceOptions)
	if err != nil {
		return err
	}

	root, seq, err := s.sequence(ctx)
	if err != nil {
		return err
	}

	result := buildInspectResult(s, root, seq)

	w := cmd.OutOrStdout()

	switch opts.format {
	case "json":
		return renderJSON(w, result)
	case "yaml":
		return renderYAML(w, result)
	case "table", "":
		showAll := !opts.showComponents && !opts.showDeps
		return renderTable(w, result, showAll, opts)
	default:
		return &ExitError{Code: 2, Err: fmt.Errorf("unsupported format %q (supported: table, json, yaml)", opts.format)}
	}
}

func buildInspectResult(s *session, root *source.Component, seq []*source.Component) inspectResult {
	repo := s.source.Repository()
	aliases := s.exporter.Options().Aliases

	result := inspectResult{
		Root: root.Name,
		Definitions: definitionsInfo{
			Path: repo.Root,
			URL:  repo.URL,
			Head: repo.Head,
		},
		Components: make([]componentInfo, 0, len(seq)),
	}

	for _, c := range seq {
		result.Components = append(result.Components, componentInfo{
			Name:       c.Name,
			Kind:       string(c.Kind),
			Repository: c.Repo,
			URL:        cmake.ExpandRepoAlias(c.Repo, aliases),
			Ref:        c.Ref,
			Filename:   c.Filename,
			DependsOn:  cmake.DependsOf(c),
		})
	}

	return result
}

func renderJSON(w io.Writer, result inspectResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(result)
}

func renderYAML(w io.Writer, result inspectResult) error {
	data, err := sigsyaml.Marshal(result)
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}

func renderTable(w io.Writer, result inspectResult, showAll bool, opts *inspectOptions) error {
	if showAll || opts.showComponents {
		printDefinitionsInfo(w, result)
		printComponentTable(w, result)
	}

	if showAll || opts.showDeps {
		printDependencies(w, result)
	}

	return nil
}

func printDefinitionsInfo(w io.Writer, result inspectResult) {
	_, _ = fmt.Fprintf(w, "\n=== Root: %s ===\n", result.Root)
	_, _ = fmt.Fprintf(w, "Definitions: %s\n", result.Definitions.Path)
	_, _ = fmt.Fprintf(w, "Repository:  %s\n", result.Definitions.URL)

	if result.Definitions.Head != "" {
		_, _ = fmt.Fprintf(w, "Head:        %s\n", result.Definitions.Head)
	}
}

func printComponentTable(w io.Writer, result inspectResult) {
	_, _ = fmt.Fprintf(w, "\n--- Build Order (%d) ---\n", len(result.Components))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tNAME\tKIND\tREPOSITORY\tREF\tFILE")

	for i, c := range result.Components {
		ref := c.Ref
		if len(ref) == 40 {
			ref = ref[:12]
		}

		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, c.Name, c.Kind, c.Repository, ref, c.Filename)
	}

	_ = tw.Flush()
}

func printDependencies(w io.Writer, result inspectResult) {
	_, _ = fmt.Fprintf(w, "\n--- Dependencies ---\n")

	for _, c := range result.Components {
		if len(c.DependsOn) == 0 {
			_, _ = fmt.Fprintf(w, "  %s\n", c.Name)
			continue
		}

		_, _ = fmt.Fprintf(w, "  %s <- %s\n", c.Name, strings.Join(c.DependsOn, ", "))
	}
}
