// Package plan previews an export: the build order it produces, the files
// it writes, how it differs from what is already on disk and which
// components CMake would rebuild as a result.
package plan

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/def2cmake/internal/cmake"
)

// PlanResult holds the complete plan of one export.
type PlanResult struct {
	Root       string           `json:"root"`
	Layout     string           `json:"layout"`
	Components []PlanComponent  `json:"components"`
	Files      []string         `json:"files"`
	Scripts    int              `json:"scripts"`
	Evolution  *EvolutionResult `json:"evolution,omitempty"`
}

// PlanComponent is one step of the build order.
type PlanComponent struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind,omitempty"`
	Repository string   `json:"repository"`
	Ref        string   `json:"ref,omitempty"`
	DependsOn  []string `json:"dependsOn,omitempty"`
	Scripts    []string `json:"scripts,omitempty"`
}

// BuildPlan constructs a PlanResult from an export result.
func BuildPlan(res *cmake.Result, layout cmake.Layout) *PlanResult {
	plan := &PlanResult{
		Layout: string(layout),
		Files:  res.Tree.Paths(),
	}

	if res.Root != nil {
		plan.Root = res.Root.Name
	}

	kinds := make(map[string]string, len(res.Sequence))
	for _, c := range res.Sequence {
		kinds[c.Name] = string(c.Kind)
	}

	for _, d := range res.Descriptors {
		pc := PlanComponent{
			Name:       d.Name,
			Kind:       kinds[d.Name],
			Repository: d.GitRepository,
			Ref:        d.GitTag,
			DependsOn:  d.Depends,
		}

		for _, s := range d.Scripts {
			pc.Scripts = append(pc.Scripts, s.Name)
		}

		plan.Scripts += len(pc.Scripts)
		plan.Components = append(plan.Components, pc)
	}

	return plan
}

// ApplyEvolution merges the comparison with a previous export into the plan.
func ApplyEvolution(plan *PlanResult, evolution *EvolutionResult) {
	plan.Evolution = evolution
}

// FormatPlan writes a human-readable plan to the given writer.
func FormatPlan(w io.Writer, plan *PlanResult) {
	fmt.Fprintf(w, "Plan: %s (%s layout)\n", plan.Root, plan.Layout)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	if len(plan.Components) > 0 {
		fmt.Fprintln(w, "\nBuild Order:")
		fmt.Fprintln(w, strings.Repeat("-", 40))

		for i, c := range plan.Components {
			fmt.Fprintf(w, "  %3d. %-25s %s", i+1, c.Name, c.Repository)

			if c.Ref != "" {
				fmt.Fprintf(w, " @ %s", shortRef(c.Ref))
			}

			fmt.Fprintln(w)

			if len(c.DependsOn) > 0 {
				fmt.Fprintf(w, "       depends on: %s\n", strings.Join(c.DependsOn, ", "))
			}

			if len(c.Scripts) > 0 {
				fmt.Fprintf(w, "       scripts: %s\n", strings.Join(c.Scripts, ", "))
			}
		}
	}

	if len(plan.Files) > 0 {
		fmt.Fprintln(w, "\nFiles:")
		fmt.Fprintln(w, strings.Repeat("-", 40))

		for _, f := range plan.Files {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}

	fmt.Fprintf(w, "\nSummary: %d components, %d files, %d scripts\n",
		len(plan.Components), len(plan.Files), plan.Scripts)

	if plan.Evolution != nil && plan.Evolution.HasChanges() {
		fmt.Fprintln(w)
		FormatTable(w, plan.Evolution)
	}

	fmt.Fprintln(w)
}

// FormatPlanJSON writes the plan as JSON.
func FormatPlanJSON(w io.Writer, plan *PlanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(plan)
}

// FormatPlanCompact writes a compact summary of the plan.
func FormatPlanCompact(w io.Writer, plan *PlanResult) {
	fmt.Fprintf(w, "Plan: %s -- %d components, %d files, %d scripts\n",
		plan.Root,
		len(plan.Components),
		len(plan.Files),
		plan.Scripts,
	)

	if plan.Evolution != nil && plan.Evolution.HasChanges() {
		fmt.Fprintf(w, "Changes: %s (%d to rebuild)\n", FormatCompactSummary(plan.Evolution), plan.Evolution.RebuildCount())
	}
}
