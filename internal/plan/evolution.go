package plan

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hupe1980/def2cmake/internal/cmake"
	"github.com/hupe1980/def2cmake/internal/source"
)

// ChangeType represents the type of change detected.
type ChangeType string

// Change types.
const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// ComponentChange is the change of one exported component between the
// previous export and the current one.
type ComponentChange struct {
	Type      ChangeType `json:"type"`
	Component string     `json:"component"`
	Details   string     `json:"details"`

	// Rebuild is set when the component's sources or commands changed, so
	// CMake will fetch and build it again.
	Rebuild bool `json:"rebuild"`
}

// EvolutionResult holds the comparison of two exports.
type EvolutionResult struct {
	Changes []ComponentChange `json:"changes"`
}

// HasChanges returns true if there are any changes.
func (e *EvolutionResult) HasChanges() bool {
	return len(e.Changes) > 0
}

// RebuildCount returns the number of components CMake will rebuild.
func (e *EvolutionResult) RebuildCount() int {
	count := 0

	for _, c := range e.Changes {
		if c.Rebuild {
			count++
		}
	}

	return count
}

// Analyze compares the descriptors of a previous export with the current
// ones, by component name.
func Analyze(previous, current []cmake.Descriptor) *EvolutionResult {
	oldIdx := indexByName(previous)
	newIdx := indexByName(current)

	result := &EvolutionResult{}

	for _, name := range sortedKeys(oldIdx) {
		if _, exists := newIdx[name]; !exists {
			result.Changes = append(result.Changes, ComponentChange{
				Type:      ChangeRemoved,
				Component: name,
				Details:   "component removed",
			})
		}
	}

	for _, name := range sortedKeys(newIdx) {
		prev, exists := oldIdx[name]
		if !exists {
			result.Changes = append(result.Changes, ComponentChange{
				Type:      ChangeAdded,
				Component: name,
				Details:   "component added",
				Rebuild:   true,
			})

			continue
		}

		if details, rebuild := compareDescriptors(prev, newIdx[name]); len(details) > 0 {
			result.Changes = append(result.Changes, ComponentChange{
				Type:      ChangeModified,
				Component: name,
				Details:   strings.Join(details, "; "),
				Rebuild:   rebuild,
			})
		}
	}

	return result
}

func compareDescriptors(prev, cur cmake.Descriptor) (details []string, rebuild bool) {
	if prev.GitRepository != cur.GitRepository {
		details = append(details, fmt.Sprintf("repository %s -> %s", prev.GitRepository, cur.GitRepository))
		rebuild = true
	}

	if prev.GitTag != cur.GitTag {
		details = append(details, fmt.Sprintf("ref %s -> %s", shortRef(prev.GitTag), shortRef(cur.GitTag)))
		rebuild = true
	}

	for _, field := range []struct {
		name     string
		old, new string
	}{
		{"configure", prev.ConfigureCommand, cur.ConfigureCommand},
		{"build", prev.BuildCommand, cur.BuildCommand},
		{"install", prev.InstallCommand, cur.InstallCommand},
	} {
		if field.old != field.new {
			details = append(details, field.name+" command changed")
			rebuild = true
		}
	}

	prevScripts, curScripts := scriptsByPhase(prev), scriptsByPhase(cur)

	for _, phase := range source.Phases {
		if prev.Command(phase) != cur.Command(phase) {
			continue
		}

		if prevScripts[phase] != curScripts[phase] {
			details = append(details, string(phase)+" script changed")
			rebuild = true
		}
	}

	added, removed := diffNames(prev.Depends, cur.Depends)

	if len(added) > 0 {
		details = append(details, "depends +"+strings.Join(added, " +"))
	}

	if len(removed) > 0 {
		details = append(details, "depends -"+strings.Join(removed, " -"))
	}

	return details, rebuild
}

func diffNames(old, cur []string) (added, removed []string) {
	oldSet := make(map[string]bool, len(old))
	for _, n := range old {
		oldSet[n] = true
	}

	curSet := make(map[string]bool, len(cur))
	for _, n := range cur {
		curSet[n] = true

		if !oldSet[n] {
			added = append(added, n)
		}
	}

	for _, n := range old {
		if !curSet[n] {
			removed = append(removed, n)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)

	return added, removed
}

func scriptsByPhase(d cmake.Descriptor) map[source.Phase]string {
	m := make(map[source.Phase]string, len(d.Scripts))
	for _, sc := range d.Scripts {
		m[sc.Phase] = sc.Content
	}

	return m
}

func shortRef(ref string) string {
	if ref == "" {
		return "(none)"
	}

	if len(ref) == 40 {
		return ref[:12]
	}

	return ref
}

func indexByName(descs []cmake.Descriptor) map[string]cmake.Descriptor {
	idx := make(map[string]cmake.Descriptor, len(descs))
	for _, d := range descs {
		idx[d.Name] = d
	}

	return idx
}

func sortedKeys(m map[string]cmake.Descriptor) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// ReadExisting parses the descriptors of a previous export below dir, in
// either layout. A missing directory has none.
func ReadExisting(dir string) ([]cmake.Descriptor, error) {
	manifests := []string{filepath.Join(dir, cmake.ManifestName)}

	nested, err := filepath.Glob(filepath.Join(dir, "*", cmake.ManifestName))
	if err != nil {
		return nil, err
	}

	sort.Strings(nested)
	manifests = append(manifests, nested...)

	var descs []cmake.Descriptor

	for _, p := range manifests {
		data, err := os.ReadFile(p) //nolint:gosec // output dir chosen by the user
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return nil, fmt.Errorf("reading %s: %w", p, err)
		}

		parsed, err := cmake.ParseDescriptors(string(data))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", p, err)
		}

		for i := range parsed {
			if err := readScripts(&parsed[i], filepath.Dir(p)); err != nil {
				return nil, err
			}
		}

		descs = append(descs, parsed...)
	}

	return descs, nil
}

// readScripts loads the phase scripts d invokes from dir, where the
// exporter writes them next to their manifest. A missing script is left
// out, which compares as changed.
func readScripts(d *cmake.Descriptor, dir string) error {
	for _, phase := range source.Phases {
		name := cmake.ScriptName(d.Name, phase)
		if d.Command(phase) != cmake.ScriptInvocation+name {
			continue
		}

		p := filepath.Join(dir, name)

		data, err := os.ReadFile(p) //nolint:gosec // output dir chosen by the user
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return fmt.Errorf("reading %s: %w", p, err)
		}

		d.Scripts = append(d.Scripts, cmake.Script{Name: name, Phase: phase, Content: string(data)})
	}

	return nil
}

// FormatTable writes the evolution result as a human-readable table.
func FormatTable(w io.Writer, result *EvolutionResult) {
	if !result.HasChanges() {
		_, _ = fmt.Fprintln(w, "No changes detected.")
		return
	}

	_, _ = fmt.Fprintln(w, "Component Changes:")
	_, _ = fmt.Fprintln(w, strings.Repeat("-", 60))

	for _, c := range result.Changes {
		_, _ = fmt.Fprintf(w, "  %s %-30s %s\n", changeIcon(c.Type), c.Component, c.Details)
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Components to rebuild: %d\n", result.RebuildCount())
}

// FormatJSON writes the evolution result as JSON.
func FormatJSON(w io.Writer, result *EvolutionResult) error {
	out := struct {
		Changes []ComponentChange `json:"changes"`
		Summary struct {
			Added    int `json:"added"`
			Removed  int `json:"removed"`
			Modified int `json:"modified"`
			Rebuild  int `json:"rebuild"`
		} `json:"summary"`
	}{
		Changes: result.Changes,
	}

	out.Summary.Added, out.Summary.Removed, out.Summary.Modified = countByType(result.Changes)
	out.Summary.Rebuild = result.RebuildCount()

	if out.Changes == nil {
		out.Changes = []ComponentChange{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}

func changeIcon(ct ChangeType) string {
	switch ct {
	case ChangeAdded:
		return "+ "
	case ChangeRemoved:
		return "- "
	case ChangeModified:
		return "~ "
	default:
		return "  "
	}
}

// FormatCompactSummary returns a single-line summary of the evolution result.
func FormatCompactSummary(result *EvolutionResult) string {
	if !result.HasChanges() {
		return "No changes detected."
	}

	var parts []string

	added, removed, modified := countByType(result.Changes)
	if added > 0 {
		parts = append(parts, fmt.Sprintf("%d components added", added))
	}

	if removed > 0 {
		parts = append(parts, fmt.Sprintf("%d components removed", removed))
	}

	if modified > 0 {
		parts = append(parts, fmt.Sprintf("%d components modified", modified))
	}

	return strings.Join(parts, ", ")
}

func countByType(changes []ComponentChange) (added, removed, modified int) {
	for _, c := range changes {
		switch c.Type {
		case ChangeAdded:
			added++
		case ChangeRemoved:
			removed++
		case ChangeModified:
			modified++
		}
	}

	return
}
