package cmake

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/def2cmake/internal/source"
)

// ValidationSeverity indicates the severity of a validation finding.
type ValidationSeverity int

const (
	// SeverityError means the sequence cannot be exported.
	SeverityError ValidationSeverity = iota
	// SeverityWarning means the export works but may not be reproducible.
	SeverityWarning
)

// String returns the severity name.
func (s ValidationSeverity) String() string {
	if s == SeverityError {
		return "error"
	}

	return "warning"
}

// ValidationFinding is a single validation issue.
type ValidationFinding struct {
	Severity  ValidationSeverity `json:"-"`
	Component string             `json:"component"`
	Message   string             `json:"message"`
}

// Error implements the error interface.
func (f *ValidationFinding) Error() string {
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Component, f.Message)
}

// ValidationResult holds all findings from a validation run.
type ValidationResult struct {
	Findings []ValidationFinding
}

// Errors returns only error-severity findings.
func (r *ValidationResult) Errors() []ValidationFinding {
	return r.filter(SeverityError)
}

// Warnings returns only warning-severity findings.
func (r *ValidationResult) Warnings() []ValidationFinding {
	return r.filter(SeverityWarning)
}

// HasErrors returns true if any error-severity findings exist.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors()) > 0
}

// HasWarnings returns true if any warning-severity findings exist.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings()) > 0
}

func (r *ValidationResult) filter(sev ValidationSeverity) []ValidationFinding {
	var result []ValidationFinding

	for _, f := range r.Findings {
		if f.Severity == sev {
			result = append(result, f)
		}
	}

	return result
}

var (
	commitPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)
	schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)
)

// Validate lints an ordered build sequence before export. Errors are the
// conditions the exporter would reject; warnings flag output that is valid
// but not reproducible or likely to fail at build time.
func (e *Exporter) Validate(seq []*source.Component) *ValidationResult {
	v := &validator{aliases: e.opts.Aliases}

	pos := make(map[string]int, len(seq))
	for i, c := range seq {
		pos[c.Name] = i
	}

	for i, c := range seq {
		v.component(c)

		for _, dep := range DependsOf(c) {
			j, ok := pos[dep]

			switch {
			case !ok:
				v.addError(c.Name, fmt.Sprintf("depends on %q which is not exported", dep))
			case j > i:
				v.addError(c.Name, fmt.Sprintf("is ordered before its dependency %q", dep))
			}
		}
	}

	return &v.result
}

type validator struct {
	aliases []Alias
	result  ValidationResult
}

func (v *validator) addError(component, msg string) {
	v.result.Findings = append(v.result.Findings, ValidationFinding{
		Severity:  SeverityError,
		Component: component,
		Message:   msg,
	})
}

func (v *validator) addWarning(component, msg string) {
	v.result.Findings = append(v.result.Findings, ValidationFinding{
		Severity:  SeverityWarning,
		Component: component,
		Message:   msg,
	})
}

func (v *validator) component(c *source.Component) {
	if _, err := NewDescriptor(c, v.aliases); err != nil {
		v.addError(c.Name, err.Error())
		return
	}

	if c.Ref == "" {
		v.addWarning(c.Name, "no revision; ExternalProject will fetch the default branch")
	} else if !commitPattern.MatchString(c.Ref) {
		v.addWarning(c.Name, fmt.Sprintf("revision %q is not a commit SHA; builds are not reproducible", c.Ref))
	}

	resolved := ResolveRepoAlias(c.Repo, v.aliases)
	if resolved == c.Repo && !schemePattern.MatchString(c.Repo) && !strings.HasPrefix(c.Repo, "/") {
		if i := strings.Index(c.Repo, ":"); i > 0 && !strings.Contains(c.Repo[:i], "/") && !strings.Contains(c.Repo[:i], "@") {
			v.addWarning(c.Name, fmt.Sprintf("repository %q uses unknown alias %q", c.Repo, c.Repo[:i+1]))
		}
	}
}

// FormatValidationResult returns a human-readable string of all findings.
func FormatValidationResult(result *ValidationResult) string {
	if len(result.Findings) == 0 {
		return "Validation passed: no issues found."
	}

	var sb strings.Builder

	errs := result.Errors()
	warnings := result.Warnings()

	if len(errs) > 0 {
		_, _ = fmt.Fprintf(&sb, "Errors (%d):\n", len(errs))

		for _, f := range errs {
			_, _ = fmt.Fprintf(&sb, "  - %s: %s\n", f.Component, f.Message)
		}
	}

	if len(warnings) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}

		_, _ = fmt.Fprintf(&sb, "Warnings (%d):\n", len(warnings))

		for _, f := range warnings {
			_, _ = fmt.Fprintf(&sb, "  - %s: %s\n", f.Component, f.Message)
		}
	}

	return sb.String()
}
