package cmake

import (
	"fmt"
	"regexp"
	"strings"
)

// Alias maps a repository shorthand prefix to a CMake variable holding the
// base URL, so generated files can be re-pointed at a mirror by overriding
// the variable instead of regenerating.
type Alias struct {
	// Prefix is the shorthand, including its trailing colon ("upstream:").
	Prefix string `json:"prefix" mapstructure:"prefix"`

	// Variable is the CMake variable name defined in the preamble.
	Variable string `json:"variable" mapstructure:"variable"`

	// BaseURL is the default value of Variable.
	BaseURL string `json:"baseURL" mapstructure:"base-url"`
}

// DefaultAliases returns the two aliases of the Baserock definitions format.
func DefaultAliases() []Alias {
	return []Alias{
		{Prefix: "baserock:", Variable: "GIT_BASEROCK", BaseURL: "git://git.baserock.org/baserock"},
		{Prefix: "upstream:", Variable: "GIT_UPSTREAM", BaseURL: "git://git.baserock.org/delta"},
	}
}

var cmakeVariablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateAliases checks that every alias is well formed and that no two
// aliases share a prefix or variable.
func ValidateAliases(aliases []Alias) error {
	prefixes := make(map[string]bool, len(aliases))
	variables := make(map[string]bool, len(aliases))

	for _, a := range aliases {
		if !strings.HasSuffix(a.Prefix, ":") || len(a.Prefix) < 2 {
			return fmt.Errorf("alias prefix %q must be a non-empty name followed by ':'", a.Prefix)
		}

		if strings.ContainsAny(a.Prefix, "/$ ") {
			return fmt.Errorf("alias prefix %q must not contain '/', '$' or spaces", a.Prefix)
		}

		if !cmakeVariablePattern.MatchString(a.Variable) {
			return fmt.Errorf("alias %q: invalid CMake variable name %q", a.Prefix, a.Variable)
		}

		if a.BaseURL == "" {
			return fmt.Errorf("alias %q: base URL must not be empty", a.Prefix)
		}

		if prefixes[a.Prefix] {
			return fmt.Errorf("duplicate alias prefix %q", a.Prefix)
		}

		if variables[a.Variable] {
			return fmt.Errorf("duplicate alias variable %q", a.Variable)
		}

		prefixes[a.Prefix] = true
		variables[a.Variable] = true
	}

	return nil
}

// ResolveRepoAlias rewrites an alias-prefixed repository ("upstream:gcc")
// into a reference to the alias variable ("${GIT_UPSTREAM}/gcc"). Any other
// string, including an already resolved one, is returned unchanged.
func ResolveRepoAlias(repo string, aliases []Alias) string {
	for _, a := range aliases {
		if strings.HasPrefix(repo, a.Prefix) {
			return "${" + a.Variable + "}/" + repo[len(a.Prefix):]
		}
	}

	return repo
}

// ExpandRepoAlias rewrites an alias-prefixed repository into the concrete
// URL below the alias base ("upstream:gcc" to "git://.../delta/gcc"). Any
// other string is returned unchanged.
func ExpandRepoAlias(repo string, aliases []Alias) string {
	for _, a := range aliases {
		if strings.HasPrefix(repo, a.Prefix) {
			return strings.TrimSuffix(a.BaseURL, "/") + "/" + repo[len(a.Prefix):]
		}
	}

	return repo
}
