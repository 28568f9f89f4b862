package config

import (
	"fmt"

	sigsyaml "sigs.k8s.io/yaml"
)

// Alias is a repository alias as written in the config file:
//
//	aliases:
//	  - prefix: "upstream:"
//	    variable: GIT_UPSTREAM
//	    base-url: git://git.baserock.org/delta
type Alias struct {
	Prefix   string `json:"prefix"`
	Variable string `json:"variable"`
	BaseURL  string `json:"base-url"`
}

// ParseAliases extracts the aliases section from raw config file bytes. It
// returns nil when the section is absent and an empty non-nil slice when it
// is an empty list.
func ParseAliases(data []byte) ([]Alias, error) {
	var raw struct {
		Aliases *[]Alias `json:"aliases"`
	}

	if err := sigsyaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing aliases: %w", err)
	}

	if raw.Aliases == nil {
		return nil, nil
	}

	aliases := *raw.Aliases
	if aliases == nil {
		aliases = []Alias{}
	}

	for i, a := range aliases {
		if a.Prefix == "" {
			return nil, fmt.Errorf("aliases[%d]: prefix is required", i)
		}

		if a.Variable == "" {
			return nil, fmt.Errorf("aliases[%d]: variable is required", i)
		}
	}

	return aliases, nil
}
