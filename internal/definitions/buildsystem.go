package definitions

import (
	"fmt"
	"sort"
	"strings"
)

type buildSystem struct {
	configure []string
	build     []string
	install   []string
}

// DefaultBuildSystem applies when neither the stratum nor the chunk
// morphology names one.
const DefaultBuildSystem = "manual"

var buildSystems = map[string]buildSystem{
	"manual": {},
	"autotools": {
		configure: []string{`./configure --prefix="$PREFIX"`},
		build:     []string{"make"},
		install:   []string{`make DESTDIR="$DESTDIR" install`},
	},
	"cmake": {
		configure: []string{`cmake -DCMAKE_INSTALL_PREFIX="$PREFIX" .`},
		build:     []string{"make"},
		install:   []string{`make DESTDIR="$DESTDIR" install`},
	},
	"python-distutils": {
		build:   []string{"python setup.py build"},
		install: []string{`python setup.py install --prefix "$PREFIX" --root "$DESTDIR"`},
	},
	"qmake": {
		configure: []string{"qmake -makefile"},
		build:     []string{"make"},
		install:   []string{`make INSTALL_ROOT="$DESTDIR" install`},
	},
}

// BuildSystems lists the supported build-system names.
func BuildSystems() []string {
	names := make([]string, 0, len(buildSystems))
	for name := range buildSystems {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func lookupBuildSystem(name string) (buildSystem, error) {
	if name == "" {
		name = DefaultBuildSystem
	}

	bs, ok := buildSystems[name]
	if !ok {
		return buildSystem{}, fmt.Errorf("unknown build-system %q (supported: %s)", name, strings.Join(BuildSystems(), ", "))
	}

	return bs, nil
}
