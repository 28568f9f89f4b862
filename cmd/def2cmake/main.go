// def2cmake exports Baserock definitions as CMake ExternalProject builds.
package main

import (
	"os"

	"github.com/hupe1980/def2cmake/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
