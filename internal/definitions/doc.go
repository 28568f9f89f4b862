// Package definitions reads a Baserock-style definitions repository and
// offers it as a GraphSource.
//
// A definitions repository is a git worktree of YAML morphologies. A system
// lists strata, a stratum lists chunks and the strata it build-depends on,
// and a chunk carries the per-phase build commands of one upstream
// repository. Systems and strata are exported as components built from the
// definitions repository itself; chunks keep their own repo and ref.
package definitions
