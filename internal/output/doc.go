// Package output materialises generated build descriptions on disk.
//
// The package is organized around three concerns:
//
//   - Writers (writer.go): Pluggable destinations via the [Writer]
//     interface, with [StreamWriter] and [FileWriter] implementations.
//     [FileWriter] leaves files that already hold the generated content
//     untouched.
//
//   - Trees (tree.go): An ordered, in-memory set of generated files that is
//     written to an output directory in emission order, or dumped to a
//     single [Writer] for previews.
//
//   - Pruning (prune.go): Removal of files left behind by an earlier run
//     whose dependency graph had a different shape.
package output
