// Package cmake renders an ordered build sequence into CMake
// ExternalProject_Add declarations.
//
// Each component becomes one declaration carrying its repository, revision
// and a configure, build and install command. A phase's commands are joined
// with "&&" and written inline when the line is short and free of
// characters ExternalProject cannot carry; otherwise they move to a
// "<component>-<phase>.sh" script beside the declaration. Empty phases get
// an explicit no-op so ExternalProject does not run its own defaults.
//
// Repository shorthands such as "upstream:gcc" are rewritten to
// "${GIT_UPSTREAM}/gcc", with the variable defined in the manifest preamble
// so a mirror can be selected at CMake configure time.
package cmake
