// Package version exposes build metadata for h5probe.
//
// Version, Commit and BuildTime are injected at build time via ldflags and
// default to values suitable for local builds. The version subcommand also
// lists the versions of linked components such as the HDF5 library.
package version
