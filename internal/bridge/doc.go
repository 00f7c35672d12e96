// Package bridge is the call boundary between a host program and the probe.
//
// It exposes exactly one routine, "hdf5_version", taking one string argument
// (the target file path) and returning a one-element string slice. The table
// is fixed when it is built: there is no lookup by arbitrary symbol, and the
// process-wide registry is installed once by Init and never changes.
package bridge
