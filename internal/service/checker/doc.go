// Package checker runs h5probe end to end: it loads settings, prepares the
// target files, calls the registered hdf5_version routine for each of them
// and renders the report.
package checker
