// Package hdf5 implements the storage.Library API on top of the pure-Go
// github.com/scigolib/hdf5 module.
//
// The library does not expose a runtime version call, so Version reports the
// module version recorded in the binary's build info. Files created through
// this package are written with superblock v2 and a contiguous, one-element
// fixed-length string dataset.
package hdf5
