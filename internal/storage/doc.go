// Package storage defines the handle-based storage-library API the probe
// depends on.
//
// The API mirrors the small subset of a scientific file-format library the
// probe needs: a version query, file create/open/close, a high-level
// "write a whole string dataset" call, dataset open/close, datatype
// introspection and a typed read driven by an explicit memory datatype.
// Every handle returned by a Library must be closed by the caller.
package storage
