// Package probe implements the HDF5 version round-trip probe.
//
// A Probe queries the storage library version, writes it as the string
// dataset /version_str through the high-level write call, reopens the file
// read-only and reads the dataset back through the typed low-level read, then
// returns the string it observed. Every handle is released on every exit
// path, in the order datatype, dataset, file, buffer.
//
// The close that ends the write phase is advisory: its failure is logged and
// reported in Result.CloseWarning, and the read phase runs anyway.
//
// A Probe keeps no state between runs and does no locking. Callers must not
// run it concurrently against the same path; RunAll enforces that for batches.
package probe
