// Package libversion contains the version record exchanged by the probe.
//
// Version is the (major, minor, release) triple reported by a storage
// library. String renders it the way it is stored in the probe file and Parse
// reads it back from module versions and stored strings.
package libversion
