// Package storagetest provides an in-memory storage.Library for tests.
//
// The fake keeps "files" in a map, counts every handle it hands out and
// every release, records the release order, and can be told to fail any
// operation. A companion buffer pool logs into the same release journal so
// tests can assert the full cleanup sequence of a probe run.
package storagetest
