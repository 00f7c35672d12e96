// Package report renders probe outcomes as plain text, a go-pretty table or
// protobuf JSON.
package report
