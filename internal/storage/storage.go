package storage

import (
	"errors"

	"github.com/oshokin/h5probe/internal/domain/libversion"
)

// TypeClass is the class of a stored or in-memory datatype.
type TypeClass int

const (
	// ClassUnknown is a class the library does not recognise.
	ClassUnknown TypeClass = iota
	// ClassInteger is a fixed-point number.
	ClassInteger
	// ClassFloat is a floating-point number.
	ClassFloat
	// ClassString is a fixed-length character string.
	ClassString
	// ClassCompound is a record of named members.
	ClassCompound
	// ClassArray is a fixed-size array of a base type.
	ClassArray
	// ClassOpaque is an uninterpreted byte sequence.
	ClassOpaque
)

// String returns the lower-case class name.
func (c TypeClass) String() string {
	switch c {
	case ClassInteger:
		return "integer"
	case ClassFloat:
		return "float"
	case ClassString:
		return "string"
	case ClassCompound:
		return "compound"
	case ClassArray:
		return "array"
	case ClassOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// StringPad describes how a fixed-length string is terminated or padded.
type StringPad int

const (
	// PadNullTerm terminates the string with a NUL byte.
	PadNullTerm StringPad = iota
	// PadNullPad fills the unused tail with NUL bytes.
	PadNullPad
	// PadSpace fills the unused tail with spaces.
	PadSpace
)

var (
	// ErrClosedHandle is returned when a handle is used or closed after Close.
	ErrClosedHandle = errors.New("handle is closed")
	// ErrReadOnly is returned when writing through a handle opened read-only.
	ErrReadOnly = errors.New("file is opened read-only")
	// ErrForeignHandle is returned when a handle from another library is passed in.
	ErrForeignHandle = errors.New("handle does not belong to this library")
)

// File is an open file handle.
type File interface {
	Close() error
}

// Dataset is an open dataset handle.
type Dataset interface {
	Close() error
}

// Datatype is an open datatype handle, either copied from a dataset or
// created to describe the in-memory layout of a read.
type Datatype interface {
	// Class returns the datatype class.
	Class() TypeClass
	// Size returns the size of one element in bytes.
	Size() int
	// Pad returns the string padding; meaningful for ClassString only.
	Pad() StringPad
	Close() error
}

// Library is the storage-library API.
type Library interface {
	// Version reports the library version.
	Version() (libversion.Version, error)
	// Create creates path, truncating any existing file, and opens it for writing.
	Create(path string) (File, error)
	// Open opens an existing file read-only.
	Open(path string) (File, error)
	// MakeDatasetString creates dataset name holding value as a
	// null-terminated fixed-length string of len(value)+1 bytes.
	MakeDatasetString(file File, name, value string) error
	// OpenDataset opens the dataset at absolute path name.
	OpenDataset(file File, name string) (Dataset, error)
	// DatasetType returns a copy of the dataset's stored datatype.
	DatasetType(dataset Dataset) (Datatype, error)
	// NewStringType creates a transient string datatype for memory-side reads.
	NewStringType(size int, pad StringPad) (Datatype, error)
	// Read reads the whole dataset into buf laid out as described by mem.
	Read(dataset Dataset, mem Datatype, buf []byte) error
}
