package probe

import (
	"errors"
	"fmt"
)

// Kind identifies the pipeline step that failed.
type Kind int

// Failure kinds in pipeline order.
const (
	KindVersionQuery Kind = iota + 1
	KindFileCreate
	KindDatasetWrite
	KindFileCloseWarning
	KindFileOpen
	KindDatasetOpen
	KindTypeQuery
	KindUnexpectedType
	KindZeroSizeType
	KindAllocation
	KindDatasetRead
)

// String returns the message prefix used for the kind.
func (k Kind) String() string {
	switch k {
	case KindVersionQuery:
		return "library version query failed"
	case KindFileCreate:
		return "file create failed"
	case KindDatasetWrite:
		return "dataset write failed"
	case KindFileCloseWarning:
		return "file close after write failed"
	case KindFileOpen:
		return "file open failed"
	case KindDatasetOpen:
		return "dataset open failed"
	case KindTypeQuery:
		return "dataset type query failed"
	case KindUnexpectedType:
		return "dataset is not a string type"
	case KindZeroSizeType:
		return "dataset string type has zero size"
	case KindAllocation:
		return "read buffer allocation failed"
	case KindDatasetRead:
		return "dataset read failed"
	default:
		return fmt.Sprintf("probe error %d", int(k))
	}
}

// Error is a probe failure. Path is set for steps that touch the file.
type Error struct {
	// Kind is the failed step.
	Kind Kind
	// Path is the target file, if relevant.
	Path string
	// Err is the underlying cause.
	Err error
}

// Sentinels for errors.Is; they match any *Error of the same Kind.
var (
	ErrVersionQueryFailed = &Error{Kind: KindVersionQuery}
	ErrFileCreateFailed   = &Error{Kind: KindFileCreate}
	ErrDatasetWriteFailed = &Error{Kind: KindDatasetWrite}
	ErrFileCloseWarning   = &Error{Kind: KindFileCloseWarning}
	ErrFileOpenFailed     = &Error{Kind: KindFileOpen}
	ErrDatasetOpenFailed  = &Error{Kind: KindDatasetOpen}
	ErrTypeQueryFailed    = &Error{Kind: KindTypeQuery}
	ErrUnexpectedType     = &Error{Kind: KindUnexpectedType}
	ErrZeroSizeType       = &Error{Kind: KindZeroSizeType}
	ErrAllocationFailed   = &Error{Kind: KindAllocation}
	ErrDatasetReadFailed  = &Error{Kind: KindDatasetRead}
)

var (
	// errNotString describes a dataset whose stored class is not string.
	errNotString = errors.New("stored datatype is not a string")
	// errBadSize describes a stored string size that is not positive.
	errBadSize = errors.New("stored datatype size is not positive")
)

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg = fmt.Sprintf("%s for %q", msg, e.Path)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind && t.Path == "" && t.Err == nil
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}

	return 0
}
