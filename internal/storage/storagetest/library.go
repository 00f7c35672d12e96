package storagetest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/oshokin/h5probe/internal/domain/libversion"
	"github.com/oshokin/h5probe/internal/storage"
)

// Op names a Library operation that can be made to fail.
type Op string

// Operations that accept injected faults.
const (
	OpVersion           Op = "version"
	OpCreate            Op = "create"
	OpMakeDatasetString Op = "make_dataset_string"
	OpFileClose         Op = "file_close"
	OpOpen              Op = "open"
	OpOpenDataset       Op = "open_dataset"
	OpDatasetType       Op = "dataset_type"
	OpNewStringType     Op = "new_string_type"
	OpRead              Op = "read"
	OpBufferGet         Op = "buffer_get"
)

// Resource kinds recorded in the journal.
const (
	KindFile     = "file"
	KindDataset  = "dataset"
	KindDatatype = "datatype"
	KindMemType  = "memtype"
	KindBuffer   = "buffer"
)

// ErrInjected is the default error returned by injected faults.
var ErrInjected = errors.New("injected fault")

var (
	// errNoSuchFile is returned when opening a path that was never created.
	errNoSuchFile = errors.New("no such file")
	// errNoSuchDataset is returned when opening a dataset that was never written.
	errNoSuchDataset = errors.New("no such dataset")
)

// storedDataset is a dataset as it sits "on disk".
type storedDataset struct {
	// class is the stored datatype class.
	class storage.TypeClass
	// size is the stored element size in bytes.
	size int
	// raw holds the stored bytes, len(raw) == size.
	raw []byte
}

// Library is a fault-injecting in-memory storage.Library.
type Library struct {
	// mu protects every field below.
	mu sync.Mutex
	// version is reported by Version.
	version libversion.Version
	// files maps a path to its datasets.
	files map[string]map[string]*storedDataset
	// faults maps operations to the error they return.
	faults map[Op]error
	// override replaces the stored type of datasets written after it is set.
	override *storedDataset
	// rawRead makes Read copy stored bytes verbatim and fill the rest with junk.
	rawRead bool
	// acquired counts handles handed out per kind.
	acquired map[string]int
	// released counts handles released per kind.
	released map[string]int
	// doubleCloses counts Close calls on already closed handles.
	doubleCloses int
	// journal lists released kinds in release order.
	journal []string
	// calls lists invoked operations in order.
	calls []Op
}

// New creates a fake reporting version v.
func New(v libversion.Version) *Library {
	return &Library{
		version:  v,
		files:    make(map[string]map[string]*storedDataset),
		faults:   make(map[Op]error),
		acquired: make(map[string]int),
		released: make(map[string]int),
	}
}

// FailOn makes op return err (ErrInjected when err is nil).
func (l *Library) FailOn(op Op, err error) *Library {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err == nil {
		err = ErrInjected
	}

	l.faults[op] = err

	return l
}

// SetVersion changes the reported version.
func (l *Library) SetVersion(v libversion.Version) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.version = v
}

// StoreAs makes subsequent writes record the given class and size instead of
// a string of len(value)+1 bytes.
func (l *Library) StoreAs(class storage.TypeClass, size int) *Library {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.override = &storedDataset{class: class, size: size}

	return l
}

// RawRead makes Read ignore the memory type padding: stored bytes are copied
// verbatim and the rest of the buffer is filled with 'Z'.
func (l *Library) RawRead() *Library {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rawRead = true

	return l
}

// Live returns the number of handles that are acquired but not released.
func (l *Library) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	live := 0
	for kind, n := range l.acquired {
		live += n - l.released[kind]
	}

	return live
}

// Acquired returns how many handles of kind were handed out.
func (l *Library) Acquired(kind string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.acquired[kind]
}

// Released returns how many handles of kind were released.
func (l *Library) Released(kind string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.released[kind]
}

// DoubleCloses returns how many times a closed handle was closed again.
func (l *Library) DoubleCloses() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.doubleCloses
}

// Journal returns the release order.
func (l *Library) Journal() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.journal...)
}

// Calls returns the invoked operations in order.
func (l *Library) Calls() []Op {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]Op(nil), l.calls...)
}

// Called reports whether op was invoked.
func (l *Library) Called(op Op) bool {
	for _, c := range l.Calls() {
		if c == op {
			return true
		}
	}

	return false
}

// Stored returns the raw bytes of a written dataset.
func (l *Library) Stored(path, name string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ds, ok := l.files[path][name]
	if !ok {
		return nil, false
	}

	return append([]byte(nil), ds.raw...), true
}

// enter records a call and returns its injected fault. Callers hold l.mu.
func (l *Library) enter(op Op) error {
	l.calls = append(l.calls, op)

	return l.faults[op]
}

// acquire counts a new handle of kind. Callers hold l.mu.
func (l *Library) acquire(kind string) {
	l.acquired[kind]++
}

// release counts a released handle of kind.
func (l *Library) release(kind string, closed *bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if *closed {
		l.doubleCloses++

		return storage.ErrClosedHandle
	}

	*closed = true
	l.released[kind]++
	l.journal = append(l.journal, kind)

	return nil
}

// Version implements storage.Library.
func (l *Library) Version() (libversion.Version, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enter(OpVersion); err != nil {
		return libversion.Version{}, err
	}

	return l.version, nil
}

// Create implements storage.Library. Existing datasets at path are dropped.
//
//nolint:ireturn // storage.Library returns handle interfaces.
func (l *Library) Create(path string) (storage.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enter(OpCreate); err != nil {
		return nil, err
	}

	l.files[path] = make(map[string]*storedDataset)
	l.acquire(KindFile)

	return &file{lib: l, path: path, writable: true}, nil
}

// Open implements storage.Library.
//
//nolint:ireturn // storage.Library returns handle interfaces.
func (l *Library) Open(path string) (storage.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enter(OpOpen); err != nil {
		return nil, err
	}

	if _, ok := l.files[path]; !ok {
		return nil, fmt.Errorf("%w: %q", errNoSuchFile, path)
	}

	l.acquire(KindFile)

	return &file{lib: l, path: path}, nil
}

// MakeDatasetString implements storage.Library.
func (l *Library) MakeDatasetString(f storage.File, name, value string) error {
	fh, err := asFile(f)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err = l.enter(OpMakeDatasetString); err != nil {
		return err
	}

	if !fh.writable {
		return storage.ErrReadOnly
	}

	ds := &storedDataset{
		class: storage.ClassString,
		size:  len(value) + 1,
		raw:   append([]byte(value), 0),
	}

	if l.override != nil {
		ds.class = l.override.class
		ds.size = l.override.size
	}

	l.files[fh.path][name] = ds

	return nil
}

// OpenDataset implements storage.Library.
//
//nolint:ireturn // storage.Library returns handle interfaces.
func (l *Library) OpenDataset(f storage.File, name string) (storage.Dataset, error) {
	fh, err := asFile(f)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err = l.enter(OpOpenDataset); err != nil {
		return nil, err
	}

	ds, ok := l.files[fh.path][name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errNoSuchDataset, name)
	}

	l.acquire(KindDataset)

	return &dataset{lib: l, name: name, stored: ds}, nil
}

// DatasetType implements storage.Library.
//
//nolint:ireturn // storage.Library returns handle interfaces.
func (l *Library) DatasetType(d storage.Dataset) (storage.Datatype, error) {
	dh, err := asDataset(d)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err = l.enter(OpDatasetType); err != nil {
		return nil, err
	}

	l.acquire(KindDatatype)

	return &datatype{
		lib:   l,
		kind:  KindDatatype,
		class: dh.stored.class,
		size:  dh.stored.size,
		pad:   storage.PadNullTerm,
	}, nil
}

// NewStringType implements storage.Library.
//
//nolint:ireturn // storage.Library returns handle interfaces.
func (l *Library) NewStringType(size int, pad storage.StringPad) (storage.Datatype, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enter(OpNewStringType); err != nil {
		return nil, err
	}

	l.acquire(KindMemType)

	return &datatype{
		lib:   l,
		kind:  KindMemType,
		class: storage.ClassString,
		size:  size,
		pad:   pad,
	}, nil
}

// Read implements storage.Library.
func (l *Library) Read(d storage.Dataset, mem storage.Datatype, buf []byte) error {
	dh, err := asDataset(d)
	if err != nil {
		return err
	}

	mt, ok := mem.(*datatype)
	if !ok || mt.closed {
		return storage.ErrClosedHandle
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err = l.enter(OpRead); err != nil {
		return err
	}

	if mt.size < 1 || len(buf) < mt.size {
		return fmt.Errorf("buffer of %d bytes does not fit memory type of %d", len(buf), mt.size)
	}

	raw := dh.stored.raw

	if l.rawRead {
		n := copy(buf, raw)
		for i := n; i < len(buf); i++ {
			buf[i] = 'Z'
		}

		return nil
	}

	// Stored strings carry their terminator; keep at most size-1 bytes.
	if i := indexNul(raw); i >= 0 {
		raw = raw[:i]
	}

	n := copy(buf[:mt.size-1], raw)
	for i := n; i < mt.size; i++ {
		buf[i] = 0
	}

	return nil
}

func indexNul(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}

	return -1
}
