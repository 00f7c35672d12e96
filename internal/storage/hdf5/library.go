package hdf5

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"runtime/debug"
	"strconv"

	h5 "github.com/scigolib/hdf5"

	"github.com/oshokin/h5probe/internal/domain/libversion"
	"github.com/oshokin/h5probe/internal/storage"
)

// ModulePath is the import path of the wrapped HDF5 module.
const ModulePath = "github.com/scigolib/hdf5"

var (
	// errNoBuildInfo is returned when the binary carries no module build info.
	errNoBuildInfo = errors.New("build info is not available")
	// errModuleNotLinked is returned when the HDF5 module is absent from build info.
	errModuleNotLinked = errors.New("hdf5 module is not linked into this binary")
	// errDevelVersion is returned when the HDF5 module has no released version.
	errDevelVersion = errors.New("hdf5 module has no release version")
	// errDatasetNotFound is returned when no dataset exists at the requested path.
	errDatasetNotFound = errors.New("dataset not found")
	// errUnparsableInfo is returned when dataset metadata has an unexpected shape.
	errUnparsableInfo = errors.New("unparsable dataset info")
	// errMemTypeClass is returned when a read is requested with a non-string memory type.
	errMemTypeClass = errors.New("memory datatype must be a string type")
	// errShortBuffer is returned when the read buffer is smaller than the memory type.
	errShortBuffer = errors.New("read buffer is smaller than memory datatype")
	// errEmptyDataset is returned when the dataset holds no elements.
	errEmptyDataset = errors.New("dataset holds no elements")
	// errInvalidSize is returned for non-positive or oversized datatype sizes.
	errInvalidSize = errors.New("invalid datatype size")
)

// datasetInfoPattern matches the datatype part of (*hdf5.Dataset).Info output,
// e.g. "Dataset: string (size=6 bytes), ...".
var datasetInfoPattern = regexp.MustCompile(`^Dataset: ([a-z0-9_]+) \(size=(\d+) bytes\)`)

// Library is the scigolib/hdf5 backed storage.Library.
// A Library holds no open resources itself and may be shared.
type Library struct {
	// versionSource overrides the build-info version lookup when set.
	versionSource func() (libversion.Version, error)
}

// Option configures a Library.
type Option func(*Library)

// WithVersionSource replaces the build-info version lookup.
func WithVersionSource(fn func() (libversion.Version, error)) Option {
	return func(l *Library) {
		if fn != nil {
			l.versionSource = fn
		}
	}
}

// New creates a Library.
func New(opts ...Option) *Library {
	l := new(Library)
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Version reports the version of the linked HDF5 module.
func (l *Library) Version() (libversion.Version, error) {
	if l.versionSource != nil {
		return l.versionSource()
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return libversion.Version{}, errNoBuildInfo
	}

	return moduleVersion(info, ModulePath)
}

// moduleVersion finds modulePath in info and parses its version,
// following a replace directive when it carries a version.
func moduleVersion(info *debug.BuildInfo, modulePath string) (libversion.Version, error) {
	module := findModule(info, modulePath)
	if module == nil {
		return libversion.Version{}, errModuleNotLinked
	}

	if module.Replace != nil && module.Replace.Version != "" {
		module = module.Replace
	}

	if module.Version == "" || module.Version == "(devel)" {
		return libversion.Version{}, errDevelVersion
	}

	v, err := libversion.Parse(module.Version)
	if err != nil {
		return libversion.Version{}, fmt.Errorf("parse %s version: %w", modulePath, err)
	}

	return v, nil
}

// findModule returns the main module or dependency with the given path.
func findModule(info *debug.BuildInfo, modulePath string) *debug.Module {
	if info.Main.Path == modulePath {
		return &info.Main
	}

	for _, dep := range info.Deps {
		if dep != nil && dep.Path == modulePath {
			return dep
		}
	}

	return nil
}

// Create creates path, truncating an existing file, and keeps it open for writing.
//
//nolint:ireturn // storage.Library returns handle interfaces.
func (l *Library) Create(path string) (storage.File, error) {
	fw, err := h5.CreateForWrite(path, h5.CreateTruncate)
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", path, err)
	}

	return &file{path: path, writer: fw}, nil
}

// Open opens path read-only.
//
//nolint:ireturn // storage.Library returns handle interfaces.
func (l *Library) Open(path string) (storage.File, error) {
	f, err := h5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}

	return &file{path: path, reader: f}, nil
}

// MakeDatasetString writes value as a one-element null-terminated
// fixed-length string dataset sized len(value)+1.
func (l *Library) MakeDatasetString(f storage.File, name, value string) error {
	fh, err := asFile(f)
	if err != nil {
		return err
	}

	if fh.writer == nil {
		return storage.ErrReadOnly
	}

	size := len(value) + 1
	if uint64(size) > math.MaxUint32 {
		return fmt.Errorf("%w: %d", errInvalidSize, size)
	}

	dw, err := fh.writer.CreateDataset(name, h5.String, []uint64{1}, h5.WithStringSize(uint32(size)))
	if err != nil {
		return fmt.Errorf("create dataset %q: %w", name, err)
	}

	if err = dw.Write([]string{value}); err != nil {
		_ = dw.Close()

		return fmt.Errorf("write dataset %q: %w", name, err)
	}

	if err = dw.Close(); err != nil {
		return fmt.Errorf("close dataset writer %q: %w", name, err)
	}

	return nil
}

// OpenDataset finds the dataset at absolute path name.
//
//nolint:ireturn // storage.Library returns handle interfaces.
func (l *Library) OpenDataset(f storage.File, name string) (storage.Dataset, error) {
	fh, err := asFile(f)
	if err != nil {
		return nil, err
	}

	if fh.reader == nil {
		return nil, fmt.Errorf("open dataset %q: file %q is opened for writing", name, fh.path)
	}

	var found *h5.Dataset

	fh.reader.Walk(func(path string, obj h5.Object) {
		if found != nil || path != name {
			return
		}

		if ds, ok := obj.(*h5.Dataset); ok {
			found = ds
		}
	})

	if found == nil {
		return nil, fmt.Errorf("%w: %q", errDatasetNotFound, name)
	}

	return &dataset{name: name, ds: found}, nil
}

// DatasetType reads the stored datatype of a dataset. String types written
// by this module are null-terminated, so the returned pad is PadNullTerm.
//
//nolint:ireturn // storage.Library returns handle interfaces.
func (l *Library) DatasetType(d storage.Dataset) (storage.Datatype, error) {
	dh, err := asDataset(d)
	if err != nil {
		return nil, err
	}

	info, err := dh.ds.Info()
	if err != nil {
		return nil, fmt.Errorf("read dataset %q info: %w", dh.name, err)
	}

	class, size, err := parseDatasetInfo(info)
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", dh.name, err)
	}

	return &datatype{class: class, size: size, pad: storage.PadNullTerm}, nil
}

// parseDatasetInfo extracts the datatype class and element size.
func parseDatasetInfo(info string) (storage.TypeClass, int, error) {
	m := datasetInfoPattern.FindStringSubmatch(info)
	if m == nil {
		return storage.ClassUnknown, 0, fmt.Errorf("%w: %q", errUnparsableInfo, info)
	}

	size, err := strconv.Atoi(m[2])
	if err != nil {
		return storage.ClassUnknown, 0, fmt.Errorf("%w: %q: %w", errUnparsableInfo, info, err)
	}

	return classFromName(m[1]), size, nil
}

// classFromName maps the library's class names onto storage classes.
func classFromName(name string) storage.TypeClass {
	switch name {
	case "integer":
		return storage.ClassInteger
	case "float":
		return storage.ClassFloat
	case "string":
		return storage.ClassString
	case "compound":
		return storage.ClassCompound
	case "array":
		return storage.ClassArray
	case "opaque":
		return storage.ClassOpaque
	default:
		return storage.ClassUnknown
	}
}

// NewStringType creates a memory-side string datatype.
//
//nolint:ireturn // storage.Library returns handle interfaces.
func (l *Library) NewStringType(size int, pad storage.StringPad) (storage.Datatype, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", errInvalidSize, size)
	}

	return &datatype{class: storage.ClassString, size: size, pad: pad}, nil
}

// Read reads the first string element of the dataset into buf using the
// layout described by mem.
func (l *Library) Read(d storage.Dataset, mem storage.Datatype, buf []byte) error {
	dh, err := asDataset(d)
	if err != nil {
		return err
	}

	mt, err := asDatatype(mem)
	if err != nil {
		return err
	}

	if mt.class != storage.ClassString {
		return fmt.Errorf("%w: got %s", errMemTypeClass, mt.class)
	}

	if len(buf) < mt.size {
		return fmt.Errorf("%w: %d < %d", errShortBuffer, len(buf), mt.size)
	}

	values, err := dh.ds.ReadStrings()
	if err != nil {
		return fmt.Errorf("read dataset %q: %w", dh.name, err)
	}

	if len(values) == 0 {
		return fmt.Errorf("read dataset %q: %w", dh.name, errEmptyDataset)
	}

	fillString(buf[:mt.size], values[0], mt.pad)

	return nil
}

// fillString copies s into dst and pads the tail according to pad.
// With PadNullTerm at most len(dst)-1 bytes of s are kept.
func fillString(dst []byte, s string, pad storage.StringPad) {
	n := len(dst)
	if pad == storage.PadNullTerm {
		n--
	}

	n = min(n, len(s))
	copy(dst, s[:n])

	var fill byte
	if pad == storage.PadSpace {
		fill = ' '
	}

	for i := n; i < len(dst); i++ {
		dst[i] = fill
	}
}
