package probe

import (
	"bytes"
	"context"
	"fmt"

	"github.com/oshokin/h5probe/internal/logger"
	"github.com/oshokin/h5probe/internal/storage"
)

// DefaultDatasetPath is where the version string is stored.
const DefaultDatasetPath = "/version_str"

// Result is a successful probe run.
type Result struct {
	// Path is the probed file.
	Path string
	// Written is the version string that was written.
	Written string
	// Value is the string read back.
	Value string
	// CloseWarning is the advisory error from closing the file after writing.
	CloseWarning error
}

// Match reports whether the read-back value equals what was written.
func (r *Result) Match() bool {
	return r.Written == r.Value
}

// Probe runs the version round trip against a storage library.
type Probe struct {
	// lib is the storage library under test.
	lib storage.Library
	// datasetPath is the absolute dataset path inside the file.
	datasetPath string
	// maxStringSize is the limit for the default buffer pool.
	maxStringSize int
	// pool supplies read buffers.
	pool BufferPool
}

// Option configures a Probe.
type Option func(*Probe)

// WithDatasetPath overrides DefaultDatasetPath.
func WithDatasetPath(path string) Option {
	return func(p *Probe) {
		if path != "" {
			p.datasetPath = path
		}
	}
}

// WithMaxStringSize caps stored strings the probe will read.
func WithMaxStringSize(n int) Option {
	return func(p *Probe) {
		if n > 0 {
			p.maxStringSize = n
		}
	}
}

// WithBufferPool replaces the default size-classed pool.
func WithBufferPool(pool BufferPool) Option {
	return func(p *Probe) {
		if pool != nil {
			p.pool = pool
		}
	}
}

// New creates a Probe for lib.
func New(lib storage.Library, opts ...Option) *Probe {
	p := &Probe{
		lib:           lib,
		datasetPath:   DefaultDatasetPath,
		maxStringSize: DefaultMaxStringSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.pool == nil {
		// Room for the terminator on top of the largest string.
		p.pool = newSizeClassPool(p.maxStringSize + 1)
	}

	return p
}

// DatasetPath returns the dataset path the probe writes and reads.
func (p *Probe) DatasetPath() string {
	return p.datasetPath
}

// Expected returns the formatted library version the probe would write.
func (p *Probe) Expected() (string, error) {
	v, err := p.lib.Version()
	if err != nil {
		return "", newError(KindVersionQuery, "", err)
	}

	s, err := v.Format()
	if err != nil {
		return "", newError(KindVersionQuery, "", err)
	}

	return s, nil
}

// Run creates (or truncates) path, round-trips the library version through
// it and returns what was read back. The file is left in place.
func (p *Probe) Run(ctx context.Context, path string) (*Result, error) {
	ctx = logger.WithKV(logger.WithName(ctx, "probe"), "path", path)

	written, err := p.Expected()
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Library version queried", "version", written)

	closeWarning, err := p.write(ctx, path, written)
	if err != nil {
		return nil, err
	}

	if closeWarning != nil {
		logger.WarnKV(ctx, "Close after write failed, reading back anyway", "error", closeWarning)
	}

	value, err := p.read(ctx, path)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Version read back", "value", value, "match", value == written)

	return &Result{
		Path:         path,
		Written:      written,
		Value:        value,
		CloseWarning: closeWarning,
	}, nil
}

// write creates the file and stores value through the high-level call.
// A failing close is returned as closeWarning, not as err.
func (p *Probe) write(ctx context.Context, path, value string) (closeWarning, err error) {
	f, err := p.lib.Create(path)
	if err != nil {
		return nil, newError(KindFileCreate, path, err)
	}

	if err = p.lib.MakeDatasetString(f, p.datasetPath, value); err != nil {
		p.release(ctx, "file", f)

		return nil, newError(KindDatasetWrite, path, fmt.Errorf("dataset %q: %w", p.datasetPath, err))
	}

	if err = f.Close(); err != nil {
		return newError(KindFileCloseWarning, path, err), nil
	}

	return nil, nil
}

// read reopens path read-only and reads the dataset through an explicit
// memory datatype. Deferred releases run datatype, dataset, file, buffer.
func (p *Probe) read(ctx context.Context, path string) (string, error) {
	var buf []byte

	defer func() {
		if buf != nil {
			p.pool.Put(buf)
		}
	}()

	f, err := p.lib.Open(path)
	if err != nil {
		return "", newError(KindFileOpen, path, err)
	}
	defer p.release(ctx, "file", f)

	ds, err := p.lib.OpenDataset(f, p.datasetPath)
	if err != nil {
		return "", newError(KindDatasetOpen, path, fmt.Errorf("dataset %q: %w", p.datasetPath, err))
	}
	defer p.release(ctx, "dataset", ds)

	dtype, err := p.lib.DatasetType(ds)
	if err != nil {
		return "", newError(KindTypeQuery, path, err)
	}
	defer p.release(ctx, "datatype", dtype)

	if dtype.Class() != storage.ClassString {
		return "", newError(KindUnexpectedType, path, fmt.Errorf("%w: got %s", errNotString, dtype.Class()))
	}

	size := dtype.Size()
	if size <= 0 {
		return "", newError(KindZeroSizeType, path, fmt.Errorf("%w: %d", errBadSize, size))
	}

	buf, err = p.pool.Get(size + 1)
	if err != nil {
		return "", newError(KindAllocation, path, err)
	}

	if err = p.readString(ctx, ds, size, buf); err != nil {
		return "", newError(KindDatasetRead, path, err)
	}

	// Terminate at the stored size whatever the read produced.
	buf[size] = 0

	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i]), nil
	}

	return string(buf), nil
}

// readString reads the dataset into buf with a transient null-terminated
// memory type of size+1 bytes, released before returning.
func (p *Probe) readString(ctx context.Context, ds storage.Dataset, size int, buf []byte) error {
	mem, err := p.lib.NewStringType(size+1, storage.PadNullTerm)
	if err != nil {
		return fmt.Errorf("create memory datatype: %w", err)
	}

	err = p.lib.Read(ds, mem, buf)
	p.release(ctx, "memory datatype", mem)

	return err
}

// closer is any releasable handle.
type closer interface {
	Close() error
}

// release closes c and logs a failure; cleanup errors never replace the
// error that caused the exit.
func (p *Probe) release(ctx context.Context, what string, c closer) {
	if err := c.Close(); err != nil {
		logger.DebugKV(ctx, "Release failed", "handle", what, "error", err)
	}
}
