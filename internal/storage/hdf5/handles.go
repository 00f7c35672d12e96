package hdf5

import (
	"fmt"

	h5 "github.com/scigolib/hdf5"

	"github.com/oshokin/h5probe/internal/storage"
)

// file is a storage.File backed by either a writer or a reader.
type file struct {
	// path is the filesystem path the handle was opened with.
	path string
	// writer is set for files opened through Create.
	writer *h5.FileWriter
	// reader is set for files opened through Open.
	reader *h5.File
	// closed marks the handle as released.
	closed bool
}

// Close flushes and closes the underlying file.
func (f *file) Close() error {
	if f.closed {
		return storage.ErrClosedHandle
	}

	f.closed = true

	if f.writer != nil {
		if err := f.writer.Close(); err != nil {
			return fmt.Errorf("close %q: %w", f.path, err)
		}

		return nil
	}

	if err := f.reader.Close(); err != nil {
		return fmt.Errorf("close %q: %w", f.path, err)
	}

	return nil
}

// dataset is a storage.Dataset wrapping a located dataset object.
type dataset struct {
	// name is the absolute object path inside the file.
	name string
	// ds is the library dataset object.
	ds *h5.Dataset
	// closed marks the handle as released.
	closed bool
}

// Close releases the handle. The library keeps no per-dataset state.
func (d *dataset) Close() error {
	if d.closed {
		return storage.ErrClosedHandle
	}

	d.closed = true

	return nil
}

// datatype is a storage.Datatype description.
type datatype struct {
	class  storage.TypeClass
	size   int
	pad    storage.StringPad
	closed bool
}

func (t *datatype) Class() storage.TypeClass { return t.class }

func (t *datatype) Size() int { return t.size }

func (t *datatype) Pad() storage.StringPad { return t.pad }

// Close releases the handle.
func (t *datatype) Close() error {
	if t.closed {
		return storage.ErrClosedHandle
	}

	t.closed = true

	return nil
}

func asFile(f storage.File) (*file, error) {
	fh, ok := f.(*file)
	if !ok || fh == nil {
		return nil, storage.ErrForeignHandle
	}

	if fh.closed {
		return nil, storage.ErrClosedHandle
	}

	return fh, nil
}

func asDataset(d storage.Dataset) (*dataset, error) {
	dh, ok := d.(*dataset)
	if !ok || dh == nil {
		return nil, storage.ErrForeignHandle
	}

	if dh.closed {
		return nil, storage.ErrClosedHandle
	}

	return dh, nil
}

func asDatatype(t storage.Datatype) (*datatype, error) {
	th, ok := t.(*datatype)
	if !ok || th == nil {
		return nil, storage.ErrForeignHandle
	}

	if th.closed {
		return nil, storage.ErrClosedHandle
	}

	return th, nil
}
