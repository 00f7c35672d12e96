package storagetest

import (
	"github.com/oshokin/h5probe/internal/storage"
)

// file is a fake file handle.
type file struct {
	lib      *Library
	path     string
	writable bool
	closed   bool
}

// Close releases the handle; OpFileClose faults are returned after release.
func (f *file) Close() error {
	if err := f.lib.release(KindFile, &f.closed); err != nil {
		return err
	}

	f.lib.mu.Lock()
	defer f.lib.mu.Unlock()

	return f.lib.enter(OpFileClose)
}

// dataset is a fake dataset handle.
type dataset struct {
	lib    *Library
	name   string
	stored *storedDataset
	closed bool
}

func (d *dataset) Close() error {
	return d.lib.release(KindDataset, &d.closed)
}

// datatype is a fake datatype handle.
type datatype struct {
	lib    *Library
	kind   string
	class  storage.TypeClass
	size   int
	pad    storage.StringPad
	closed bool
}

func (t *datatype) Class() storage.TypeClass { return t.class }

func (t *datatype) Size() int { return t.size }

func (t *datatype) Pad() storage.StringPad { return t.pad }

func (t *datatype) Close() error {
	return t.lib.release(t.kind, &t.closed)
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
