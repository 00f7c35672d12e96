package hdf5

import (
	"path/filepath"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/h5probe/internal/domain/libversion"
	"github.com/oshokin/h5probe/internal/storage"
)

// fixedVersion is the version reported by libraries built in these tests.
var fixedVersion = libversion.Version{Major: 0, Minor: 13, Release: 0}

// newTestLibrary returns a Library that does not depend on build info.
func newTestLibrary() *Library {
	return New(WithVersionSource(func() (libversion.Version, error) {
		return fixedVersion, nil
	}))
}

// TestModuleVersion covers dependency lookup, replace handling and devel builds.
func TestModuleVersion(t *testing.T) {
	t.Parallel()

	info := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/oshokin/h5probe", Version: "(devel)"},
		Deps: []*debug.Module{
			{Path: "github.com/stretchr/testify", Version: "v1.11.1"},
			{Path: ModulePath, Version: "v0.13.0"},
		},
	}

	v, err := moduleVersion(info, ModulePath)
	require.NoError(t, err)
	require.Equal(t, "0.13.0", v.String())

	// Replace with a version wins.
	info.Deps[1].Replace = &debug.Module{Path: "example.com/fork/hdf5", Version: "v0.14.2-beta"}

	v, err = moduleVersion(info, ModulePath)
	require.NoError(t, err)
	require.Equal(t, "0.14.2", v.String())

	// Local replace without a version falls back to the required version.
	info.Deps[1].Replace = &debug.Module{Path: "../hdf5"}

	v, err = moduleVersion(info, ModulePath)
	require.NoError(t, err)
	require.Equal(t, "0.13.0", v.String())

	// Not linked.
	_, err = moduleVersion(&debug.BuildInfo{}, ModulePath)
	require.ErrorIs(t, err, errModuleNotLinked)

	// Main module in development.
	_, err = moduleVersion(&debug.BuildInfo{Main: debug.Module{Path: ModulePath, Version: "(devel)"}}, ModulePath)
	require.ErrorIs(t, err, errDevelVersion)
}

// TestParseDatasetInfo checks class and size extraction from dataset metadata.
func TestParseDatasetInfo(t *testing.T) {
	t.Parallel()

	class, size, err := parseDatasetInfo("Dataset: string (size=7 bytes), dims=[1], contiguous")
	require.NoError(t, err)
	require.Equal(t, storage.ClassString, class)
	require.Equal(t, 7, size)

	class, size, err = parseDatasetInfo("Dataset: float (size=8 bytes), dims=[3]")
	require.NoError(t, err)
	require.Equal(t, storage.ClassFloat, class)
	require.Equal(t, 8, size)

	class, _, err = parseDatasetInfo("Dataset: class_9 (size=16 bytes)")
	require.NoError(t, err)
	require.Equal(t, storage.ClassUnknown, class)

	_, _, err = parseDatasetInfo("garbage")
	require.ErrorIs(t, err, errUnparsableInfo)
}

// TestFillString checks each padding mode against a buffer sized like the probe's.
func TestFillString(t *testing.T) {
	t.Parallel()

	buf := []byte("XXXXXXXX")
	fillString(buf[:7], "1.2.3", storage.PadNullTerm)
	require.Equal(t, []byte("1.2.3\x00\x00X"), buf)

	// Null-terminated keeps room for the terminator.
	buf = []byte("XXXX")
	fillString(buf, "1.2.3", storage.PadNullTerm)
	require.Equal(t, []byte("1.2\x00"), buf)

	buf = []byte("XXXXXX")
	fillString(buf, "ab", storage.PadNullPad)
	require.Equal(t, []byte("ab\x00\x00\x00\x00"), buf)

	buf = []byte("XXXX")
	fillString(buf, "ab", storage.PadSpace)
	require.Equal(t, []byte("ab  "), buf)
}

// TestLibrary_WriteThenRead writes a string dataset and reads it back through the typed read.
func TestLibrary_WriteThenRead(t *testing.T) {
	t.Parallel()

	lib := newTestLibrary()
	path := filepath.Join(t.TempDir(), "probe.h5")

	f, err := lib.Create(path)
	require.NoError(t, err)
	require.NoError(t, lib.MakeDatasetString(f, "/version_str", "1.14.3"))
	require.NoError(t, f.Close())

	f, err = lib.Open(path)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, f.Close())
	}()

	ds, err := lib.OpenDataset(f, "/version_str")
	require.NoError(t, err)

	defer func() {
		require.NoError(t, ds.Close())
	}()

	dtype, err := lib.DatasetType(ds)
	require.NoError(t, err)
	require.Equal(t, storage.ClassString, dtype.Class())
	require.Equal(t, len("1.14.3")+1, dtype.Size())
	require.NoError(t, dtype.Close())

	mem, err := lib.NewStringType(dtype.Size()+1, storage.PadNullTerm)
	require.NoError(t, err)

	buf := make([]byte, dtype.Size()+1)
	require.NoError(t, lib.Read(ds, mem, buf))
	require.NoError(t, mem.Close())
	require.Equal(t, "1.14.3\x00\x00", string(buf))
}

// TestLibrary_HandleMisuse covers closed, read-only and missing objects.
func TestLibrary_HandleMisuse(t *testing.T) {
	t.Parallel()

	lib := newTestLibrary()
	path := filepath.Join(t.TempDir(), "probe.h5")

	f, err := lib.Create(path)
	require.NoError(t, err)

	// Datasets cannot be opened through a writer handle.
	_, err = lib.OpenDataset(f, "/version_str")
	require.Error(t, err)

	require.NoError(t, lib.MakeDatasetString(f, "/version_str", "0.13.0"))
	require.NoError(t, f.Close())
	require.ErrorIs(t, f.Close(), storage.ErrClosedHandle)
	require.ErrorIs(t, lib.MakeDatasetString(f, "/other", "x"), storage.ErrClosedHandle)

	f, err = lib.Open(path)
	require.NoError(t, err)

	defer func() {
		_ = f.Close()
	}()

	require.ErrorIs(t, lib.MakeDatasetString(f, "/other", "x"), storage.ErrReadOnly)

	_, err = lib.OpenDataset(f, "/missing")
	require.ErrorIs(t, err, errDatasetNotFound)

	ds, err := lib.OpenDataset(f, "/version_str")
	require.NoError(t, err)

	// Numeric memory types are rejected.
	mem := &datatype{class: storage.ClassInteger, size: 8}
	require.ErrorIs(t, lib.Read(ds, mem, make([]byte, 8)), errMemTypeClass)

	// Buffers shorter than the memory type are rejected.
	mem = &datatype{class: storage.ClassString, size: 8}
	require.ErrorIs(t, lib.Read(ds, mem, make([]byte, 4)), errShortBuffer)

	require.NoError(t, ds.Close())
	require.ErrorIs(t, lib.Read(ds, mem, make([]byte, 8)), storage.ErrClosedHandle)

	_, err = lib.NewStringType(0, storage.PadNullTerm)
	require.ErrorIs(t, err, errInvalidSize)
}

// TestLibrary_CreateMissingDirectory ensures create fails when the parent directory is absent.
func TestLibrary_CreateMissingDirectory(t *testing.T) {
	t.Parallel()

	lib := newTestLibrary()

	_, err := lib.Create(filepath.Join(t.TempDir(), "missing", "probe.h5"))
	require.Error(t, err)
}
