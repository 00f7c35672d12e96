package probe

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/h5probe/internal/domain/libversion"
	"github.com/oshokin/h5probe/internal/storage"
	"github.com/oshokin/h5probe/internal/storage/storagetest"
)

// testVersion is the version reported by the fake library.
var testVersion = libversion.Version{Major: 1, Minor: 14, Release: 3}

// allKinds lists every resource kind the fake and its pool journal.
var allKinds = []string{
	storagetest.KindFile,
	storagetest.KindDataset,
	storagetest.KindDatatype,
	storagetest.KindMemType,
	storagetest.KindBuffer,
}

// newFakeProbe returns a fake library and a probe drawing buffers from its counting pool.
func newFakeProbe(opts ...Option) (*storagetest.Library, *Probe) {
	lib := storagetest.New(testVersion)
	opts = append([]Option{WithBufferPool(lib.Pool())}, opts...)

	return lib, New(lib, opts...)
}

// requireBalanced asserts every acquired resource was released exactly once.
func requireBalanced(t *testing.T, lib *storagetest.Library) {
	t.Helper()

	require.Zero(t, lib.Live())
	require.Zero(t, lib.DoubleCloses())

	for _, kind := range allKinds {
		require.Equal(t, lib.Acquired(kind), lib.Released(kind), kind)
	}
}

// TestProbe_Run_Success checks the round trip and the exact release sequence.
func TestProbe_Run_Success(t *testing.T) {
	t.Parallel()

	lib, p := newFakeProbe()

	res, err := p.Run(context.Background(), "probe.h5")
	require.NoError(t, err)
	require.Equal(t, "1.14.3", res.Value)
	require.Equal(t, "1.14.3", res.Written)
	require.True(t, res.Match())
	require.NoError(t, res.CloseWarning)
	require.Regexp(t, `^\d+\.\d+\.\d+$`, res.Value)

	stored, ok := lib.Stored("probe.h5", DefaultDatasetPath)
	require.True(t, ok)
	require.Equal(t, []byte("1.14.3\x00"), stored)

	requireBalanced(t, lib)
	require.Equal(t, 2, lib.Acquired(storagetest.KindFile))
	require.Equal(t, []string{
		storagetest.KindFile, // close after writing
		storagetest.KindMemType,
		storagetest.KindDatatype,
		storagetest.KindDataset,
		storagetest.KindFile,
		storagetest.KindBuffer,
	}, lib.Journal())
}

// TestProbe_Run_FaultInjection fails each step in turn and checks the error kind and cleanup.
func TestProbe_Run_FaultInjection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		op       storagetest.Op
		sentinel error
		wantPath bool
		notCalls []storagetest.Op
	}{
		{storagetest.OpVersion, ErrVersionQueryFailed, false, []storagetest.Op{storagetest.OpCreate}},
		{storagetest.OpCreate, ErrFileCreateFailed, true, []storagetest.Op{storagetest.OpMakeDatasetString, storagetest.OpOpen}},
		{storagetest.OpMakeDatasetString, ErrDatasetWriteFailed, true, []storagetest.Op{storagetest.OpOpen}},
		{storagetest.OpOpen, ErrFileOpenFailed, true, []storagetest.Op{storagetest.OpOpenDataset}},
		{storagetest.OpOpenDataset, ErrDatasetOpenFailed, true, []storagetest.Op{storagetest.OpDatasetType}},
		{storagetest.OpDatasetType, ErrTypeQueryFailed, true, []storagetest.Op{storagetest.OpBufferGet}},
		{storagetest.OpBufferGet, ErrAllocationFailed, true, []storagetest.Op{storagetest.OpNewStringType}},
		{storagetest.OpNewStringType, ErrDatasetReadFailed, true, []storagetest.Op{storagetest.OpRead}},
		{storagetest.OpRead, ErrDatasetReadFailed, true, nil},
	}

	for _, tc := range cases {
		t.Run(string(tc.op), func(t *testing.T) {
			t.Parallel()

			lib, p := newFakeProbe()
			lib.FailOn(tc.op, nil)

			res, err := p.Run(context.Background(), "probe.h5")
			require.Nil(t, res)
			require.ErrorIs(t, err, tc.sentinel)
			require.ErrorIs(t, err, storagetest.ErrInjected)

			if tc.wantPath {
				require.Contains(t, err.Error(), `"probe.h5"`)
			}

			for _, op := range tc.notCalls {
				require.False(t, lib.Called(op), "unexpected call %s", op)
			}

			requireBalanced(t, lib)
		})
	}
}

// TestProbe_Run_CloseAfterWriteIsAdvisory ensures a failing close does not stop the read-back.
func TestProbe_Run_CloseAfterWriteIsAdvisory(t *testing.T) {
	t.Parallel()

	lib, p := newFakeProbe()
	lib.FailOn(storagetest.OpFileClose, nil)

	res, err := p.Run(context.Background(), "probe.h5")
	require.NoError(t, err)
	require.Equal(t, "1.14.3", res.Value)
	require.ErrorIs(t, res.CloseWarning, ErrFileCloseWarning)
	require.Equal(t, KindFileCloseWarning, KindOf(res.CloseWarning))
	require.True(t, lib.Called(storagetest.OpRead))

	requireBalanced(t, lib)
}

// TestProbe_Run_UnexpectedType checks that a non-string dataset fails before any read.
func TestProbe_Run_UnexpectedType(t *testing.T) {
	t.Parallel()

	lib, p := newFakeProbe()
	lib.StoreAs(storage.ClassInteger, 8)

	_, err := p.Run(context.Background(), "probe.h5")
	require.ErrorIs(t, err, ErrUnexpectedType)
	require.Contains(t, err.Error(), "integer")
	require.False(t, lib.Called(storagetest.OpBufferGet))
	require.False(t, lib.Called(storagetest.OpRead))

	requireBalanced(t, lib)
}

// TestProbe_Run_ZeroSizeType checks the zero-size guard.
func TestProbe_Run_ZeroSizeType(t *testing.T) {
	t.Parallel()

	lib, p := newFakeProbe()
	lib.StoreAs(storage.ClassString, 0)

	_, err := p.Run(context.Background(), "probe.h5")
	require.ErrorIs(t, err, ErrZeroSizeType)
	require.False(t, lib.Called(storagetest.OpRead))

	requireBalanced(t, lib)
}

// TestProbe_Run_TerminatorAtStoredSize ensures the buffer is cut at the stored size
// even when the read primitive leaves junk behind.
func TestProbe_Run_TerminatorAtStoredSize(t *testing.T) {
	t.Parallel()

	lib, p := newFakeProbe()
	lib.RawRead()

	res, err := p.Run(context.Background(), "probe.h5")
	require.NoError(t, err)
	require.Equal(t, "1.14.3", res.Value)

	// A stored size shorter than the stored bytes truncates at that size.
	lib, p = newFakeProbe()
	lib.RawRead().StoreAs(storage.ClassString, 4)

	res, err = p.Run(context.Background(), "probe.h5")
	require.NoError(t, err)
	require.Equal(t, "1.14", res.Value)
	require.False(t, res.Match())
}

// TestProbe_Run_RerunTruncates runs twice on one path with a shorter second version.
func TestProbe_Run_RerunTruncates(t *testing.T) {
	t.Parallel()

	lib, p := newFakeProbe()
	lib.RawRead()
	lib.SetVersion(libversion.Version{Major: 10, Minor: 200, Release: 3000})

	res, err := p.Run(context.Background(), "probe.h5")
	require.NoError(t, err)
	require.Equal(t, "10.200.3000", res.Value)

	lib.SetVersion(libversion.Version{Major: 1, Minor: 2, Release: 3})

	res, err = p.Run(context.Background(), "probe.h5")
	require.NoError(t, err)
	require.Equal(t, "1.2.3", res.Value)

	requireBalanced(t, lib)
}

// TestProbe_Run_DefaultPoolLimit checks the allocation cap of the built-in pool.
func TestProbe_Run_DefaultPoolLimit(t *testing.T) {
	t.Parallel()

	lib := storagetest.New(testVersion)
	p := New(lib, WithMaxStringSize(4))

	_, err := p.Run(context.Background(), "probe.h5")
	require.ErrorIs(t, err, ErrAllocationFailed)
	require.True(t, errors.Is(err, errTooLarge))
	require.Zero(t, lib.Live())

	p = New(lib)

	res, err := p.Run(context.Background(), "probe.h5")
	require.NoError(t, err)
	require.Equal(t, "1.14.3", res.Value)
}

// TestProbe_WithDatasetPath writes to a custom dataset location.
func TestProbe_WithDatasetPath(t *testing.T) {
	t.Parallel()

	lib, p := newFakeProbe(WithDatasetPath("/meta_version"))
	require.Equal(t, "/meta_version", p.DatasetPath())

	path := filepath.Join("dir", "probe.h5")

	_, err := p.Run(context.Background(), path)
	require.NoError(t, err)

	_, ok := lib.Stored(path, "/meta_version")
	require.True(t, ok)

	_, ok = lib.Stored(path, DefaultDatasetPath)
	require.False(t, ok)
}

// TestError_Message checks the message carries step, path and cause.
func TestError_Message(t *testing.T) {
	t.Parallel()

	err := newError(KindFileCreate, "/no/such/dir/x.h5", errors.New("permission denied"))
	require.Equal(t, `file create failed for "/no/such/dir/x.h5": permission denied`, err.Error())
	require.ErrorIs(t, err, ErrFileCreateFailed)
	require.NotErrorIs(t, err, ErrFileOpenFailed)
	require.Equal(t, KindFileCreate, KindOf(err))
	require.Zero(t, KindOf(errors.New("plain")))

	require.Equal(t, "library version query failed", ErrVersionQueryFailed.Error())
}
