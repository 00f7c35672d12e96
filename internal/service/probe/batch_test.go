package probe

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRunAll_RejectsDuplicates ensures no call runs when a path repeats.
func TestRunAll_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	fn := func(context.Context, string) (string, error) {
		calls.Add(1)

		return "1.2.3", nil
	}

	_, err := RunAll(context.Background(), []string{"a.h5", "b.h5", "./a.h5"}, 0, fn)
	require.ErrorIs(t, err, ErrDuplicatePath)
	require.Zero(t, calls.Load())
}

// TestRunAll_OrderAndErrors checks input order and joined failures.
func TestRunAll_OrderAndErrors(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")

	fn := func(_ context.Context, path string) (string, error) {
		if path == "bad.h5" {
			return "", errBoom
		}

		return "v:" + path, nil
	}

	outcomes, err := RunAll(context.Background(), []string{"a.h5", "bad.h5", "c.h5"}, 2, fn)
	require.ErrorIs(t, err, errBoom)
	require.Len(t, outcomes, 3)
	require.Equal(t, "v:a.h5", outcomes[0].Value)
	require.Equal(t, "bad.h5", outcomes[1].Path)
	require.ErrorIs(t, outcomes[1].Err, errBoom)
	require.Equal(t, "v:c.h5", outcomes[2].Value)
	require.NoError(t, outcomes[2].Err)
}

// TestRunAll_Parallelism verifies the in-flight limit.
func TestRunAll_Parallelism(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32

	fn := func(context.Context, string) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}

		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)

		return "ok", nil
	}

	paths := []string{"1.h5", "2.h5", "3.h5", "4.h5", "5.h5", "6.h5"}

	outcomes, err := RunAll(context.Background(), paths, 2, fn)
	require.NoError(t, err)
	require.Len(t, outcomes, len(paths))
	require.LessOrEqual(t, peak.Load(), int32(2))
}
