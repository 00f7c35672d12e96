package probe

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// ErrDuplicatePath is returned when a batch lists one file more than once.
var ErrDuplicatePath = errors.New("path listed more than once")

// CallFunc runs one probe against path and returns the observed string.
type CallFunc func(ctx context.Context, path string) (string, error)

// Outcome is the result of one call in a batch.
type Outcome struct {
	// Path is the probed file as given.
	Path string
	// Value is the observed string on success.
	Value string
	// Err is the failure, if any.
	Err error
}

// RunAll calls fn for every path with at most parallelism calls in flight
// (unlimited when parallelism <= 0). Paths are checked for duplicates before
// anything runs, since one file must never be probed concurrently.
// Outcomes are returned in input order; the error is the join of all failures.
func RunAll(ctx context.Context, paths []string, parallelism int, fn CallFunc) ([]Outcome, error) {
	if err := checkDistinct(paths); err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(paths))

	g, groupCtx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}

	for i, path := range paths {
		g.Go(func() error {
			value, err := fn(groupCtx, path)
			outcomes[i] = Outcome{Path: path, Value: value, Err: err}

			// Failures are collected, not used to cancel the siblings.
			return nil
		})
	}

	_ = g.Wait()

	errs := make([]error, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}

	return outcomes, errors.Join(errs...)
}

// checkDistinct rejects paths that resolve to the same file name.
func checkDistinct(paths []string) error {
	seen := make(map[string]string, len(paths))

	for _, path := range paths {
		key, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", path, err)
		}

		key = filepath.Clean(key)

		if first, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q and %q", ErrDuplicatePath, first, path)
		}

		seen[key] = path
	}

	return nil
}
