package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/oshokin/h5probe/internal/service/probe"
)

// RoutineName is the single registered entry point.
const RoutineName = "hdf5_version"

// routineArity is the argument count of RoutineName.
const routineArity = 1

var (
	// ErrUnknownRoutine is returned when calling a name that is not registered.
	ErrUnknownRoutine = errors.New("unknown routine")
	// ErrArity is returned when the argument count does not match the routine.
	ErrArity = errors.New("wrong number of arguments")
	// ErrInvalidArgument is returned when an argument cannot be used as a path.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("bridge is already initialized")
	// ErrNotInitialized is returned by Call before Init.
	ErrNotInitialized = errors.New("bridge is not initialized")
	// errNilRunner is returned when building a registry without a runner.
	errNilRunner = errors.New("runner must be provided")
)

// Runner runs one probe.
type Runner interface {
	Run(ctx context.Context, path string) (*probe.Result, error)
}

// Routine is one entry of the registration table.
type Routine struct {
	// Name is the callable name.
	Name string
	// Arity is the exact number of arguments.
	Arity int

	fn func(ctx context.Context, args []string) ([]string, error)
}

// Registry is an immutable routine table.
type Registry struct {
	routines map[string]Routine
}

// NewRegistry builds the table holding RoutineName backed by runner.
func NewRegistry(runner Runner) (*Registry, error) {
	if runner == nil {
		return nil, errNilRunner
	}

	versionRoutine := Routine{
		Name:  RoutineName,
		Arity: routineArity,
		fn: func(ctx context.Context, args []string) ([]string, error) {
			res, err := runner.Run(ctx, args[0])
			if err != nil {
				return nil, err
			}

			return []string{res.Value}, nil
		},
	}

	return &Registry{
		routines: map[string]Routine{
			versionRoutine.Name: versionRoutine,
		},
	}, nil
}

// Routines returns the registered routines sorted by name.
func (r *Registry) Routines() []Routine {
	out := make([]Routine, 0, len(r.routines))
	for _, rt := range r.routines {
		out = append(out, rt)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Call invokes a registered routine. Arguments are validated before the
// routine runs; routine failures are prefixed with the routine name.
func (r *Registry) Call(ctx context.Context, name string, args ...string) ([]string, error) {
	if r == nil {
		return nil, ErrNotInitialized
	}

	rt, ok := r.routines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoutine, name)
	}

	if len(args) != rt.Arity {
		return nil, fmt.Errorf("%s: %w: got %d, want %d", name, ErrArity, len(args), rt.Arity)
	}

	coerced := make([]string, len(args))

	for i, arg := range args {
		s, err := coerceString(arg)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", name, i+1, err)
		}

		coerced[i] = s
	}

	out, err := rt.fn(ctx, coerced)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return out, nil
}

// coerceString checks that arg can cross into the storage library as a
// native path string.
func coerceString(arg string) (string, error) {
	switch {
	case arg == "":
		return "", fmt.Errorf("%w: empty string", ErrInvalidArgument)
	case strings.IndexByte(arg, 0) >= 0:
		return "", fmt.Errorf("%w: contains NUL byte", ErrInvalidArgument)
	case !utf8.ValidString(arg):
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidArgument)
	}

	return arg, nil
}

var (
	// initMu guards defaultRegistry.
	//nolint:gochecknoglobals // Process-wide registration, set once at startup.
	initMu sync.Mutex
	// defaultRegistry is the process-wide table installed by Init.
	//nolint:gochecknoglobals // Process-wide registration, set once at startup.
	defaultRegistry *Registry
)

// Init installs the process-wide registry. It succeeds once per process.
func Init(runner Runner) error {
	reg, err := NewRegistry(runner)
	if err != nil {
		return err
	}

	initMu.Lock()
	defer initMu.Unlock()

	if defaultRegistry != nil {
		return ErrAlreadyInitialized
	}

	defaultRegistry = reg

	return nil
}

// Default returns the registry installed by Init, or nil.
func Default() *Registry {
	initMu.Lock()
	defer initMu.Unlock()

	return defaultRegistry
}

// Call invokes name on the process-wide registry.
func Call(ctx context.Context, name string, args ...string) ([]string, error) {
	return Default().Call(ctx, name, args...)
}
