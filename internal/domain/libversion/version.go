package libversion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxFormattedLen is the size of the buffer a formatted version must fit into.
const MaxFormattedLen = 64

var (
	// ErrEmpty is returned when an empty string is parsed.
	ErrEmpty = errors.New("empty version string")
	// ErrMalformed is returned when a string is not a major.minor.release triple.
	ErrMalformed = errors.New("malformed version string")
)

// Version is a library version triple.
type Version struct {
	// Major is the major version number.
	Major uint32
	// Minor is the minor version number.
	Minor uint32
	// Release is the release (patch) number.
	Release uint32
}

// String formats the version as dot-separated decimals without padding.
func (v Version) String() string {
	return strconv.FormatUint(uint64(v.Major), 10) + "." +
		strconv.FormatUint(uint64(v.Minor), 10) + "." +
		strconv.FormatUint(uint64(v.Release), 10)
}

// Format returns the formatted version and fails if it would not fit into
// a MaxFormattedLen buffer including its terminator.
func (v Version) Format() (string, error) {
	s := v.String()
	if len(s) >= MaxFormattedLen {
		return "", fmt.Errorf("version %q exceeds %d bytes", s, MaxFormattedLen)
	}

	return s, nil
}

// Parse reads a version from strings like "1.14.3" or "v0.13.0-beta+meta".
// A leading "v" and any pre-release or build suffix are dropped.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, ErrEmpty
	}

	s = strings.TrimPrefix(s, "v")

	// Cut build metadata first, then the pre-release part.
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}

	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}

	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	var nums [3]uint32

	for i, part := range parts {
		if part == "" || (len(part) > 1 && part[0] == '0') {
			return Version{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}

		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: %w", ErrMalformed, s, err)
		}

		nums[i] = uint32(n)
	}

	return Version{
		Major:   nums[0],
		Minor:   nums[1],
		Release: nums[2],
	}, nil
}
