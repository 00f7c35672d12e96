package version

import "fmt"

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Component is a linked dependency whose version is reported next to ours.
type Component struct {
	// Name is the display name.
	Name string
	// Version reports the component version.
	Version func() (string, error)
}

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("h5probe version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}

// Describe renders one line for c; failures are shown instead of a version.
func (c Component) Describe() string {
	v, err := c.Version()
	if err != nil {
		return fmt.Sprintf("%s: unavailable (%v)", c.Name, err)
	}

	return fmt.Sprintf("%s: %s", c.Name, v)
}
