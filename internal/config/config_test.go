package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks defaults and rejected values.
func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := new(Config)
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultDatasetPath, cfg.DatasetPath)
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)
	require.Equal(t, DefaultOutput, cfg.Output)
	require.Equal(t, DefaultParallelism, cfg.Parallelism)
	require.Equal(t, DefaultMaxStringSize, cfg.MaxStringSize)

	// Normalised values.
	cfg = &Config{LogLevel: " DEBUG ", Output: "Table"}
	require.NoError(t, Validate(cfg))
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "table", cfg.Output)

	// Every spelling the logger accepts is valid here too.
	cfg = &Config{LogLevel: "Warning"}
	require.NoError(t, Validate(cfg))
	require.Equal(t, "warn", cfg.LogLevel)

	bad := []*Config{
		{DatasetPath: "version_str"},
		{DatasetPath: "/group/"},
		{LogLevel: "loud"},
		{Output: "xml"},
		{Parallelism: -1},
		{MaxStringSize: -5},
	}
	for _, cfg := range bad {
		require.Error(t, Validate(cfg), "%+v", cfg)
	}

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := &Config{
		DatasetPath: "/meta/version",
		LogLevel:    "warn",
		Output:      "json",
		KeepFile:    true,
		Parallelism: 2,
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoad_Missing distinguishes an explicit missing file from the absent default.
func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestLoad_Invalid rejects malformed YAML and invalid values.
func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.yaml")
	require.NoError(t, os.WriteFile(garbage, []byte("output: [unterminated"), 0o600))

	_, err := Load(garbage)
	require.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("output: xml\n"), 0o600))

	_, err = Load(invalid)
	require.ErrorIs(t, err, errOutput)
}

// TestDefault returns a fully populated configuration.
func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.Equal(t, DefaultDatasetPath, cfg.DatasetPath)
	require.False(t, cfg.KeepFile)
	require.Empty(t, cfg.TempDir)
}
