package statereader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocatorCandidateOrder(t *testing.T) {
	home := t.TempDir()
	loc, err := NewLocator(home, "/custom")
	require.NoError(t, err)

	primary := filepath.Join(home, "AppData", "LocalLow", "Second Dinner", "SNAP", "Standalone", "States")
	alt := filepath.Join(home, "AppData", "LocalLow", "Nuverse", "Marvel Snap", "Standalone", "States")

	assert.Equal(t, []string{
		"/custom",
		primary,
		alt,
		filepath.Join(primary, "nvprod"),
		filepath.Join(primary, "pvprod"),
		filepath.Join(alt, "nvprod"),
		filepath.Join(alt, "pvprod"),
		filepath.Dir(primary),
	}, loc.Candidates())
}

func TestLocatorFind(t *testing.T) {
	tests := []struct {
		name   string
		subdir []string
	}{
		{name: "primary", subdir: []string{"Second Dinner", "SNAP", "Standalone", "States"}},
		{name: "alternative vendor", subdir: []string{"Nuverse", "Marvel Snap", "Standalone", "States"}},
		{name: "nvprod", subdir: []string{"Second Dinner", "SNAP", "Standalone", "States", "nvprod"}},
		{name: "parent", subdir: []string{"Second Dinner", "SNAP", "Standalone"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := t.TempDir()
			dir := filepath.Join(append([]string{home, "AppData", "LocalLow"}, tt.subdir...)...)
			require.NoError(t, os.MkdirAll(dir, 0o755))
			want := filepath.Join(dir, GameStateFile)
			require.NoError(t, os.WriteFile(want, []byte("{}"), 0o600))

			loc, err := NewLocator(home, "")
			require.NoError(t, err)
			got, err := loc.GameState()
			require.NoError(t, err)
			assert.Equal(t, want, got)

			_, err = loc.Collection()
			assert.True(t, errors.Is(err, ErrStateFileNotFound))
		})
	}
}

func TestLocatorOverrideWins(t *testing.T) {
	home := t.TempDir()
	primary := filepath.Join(home, "AppData", "LocalLow", "Second Dinner", "SNAP", "Standalone", "States")
	override := t.TempDir()
	for _, dir := range []string{primary, override} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, PlayStateFile), []byte("{}"), 0o600))
	}

	loc, err := NewLocator(home, override)
	require.NoError(t, err)
	got, err := loc.PlayState()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(override, PlayStateFile), got)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()

	ok, err := FileExists(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = FileExists(dir)
	require.NoError(t, err)
	assert.False(t, ok, "directories are not state files")
}
