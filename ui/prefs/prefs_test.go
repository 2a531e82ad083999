package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", prefsFile)

	p := LoadFrom(path)
	assert.Equal(t, "", p.String(KeyLastDir))
	assert.True(t, p.Bool(KeyPointMode, true))

	p.SetString(KeyLastDir, "/data/photos")
	p.SetBool(KeyPointMode, false)
	require.NoError(t, p.SaveIfChanged())

	again := LoadFrom(path)
	assert.Equal(t, "/data/photos", again.String(KeyLastDir))
	assert.False(t, again.Bool(KeyPointMode, true))
}

func TestSaveIfChangedSkipsUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefsFile)
	p := LoadFrom(path)

	require.NoError(t, p.SaveIfChanged())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	p.SetString(KeyDisplayMode, "number")
	require.NoError(t, p.SaveIfChanged())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestCorruptFileGivesEmptyPrefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefsFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	p := LoadFrom(path)
	assert.Equal(t, "", p.String(KeyLastDir))
	assert.Equal(t, path, p.Path())
}
