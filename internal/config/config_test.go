package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchctl-dev/patchctl/internal/cmderr"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open()
	require.NoError(t, err)
	return store
}

func TestDefaults(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	store := openStore(t)

	refpath, err := store.Get(KeyMaxRefpath)
	require.NoError(t, err)
	assert.Equal(t, "/Applications/Max.app/"+refpathSuffix, refpath)

	maxPath, err := store.Get(KeyMaxPath)
	require.NoError(t, err)
	assert.Equal(t, "/Applications/Max.app/", maxPath)

	assert.Equal(t, 30.0, store.WaitTime())
	assert.Equal(t, "", store.PackagesPath())
}

func TestSetMaxPathDerivesRefpath(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	store := openStore(t)

	_, err := store.Set(KeyMaxPath, "/opt/Max 9.app/")
	require.NoError(t, err)

	refpath, err := store.Get(KeyMaxRefpath)
	require.NoError(t, err)
	assert.Equal(t, "/opt/Max 9.app/"+refpathSuffix, refpath)

	maxPath, err := store.Get(KeyMaxPath)
	require.NoError(t, err)
	assert.Equal(t, "/opt/Max 9.app/", maxPath)
}

func TestSetPersistsAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)

	store := openStore(t)
	_, err := store.Set(KeyPackagesPath, "/Users/me/Max 9/Packages")
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, statErr)

	reopened := openStore(t)
	assert.Equal(t, "/Users/me/Max 9/Packages", reopened.PackagesPath())
}

func TestSetWaitTime(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	store := openStore(t)

	value, err := store.Set(KeyWaitTime, "12.5")
	require.NoError(t, err)
	assert.Equal(t, 12.5, value)

	_, err = store.Set(KeyWaitTime, "soon")
	require.Error(t, err)
	var cmdErr *cmderr.Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, cmderr.KindUsage, cmdErr.Kind)
	assert.Equal(t, "wait_time must be numeric", cmdErr.Message)
}

func TestUnknownKey(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	store := openStore(t)

	_, err := store.Get("theme")
	var cmdErr *cmderr.Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, cmderr.KindUsage, cmdErr.Kind)

	_, err = store.Set("theme", "dark")
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "unsupported config key: theme", cmdErr.Message)
}

func TestWaitTimeStrict(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)

	// Hand-edited config with a non-numeric wait_time.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"wait_time": "whenever"}`), 0644))

	store := openStore(t)
	_, err := store.WaitTimeStrict()
	var cmdErr *cmderr.Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, cmderr.KindValidation, cmdErr.Kind)
	assert.Contains(t, cmdErr.Message, "invalid validation timeout value")

	// Numeric strings are tolerated.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"wait_time": "15"}`), 0644))
	store = openStore(t)
	seconds, err := store.WaitTimeStrict()
	require.NoError(t, err)
	assert.Equal(t, 15.0, seconds)
}

func TestKeysOrder(t *testing.T) {
	assert.Equal(t, []string{"max_path", "max_refpath", "packages_path", "wait_time"}, Keys())
}
