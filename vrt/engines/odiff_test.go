package engines

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.vrtcore.dev/internal/testutils"
)

func TestOdiffLocatorEnvOverride(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	fake := filepath.Join(dir, "odiff")
	require.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	t.Setenv("VRT_ODIFF_BINARY", fake)

	loc := &odiffLocator{}
	path, err := loc.Resolve()
	require.NoError(t, err)
	assert.Equal(t, fake, path)
}

func TestOdiffLocatorNotFound(t *testing.T) {
	testutils.MediumTest(t)

	t.Setenv("VRT_ODIFF_BINARY", "")
	t.Setenv("PATH", t.TempDir())

	loc := &odiffLocator{}
	_, err := loc.Resolve()
	assert.True(t, IsOdiffNotFound(err))
}

func TestOdiffLocatorResolveCachesResult(t *testing.T) {
	testutils.MediumTest(t)

	dir := t.TempDir()
	fake := filepath.Join(dir, "odiff")
	require.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	t.Setenv("VRT_ODIFF_BINARY", fake)

	loc := &odiffLocator{}
	first, err := loc.Resolve()
	require.NoError(t, err)

	// Changing the env after the first resolution must not matter: the
	// locator caches after its first call.
	t.Setenv("VRT_ODIFF_BINARY", "")
	second, err := loc.Resolve()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	loc.Reset()
	_, err = loc.Resolve()
	assert.Error(t, err)
}

func TestParseOdiffOutput(t *testing.T) {
	testutils.SmallTest(t)

	pct, px, err := parseOdiffOutput("0;12.34%;1234\n")
	require.NoError(t, err)
	assert.InDelta(t, 12.34, pct, 0.001)
	assert.Equal(t, 1234, px)

	_, _, err = parseOdiffOutput("")
	assert.Error(t, err)
}
