package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.env")
	require.NoError(t, os.WriteFile(good, []byte("LOADENV_TEST_KEY=from-file\n"), 0o600))
	t.Setenv("LOADENV_TEST_KEY", "")
	os.Unsetenv("LOADENV_TEST_KEY")

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env"), good))
	assert.Equal(t, "from-file", os.Getenv("LOADENV_TEST_KEY"))
}

func TestLoadEnvMalformed(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.env")
	require.NoError(t, os.WriteFile(bad, []byte("KEY='unterminated\n"), 0o600))

	assert.Error(t, LoadEnv(bad))
}
