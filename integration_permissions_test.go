package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/gpupool/gatewayd/internal/config"
	"github.com/gpupool/gatewayd/internal/perms"
	"github.com/gpupool/gatewayd/internal/registry"
	"github.com/gpupool/gatewayd/internal/store"
)

// TestStateFilePermissions verifies that the saved pool is only readable by its owner,
// including when the state directory does not exist yet.
func TestStateFilePermissions(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "nested", "state", config.DefaultStateFile)

	st, err := store.NewFileStore(hclog.NewNullLogger(), statePath)
	require.NoError(t, err)

	reg, err := registry.NewRegistry(hclog.NewNullLogger(), st, "secret")
	require.NoError(t, err)

	_, err = reg.Register("10.0.0.1", 8000, "secret")
	require.NoError(t, err)

	info, err := os.Stat(statePath)
	require.NoError(t, err)
	require.Equal(t, perms.SecureFile, info.Mode().Perm(), "state file should have 0600 permissions")

	dirInfo, err := os.Stat(filepath.Dir(statePath))
	require.NoError(t, err)
	require.Equal(t, perms.RegularDir, dirInfo.Mode().Perm(), "state directory should have 0755 permissions")

	// Rewrites keep the restrictive mode.
	require.NoError(t, reg.Save())
	info, err = os.Stat(statePath)
	require.NoError(t, err)
	require.Equal(t, perms.SecureFile, info.Mode().Perm())
}

// TestConfigFilePermissions verifies that generated configuration files use regular permissions.
func TestConfigFilePermissions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".gatewayd.toml")
	require.NoError(t, (&config.DefaultLoader{}).Init(path, &config.Config{}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, perms.RegularFile, info.Mode().Perm(), "config file should have 0644 permissions")
}
