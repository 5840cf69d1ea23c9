package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsNotValidWithoutPassword(t *testing.T) {
	cfg := Default()
	cfg.Pool.Host = "localhost"
	cfg.Pool.Database = "observatory"
	cfg.Pool.User = "observatory"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestValidateRejectsStoreNotSubsetOfCompute(t *testing.T) {
	cfg := Default()
	cfg.Pool.Host = "localhost"
	cfg.Pool.Database = "observatory"
	cfg.Pool.User = "observatory"
	cfg.Pool.Password = "secret"

	cfg.Monitor.Processing.Compute.SSL = false
	cfg.Monitor.Processing.Store.SSL = true

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subset")
}

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "observatory.yaml")
	contents := []byte("pool:\n  host: db.internal\n  port: 5432\n  database: observatory\n  user: observatory\n")
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	t.Setenv("DB_PASSWORD", "hunter2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Pool.Host)
	assert.Equal(t, "hunter2", cfg.Pool.Password)
	// Defaults survive when the YAML doesn't override them.
	assert.Equal(t, 10, cfg.Pool.MaxSize)
	assert.True(t, cfg.Networks.Clearnet.Enabled)
	assert.False(t, cfg.Networks.Tor.Enabled)
}

func TestNetworksGetUnknownReturnsDisabled(t *testing.T) {
	n := Default().Networks
	assert.False(t, n.Get("nonsense").Enabled)
}

func TestProbeTogglesSubset(t *testing.T) {
	compute := ProbeToggles{NIP11: true, RTT: true}
	store := ProbeToggles{NIP11: true}
	assert.True(t, store.Subset(compute))

	store.SSL = true
	assert.False(t, store.Subset(compute))
}
