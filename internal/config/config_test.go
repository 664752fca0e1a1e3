package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, StorageSQLite, cfg.Storage.Driver)
	assert.Equal(t, PolicyAllowAll, cfg.Policy.Mode)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Driver = "bolt"
	cfg.Blob.Driver = "s3"
	cfg.Log.Format = "xml"
	cfg.Policy.Mode = "deny"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.driver")
	assert.Contains(t, err.Error(), "blob.s3.bucket")
	assert.Contains(t, err.Error(), "log.format")
	assert.Contains(t, err.Error(), "policy.mode")
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().Storage.SQLitePath, cfg.Storage.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mycoledger.yaml")
	content := `
storage:
  driver: memory
blob:
  driver: memory
log:
  level: debug
  format: json
policy:
  mode: steward
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("MYCOLEDGER_LOG_LEVEL", "warn")
	t.Setenv("MYCOLEDGER_METRICS_RECORDER", "prometheus")
	t.Setenv("MYCOLEDGER_METRICS_AUDIT_PATH", "/var/log/mycoledger/audit.jsonl")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "warn", cfg.Log.Level, "env must win over file")
	assert.Equal(t, MetricsPrometheus, cfg.Metrics.Recorder)
	assert.Equal(t, "/var/log/mycoledger/audit.jsonl", cfg.Metrics.AuditPath)
	assert.Equal(t, PolicySteward, cfg.Policy.Mode)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	t.Setenv("MYCOLEDGER_STORAGE_DRIVER", "bolt")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MYCOLEDGER_POLICY_MODE=steward\n"), 0o600))
	t.Setenv("MYCOLEDGER_POLICY_MODE", "")
	require.NoError(t, os.Unsetenv("MYCOLEDGER_POLICY_MODE"))

	require.NoError(t, LoadDotenv(filepath.Join(dir, "missing.env"), path))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, PolicySteward, cfg.Policy.Mode)
}
