package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithRequiredEnv(t *testing.T) {
	t.Setenv("GEOCRYPT_SECURITY_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("GEOCRYPT_ADMIN_PASSWORD", "changeme")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "data", cfg.Store.Dir)
	assert.Equal(t, 24*time.Hour, cfg.Security.SessionTTL)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "changeme", cfg.Admin.Password)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("GEOCRYPT_ADMIN_PASSWORD", "changeme")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestLoadRequiresAdminPassword(t *testing.T) {
	t.Setenv("GEOCRYPT_SECURITY_JWT_SECRET", "0123456789abcdef0123456789abcdef")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin.password")
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  listen: ":9090"
store:
  dir: /var/lib/geocrypt
security:
  jwt_secret: 0123456789abcdef0123456789abcdef
admin:
  password: from-file
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	// Env overrides file.
	t.Setenv("GEOCRYPT_ADMIN_PASSWORD", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, "/var/lib/geocrypt", cfg.Store.Dir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "from-env", cfg.Admin.Password)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("GEOCRYPT_SECURITY_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("GEOCRYPT_ADMIN_PASSWORD", "changeme")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Listen)
}
