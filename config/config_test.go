package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cart.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadOverridesAndExpandsEnv(t *testing.T) {
	t.Setenv("CART_TEST_DSN", "postgres://u:p@db/cart?sslmode=disable")
	path := writeConfig(t, `
catalog:
  base_url: http://catalog:3333
  timeout: 2s
storage:
  driver: postgres
  dsn: ${CART_TEST_DSN}
  namespace: rocket
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://catalog:3333", cfg.Catalog.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, 3, cfg.Catalog.MaxRetries, "unset keys keep defaults")
	assert.Equal(t, "postgres://u:p@db/cart?sslmode=disable", cfg.Storage.DSN)
	assert.Equal(t, "rocket", cfg.Storage.Namespace)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidateCollectsProblems(t *testing.T) {
	path := writeConfig(t, `
catalog:
  base_url: ""
storage:
  driver: sqlite
log:
  format: xml
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.base_url is required")
	assert.Contains(t, err.Error(), `storage.dsn is required for driver "sqlite"`)
	assert.Contains(t, err.Error(), `log.format "xml"`)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadKeepsBareDollar(t *testing.T) {
	t.Setenv("CART_TEST_HOST", "db")
	t.Setenv("abc", "expanded")
	path := writeConfig(t, `
storage:
  driver: postgres
  dsn: postgres://u:pa$$word@${CART_TEST_HOST}/$abc
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:pa$$word@db/$abc", cfg.Storage.DSN)
	assert.Equal(t, 10000, cfg.Server.MaxSessions)
}
