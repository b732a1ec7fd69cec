package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"testbin"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetArgs(t)

	cfg := LoadConfig()

	assert.Equal(t, "127.0.0.1:10085", cfg.XrayAPIAddr)
	assert.Equal(t, "vless-in", cfg.XrayInboundTag)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 1*time.Minute, cfg.HealthInterval)
	assert.Equal(t, 5*time.Second, cfg.ProxyCallTimeout)
	assert.Equal(t, int64(1<<30), cfg.KeyDataLimitBytes)
	assert.Equal(t, 8, cfg.DispatchConcurrency)
}

func TestLoadConfig_EnvOverlay(t *testing.T) {
	resetArgs(t)
	t.Setenv("RELAYKEEPER_XRAY_API_ADDR", "10.0.0.5:10085")
	t.Setenv("RELAYKEEPER_SYNC_INTERVAL", "90s")
	t.Setenv("RELAYKEEPER_KEY_DATA_LIMIT_BYTES", "2147483648")

	cfg := LoadConfig()

	assert.Equal(t, "10.0.0.5:10085", cfg.XrayAPIAddr)
	assert.Equal(t, 90*time.Second, cfg.SyncInterval)
	assert.Equal(t, int64(2<<30), cfg.KeyDataLimitBytes)
	// untouched fields keep defaults
	assert.Equal(t, "vless-in", cfg.XrayInboundTag)
}

func TestLoadConfig_JsonOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"database_dsn": "postgres://json",
		"sync_interval": "10m",
		"reality_sni": "example.org"
	}`), 0o600))

	resetArgs(t, "-c", path)

	cfg := LoadConfig()

	assert.Equal(t, "postgres://json", cfg.DatabaseDSN)
	assert.Equal(t, 10*time.Minute, cfg.SyncInterval)
	assert.Equal(t, "example.org", cfg.RealitySNI)
	assert.Equal(t, "vless-in", cfg.XrayInboundTag)
}

func TestLoadConfig_FlagsWinOverJson(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"xray_api_addr": "1.2.3.4:1"}`), 0o600))

	resetArgs(t, "-c", path, "-x", "5.6.7.8:10085", "-i", "120")

	cfg := LoadConfig()

	assert.Equal(t, "5.6.7.8:10085", cfg.XrayAPIAddr)
	assert.Equal(t, 2*time.Minute, cfg.SyncInterval)
}
