package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Host:               "0.0.0.0",
			Port:               3000,
			StaticDir:          "public",
			ReadHeaderTimeout:  10 * time.Second,
			ShutdownGrace:      10 * time.Second,
			CORSAllowedOrigins: []string{"*"},
		},
		Relay: RelayConfig{
			SendBuffer:   256,
			PingInterval: 20 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestHTTPAddr(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "0.0.0.0:3000", cfg.HTTP.Addr())
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http.port")
}

func TestValidateRejectsEmptyCORS(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.CORSAllowedOrigins = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cors_allowed_origins")
}

func TestValidateRejectsBadSendBuffer(t *testing.T) {
	cfg := validConfig()
	cfg.Relay.SendBuffer = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay.send_buffer")
}

func TestValidateRejectsBadLogging(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")

	cfg = validConfig()
	cfg.Logging.Format = "xml"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.format")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
http:
  host: 127.0.0.1
  port: 3001
  static_dir: assets
relay:
  send_buffer: 64
  ping_interval: 15s
logging:
  level: debug
  format: console
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.HTTP.Host)
	assert.Equal(t, 3001, cfg.HTTP.Port)
	assert.Equal(t, "assets", cfg.HTTP.StaticDir)
	assert.Equal(t, 64, cfg.Relay.SendBuffer)
	assert.Equal(t, 15*time.Second, cfg.Relay.PingInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minimal.yaml")
	err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.HTTP.Port)
	assert.Equal(t, "public", cfg.HTTP.StaticDir)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSAllowedOrigins)
	assert.Equal(t, 256, cfg.Relay.SendBuffer)
	assert.Equal(t, 20*time.Second, cfg.Relay.PingInterval)
	assert.Equal(t, time.Duration(0), cfg.Relay.EmptyRoomSweep)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidatePortRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := validConfig()
		cfg.HTTP.Port = rapid.IntRange(-1000, 70000).Draw(t, "port")
		err := cfg.Validate()
		if cfg.HTTP.Port >= 1 && cfg.HTTP.Port <= 65535 {
			assert.NoError(t, err)
		} else {
			assert.Error(t, err)
		}
	})
}
