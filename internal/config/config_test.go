package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8420", cfg.Server.ListenAddress)
	assert.Equal(t, "alpaca-console.db", cfg.Store.Path)
	assert.Equal(t, 2*time.Second, cfg.Controller.PollInterval)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.BrokerURL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen_address: ":9000"
controller:
  poll_interval: 500ms
mqtt:
  enabled: true
  broker_url: tcp://broker.observatory.lan:1883
  client_id: dome-console
logging:
  level: debug
  development: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.ListenAddress)
	assert.Equal(t, 500*time.Millisecond, cfg.Controller.PollInterval)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://broker.observatory.lan:1883", cfg.MQTT.BrokerURL)
	assert.Equal(t, "dome-console", cfg.MQTT.ClientID)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
