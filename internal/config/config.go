// Package config loads console configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/openskies/alpaca-console/pkg/mqtt"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Controller ControllerConfig `mapstructure:"controller"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	ListenAddress   string        `mapstructure:"listen_address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type ControllerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// MQTTConfig embeds the client config and adds the enable switch. The
// broker bridge is optional and off by default.
type MQTTConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	mqtt.Config `mapstructure:",squash"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads configuration from path (optional, may be empty) and the
// ALPACACONSOLE_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.listen_address", ":8420")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("store.path", "alpaca-console.db")
	v.SetDefault("controller.poll_interval", "2s")
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker_url", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "alpaca-console")
	v.SetDefault("mqtt.auto_reconnect", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetEnvPrefix("ALPACACONSOLE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
