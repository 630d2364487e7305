// Package config provides Viper-based configuration loading for the relay server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// HTTPConfig holds the HTTP/websocket listener settings.
type HTTPConfig struct {
	// Host is the bind address for the HTTP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP listener.
	Port int `mapstructure:"port"`
	// StaticDir is the directory served at / (game client assets).
	StaticDir string `mapstructure:"static_dir"`
	// ReadHeaderTimeout bounds how long a client may take to send request headers.
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	// ShutdownGrace is the maximum duration allowed for graceful shutdown.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
	// CORSAllowedOrigins is the list of allowed origins; ["*"] allows all.
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// RelayConfig holds session relay and transport tuning.
type RelayConfig struct {
	// SendBuffer is the per-connection outbound frame buffer size.
	// Frames to a client whose buffer is full are dropped, not queued.
	SendBuffer int `mapstructure:"send_buffer"`
	// PingInterval is the websocket keepalive ping period.
	PingInterval time.Duration `mapstructure:"ping_interval"`
	// EmptyRoomSweep is the interval at which the registry is swept for
	// rooms that have lost all members without being removed. Zero disables
	// the sweep; the relay removes empty rooms inline, so this is a
	// safety net only.
	EmptyRoomSweep time.Duration `mapstructure:"empty_room_sweep"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Relay   RelayConfig   `mapstructure:"relay"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateHTTP(c.HTTP); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRelay(c.Relay); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateHTTP(h HTTPConfig) error {
	var errs []string
	if h.Port < 1 || h.Port > 65535 {
		errs = append(errs, fmt.Sprintf("http.port must be 1-65535, got %d", h.Port))
	}
	if h.ReadHeaderTimeout < 0 {
		errs = append(errs, "http.read_header_timeout must not be negative")
	}
	if h.ShutdownGrace < 0 {
		errs = append(errs, "http.shutdown_grace must not be negative")
	}
	if len(h.CORSAllowedOrigins) == 0 {
		errs = append(errs, "http.cors_allowed_origins must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRelay(r RelayConfig) error {
	var errs []string
	if r.SendBuffer < 1 {
		errs = append(errs, fmt.Sprintf("relay.send_buffer must be >= 1, got %d", r.SendBuffer))
	}
	if r.PingInterval <= 0 {
		errs = append(errs, "relay.ping_interval must be positive")
	}
	if r.EmptyRoomSweep < 0 {
		errs = append(errs, "relay.empty_room_sweep must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with RELAY_ prefix
	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.static_dir", "public")
	v.SetDefault("http.read_header_timeout", "10s")
	v.SetDefault("http.shutdown_grace", "10s")
	v.SetDefault("http.cors_allowed_origins", []string{"*"})

	v.SetDefault("relay.send_buffer", 256)
	v.SetDefault("relay.ping_interval", "20s")
	v.SetDefault("relay.empty_room_sweep", "0s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
