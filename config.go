package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for mcline.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	MaxClients    int           `mapstructure:"max_clients"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	TCPKeepAlive bool          `mapstructure:"tcp_keepalive"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Host:          "0.0.0.0",
		Port:          8012,
		MaxClients:    10000,
		SweepInterval: 10 * time.Second,
		LogLevel:      "info",
		LogFormat:     "text",
		TCPKeepAlive:  true,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
	}
}

// LoadConfig loads configuration from environment variables, an optional
// config file, and command line flags (already bound into viper by cmd.go).
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("mcline")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/mcline/")
	viper.AddConfigPath("$HOME/.mcline")

	viper.SetEnvPrefix("MCLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("host", config.Host)
	viper.SetDefault("port", config.Port)
	viper.SetDefault("max_clients", config.MaxClients)
	viper.SetDefault("sweep_interval", config.SweepInterval)
	viper.SetDefault("log_level", config.LogLevel)
	viper.SetDefault("log_format", config.LogFormat)
	viper.SetDefault("tcp_keepalive", config.TCPKeepAlive)
	viper.SetDefault("read_timeout", config.ReadTimeout)
	viper.SetDefault("write_timeout", config.WriteTimeout)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}

	if c.MaxClients < 1 {
		return fmt.Errorf("max_clients must be at least 1")
	}

	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	validLevel := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("mcline config: %s:%d, MaxClients: %d, LogLevel: %s",
		c.Host, c.Port, c.MaxClients, c.LogLevel)
}
