package config

import (
	"fmt"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	HTTPAddr        string        `mapstructure:"http_addr" yaml:"http_addr"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat       string        `mapstructure:"log_format" yaml:"log_format"`
	DatabasePath    string        `mapstructure:"database_path" yaml:"database_path"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MaxLineBytes    int           `mapstructure:"max_line_bytes" yaml:"max_line_bytes"`
	MaxConnections  int           `mapstructure:"max_connections" yaml:"max_connections"`
	SendQueueSize   int           `mapstructure:"send_queue_size" yaml:"send_queue_size"`
}

// Default returns configuration with reasonable starter defaults.
// Idle timeout and connection cap are off unless configured.
func Default() Config {
	return Config{
		Addr:            ":6666",
		HTTPAddr:        ":8080",
		LogLevel:        "info",
		LogFormat:       "console",
		ShutdownTimeout: 5 * time.Second,
		WriteTimeout:    10 * time.Second,
		MaxLineBytes:    64 * 1024,
		SendQueueSize:   256,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.IdleTimeout != 0 {
		c.IdleTimeout = other.IdleTimeout
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.MaxLineBytes != 0 {
		c.MaxLineBytes = other.MaxLineBytes
	}
	if other.MaxConnections != 0 {
		c.MaxConnections = other.MaxConnections
	}
	if other.SendQueueSize != 0 {
		c.SendQueueSize = other.SendQueueSize
	}
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("config: addr must not be empty")
	case c.LogFormat != "" && c.LogFormat != "console" && c.LogFormat != "json":
		return fmt.Errorf("config: log_format must be console or json, got %q", c.LogFormat)
	case c.MaxLineBytes <= 0:
		return fmt.Errorf("config: max_line_bytes must be positive, got %d", c.MaxLineBytes)
	case c.SendQueueSize <= 0:
		return fmt.Errorf("config: send_queue_size must be positive, got %d", c.SendQueueSize)
	case c.MaxConnections < 0:
		return fmt.Errorf("config: max_connections must not be negative, got %d", c.MaxConnections)
	case c.IdleTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0:
		return fmt.Errorf("config: timeouts must not be negative")
	}
	return nil
}
