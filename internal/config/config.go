package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// DatabasePath points at the archive database; empty disables archiving.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	// CodeLength is the number of digits in generated room codes.
	CodeLength int `mapstructure:"code_length" yaml:"code_length"`

	// IdleTimeout is how long a silent connection survives before the hub
	// evicts it; EvictInterval is how often the sweep runs.
	IdleTimeout   time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	EvictInterval time.Duration `mapstructure:"evict_interval" yaml:"evict_interval"`

	// SendBuffer is the per-connection outbound queue depth.
	SendBuffer int `mapstructure:"send_buffer" yaml:"send_buffer"`

	// CreatePerMinute caps room creation per minute; zero disables the cap.
	CreatePerMinute int `mapstructure:"create_per_minute" yaml:"create_per_minute"`

	// TokenSecret signs host tokens; TokenTTL bounds their lifetime.
	TokenSecret string        `mapstructure:"token_secret" yaml:"token_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "iquiz.db",
		CodeLength:        6,
		IdleTimeout:       2 * time.Minute,
		EvictInterval:     30 * time.Second,
		SendBuffer:        16,
		CreatePerMinute:   60,
		TokenSecret:       "change-me",
		TokenTTL:          12 * time.Hour,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.CodeLength != 0 {
		c.CodeLength = other.CodeLength
	}
	if other.IdleTimeout != 0 {
		c.IdleTimeout = other.IdleTimeout
	}
	if other.EvictInterval != 0 {
		c.EvictInterval = other.EvictInterval
	}
	if other.SendBuffer != 0 {
		c.SendBuffer = other.SendBuffer
	}
	if other.CreatePerMinute != 0 {
		c.CreatePerMinute = other.CreatePerMinute
	}
	if other.TokenSecret != "" {
		c.TokenSecret = other.TokenSecret
	}
	if other.TokenTTL != 0 {
		c.TokenTTL = other.TokenTTL
	}
}
