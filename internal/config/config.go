// Package config provides configuration loading for the responsed daemon.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables. The engine's lookup tables (profile limits,
// template catalogue, filler phrases) are compile-time constants and are
// deliberately not configurable.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/responsed/internal/compression"
	"github.com/fyrsmithlabs/responsed/internal/logging"
)

// Config holds the complete responsed daemon configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   logging.Config  `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Engine    EngineConfig    `koanf:"engine"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// TelemetryConfig holds OpenTelemetry metric export configuration.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
	Endpoint    string `koanf:"endpoint"`
	// Protocol is "grpc" or "http/protobuf".
	Protocol string `koanf:"protocol"`
	Insecure bool   `koanf:"insecure"`
}

// EngineConfig holds engine-facing defaults for the HTTP surface.
type EngineConfig struct {
	// DefaultCompressionMode applies when a compress request names no
	// mode; "auto" selects by estimated token count.
	DefaultCompressionMode string `koanf:"default_compression_mode"`
	// StreamSentenceThreshold is the default sentence count buffered by
	// stream sessions before compressing.
	StreamSentenceThreshold int `koanf:"stream_sentence_threshold"`
}

// Default returns the daemon defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            9292,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: *logging.NewDefaultConfig(),
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "responsed",
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
		},
		Engine: EngineConfig{
			DefaultCompressionMode:  "auto",
			StreamSentenceThreshold: compression.DefaultSentenceThreshold,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be > 0, got %s", c.Server.ShutdownTimeout)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry endpoint required when telemetry enabled")
		}
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http/protobuf" {
			return fmt.Errorf("telemetry protocol must be 'grpc' or 'http/protobuf', got %q", c.Telemetry.Protocol)
		}
	}
	if mode := c.Engine.DefaultCompressionMode; mode != "auto" && !compression.Mode(mode).Valid() {
		return fmt.Errorf("unknown compression mode %q", mode)
	}
	if c.Engine.StreamSentenceThreshold < 1 {
		return fmt.Errorf("stream sentence threshold must be >= 1, got %d", c.Engine.StreamSentenceThreshold)
	}
	return nil
}
