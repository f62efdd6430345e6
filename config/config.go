// Package config provides configuration management for the BodyTrack client.
//
// Configuration is loaded from a YAML file and can be overridden with
// BODYTRACK_* environment variables, so deployments tune the service
// endpoint and dispatch behavior without editing files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Eladkrauz/BodyTrackClient/dispatch"
	"github.com/Eladkrauz/BodyTrackClient/media"
	"github.com/Eladkrauz/BodyTrackClient/types"
)

// Environment variable overrides. Each one, when set, takes precedence
// over the corresponding file value.
const (
	EnvBaseURL      = "BODYTRACK_BASE_URL"
	EnvToken        = "BODYTRACK_TOKEN"
	EnvTimeout      = "BODYTRACK_TIMEOUT"
	EnvMaxInFlight  = "BODYTRACK_MAX_IN_FLIGHT"
	EnvStallTimeout = "BODYTRACK_STALL_TIMEOUT"
	EnvMetricsPort  = "BODYTRACK_METRICS_PORT"
)

// ServiceConfig holds the analysis service connection settings.
type ServiceConfig struct {
	// BaseURL is the service endpoint. Empty uses the client default.
	BaseURL string `yaml:"base_url"`

	// Token is the bearer token for authentication. Usually supplied via
	// BODYTRACK_TOKEN rather than the file.
	Token string `yaml:"token"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// DispatchConfig holds the frame dispatch tuning knobs.
type DispatchConfig struct {
	// MaxInFlight bounds concurrent outstanding analysis requests.
	MaxInFlight int `yaml:"max_in_flight"`

	// StallTimeout is how long without any response before the session
	// aborts on a network stall.
	StallTimeout time.Duration `yaml:"stall_timeout"`

	// JPEGQuality is the frame encoding quality (1-100).
	JPEGQuality int `yaml:"jpeg_quality"`

	// MaxDimension caps the longer frame side before encoding.
	MaxDimension int `yaml:"max_dimension"`
}

// MetricsConfig holds the Prometheus exporter settings.
type MetricsConfig struct {
	// Enabled starts the /metrics endpoint.
	Enabled bool `yaml:"enabled"`

	// Port is the exporter listen port.
	Port int `yaml:"port"`
}

// Config is the full client configuration.
type Config struct {
	Service  ServiceConfig       `yaml:"service"`
	Dispatch DispatchConfig      `yaml:"dispatch"`
	Metrics  MetricsConfig       `yaml:"metrics"`
	Session  types.SessionConfig `yaml:"session"`
}

// Default returns the configuration used when no file is provided. The
// session block has no defaults; exercise kind and duration are always
// caller-supplied.
func Default() *Config {
	encoder := media.DefaultEncoderConfig()
	return &Config{
		Service: ServiceConfig{
			Timeout: 30 * time.Second,
		},
		Dispatch: DispatchConfig{
			MaxInFlight:  dispatch.DefaultMaxInFlight,
			StallTimeout: dispatch.DefaultStallTimeout,
			JPEGQuality:  encoder.Quality,
			MaxDimension: encoder.MaxDimension,
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// Load reads a YAML configuration file, applies environment overrides, and
// validates the result. An empty filename loads defaults plus overrides.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays BODYTRACK_* environment variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.Service.BaseURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Service.Token = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		c.Service.Timeout = d
	}
	if v := os.Getenv(EnvMaxInFlight); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxInFlight, err)
		}
		c.Dispatch.MaxInFlight = n
	}
	if v := os.Getenv(EnvStallTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvStallTimeout, err)
		}
		c.Dispatch.StallTimeout = d
	}
	if v := os.Getenv(EnvMetricsPort); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMetricsPort, err)
		}
		c.Metrics.Port = n
	}
	return nil
}

// Validate checks the tuning values. The session block is validated
// separately when a session starts, so a config file may omit it.
func (c *Config) Validate() error {
	var errs []error

	if c.Service.Timeout < 0 {
		errs = append(errs, fmt.Errorf("service.timeout must not be negative, got %s", c.Service.Timeout))
	}
	if c.Dispatch.MaxInFlight <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.max_in_flight must be positive, got %d", c.Dispatch.MaxInFlight))
	}
	if c.Dispatch.StallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.stall_timeout must be positive, got %s", c.Dispatch.StallTimeout))
	}
	if c.Dispatch.JPEGQuality < 1 || c.Dispatch.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("dispatch.jpeg_quality must be in 1..100, got %d", c.Dispatch.JPEGQuality))
	}
	if c.Dispatch.MaxDimension <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.max_dimension must be positive, got %d", c.Dispatch.MaxDimension))
	}
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		errs = append(errs, fmt.Errorf("metrics.port must be a valid port, got %d", c.Metrics.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed with %d errors: %v", len(errs), errs)
	}
	return nil
}

// Encoder returns the media encoder settings derived from the dispatch
// block.
func (c *Config) Encoder() media.EncoderConfig {
	return media.EncoderConfig{
		Quality:      c.Dispatch.JPEGQuality,
		MaxDimension: c.Dispatch.MaxDimension,
	}
}
