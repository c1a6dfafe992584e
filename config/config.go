// =============================================================================
// seqflow client configuration
// =============================================================================
// Unified configuration loading: defaults → YAML file → environment
// variables. Environment keys use the SEQFLOW_ prefix, e.g.
// SEQFLOW_SERVER_BASE_URL overrides server.base_url.
// =============================================================================
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete client configuration.
type Config struct {
	// Server locates the remote workflow service.
	Server ServerConfig `yaml:"server"`
	// HTTP tunes the transport.
	HTTP HTTPConfig `yaml:"http"`
	// Register tunes the registration protocol.
	Register RegisterConfig `yaml:"register"`
	// Execute tunes execution strategy defaults.
	Execute ExecuteConfig `yaml:"execute"`
	// Log configures logging.
	Log LogConfig `yaml:"log"`
	// Telemetry configures the OTel SDK.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig locates the remote workflow service.
type ServerConfig struct {
	// BaseURL of the server, e.g. http://localhost:8080.
	BaseURL string `yaml:"base_url"`
	// BasePath is an optional API prefix such as /api/v1.
	BasePath string `yaml:"base_path"`
}

// HTTPConfig tunes the transport.
type HTTPConfig struct {
	// Timeout for one-shot requests.
	Timeout time.Duration `yaml:"timeout"`
	// HealthTimeout for the health probe.
	HealthTimeout time.Duration `yaml:"health_timeout"`
}

// RegisterConfig tunes the registration protocol.
type RegisterConfig struct {
	// Verify issues a GET after a reported registration success.
	Verify bool `yaml:"verify"`
}

// ExecuteConfig tunes execution defaults.
type ExecuteConfig struct {
	// Streaming selects the live-progress transport by default.
	Streaming bool `yaml:"streaming"`
	// RateLimitRPS caps outgoing execute calls; 0 disables the limiter.
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
	// RateLimitBurst is the limiter burst size.
	RateLimitBurst int `yaml:"rate_limit_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// TelemetryConfig configures the OTel SDK.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	ServiceName  string  `yaml:"service_name"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:8080",
		},
		HTTP: HTTPConfig{
			Timeout:       60 * time.Second,
			HealthTimeout: 5 * time.Second,
		},
		Register: RegisterConfig{
			Verify: true,
		},
		Execute: ExecuteConfig{
			RateLimitBurst: 1,
		},
		Log: LogConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "seqflow",
			SampleRate:   1.0,
		},
	}
}

// Load builds the configuration with the standard precedence:
// defaults → YAML file (optional, pass "" to skip) → environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from SEQFLOW_* environment variables.
func (c *Config) applyEnv() error {
	envString("SEQFLOW_SERVER_BASE_URL", &c.Server.BaseURL)
	envString("SEQFLOW_SERVER_BASE_PATH", &c.Server.BasePath)
	if err := envDuration("SEQFLOW_HTTP_TIMEOUT", &c.HTTP.Timeout); err != nil {
		return err
	}
	if err := envDuration("SEQFLOW_HTTP_HEALTH_TIMEOUT", &c.HTTP.HealthTimeout); err != nil {
		return err
	}
	if err := envBool("SEQFLOW_REGISTER_VERIFY", &c.Register.Verify); err != nil {
		return err
	}
	if err := envBool("SEQFLOW_EXECUTE_STREAMING", &c.Execute.Streaming); err != nil {
		return err
	}
	if err := envFloat("SEQFLOW_EXECUTE_RATE_LIMIT_RPS", &c.Execute.RateLimitRPS); err != nil {
		return err
	}
	if err := envInt("SEQFLOW_EXECUTE_RATE_LIMIT_BURST", &c.Execute.RateLimitBurst); err != nil {
		return err
	}
	envString("SEQFLOW_LOG_LEVEL", &c.Log.Level)
	if err := envBool("SEQFLOW_TELEMETRY_ENABLED", &c.Telemetry.Enabled); err != nil {
		return err
	}
	envString("SEQFLOW_TELEMETRY_OTLP_ENDPOINT", &c.Telemetry.OTLPEndpoint)
	envString("SEQFLOW_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if err := envFloat("SEQFLOW_TELEMETRY_SAMPLE_RATE", &c.Telemetry.SampleRate); err != nil {
		return err
	}
	return nil
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid bool in %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid int in %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func envFloat(key string, dst *float64) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("invalid float in %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid duration in %s: %w", key, err)
	}
	*dst = parsed
	return nil
}
