// Package config provides YAML configuration parsing for pulsefeed.
//
// This package enables running pulsefeed as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	base_url: ${PULSEFEED_API_BASE_URL:-http://localhost:8000}
//	port: 8080
//	heartbeat: 5s
//	reconnect_delay: 2s
//
//	headers:
//	  Authorization: Bearer ${TRAINER_TOKEN}
//
//	routes:
//	  workout_stream: /v2/workout/stream
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/pulsefeed"
)

const (
	defaultPort           = 8080
	defaultHeartbeat      = 5 * time.Second
	defaultReconnectDelay = 2 * time.Second
	defaultRequestTimeout = 10 * time.Second

	// minHeartbeat keeps a misconfigured heartbeat from tearing down healthy
	// connections between two regular messages.
	minHeartbeat = 100 * time.Millisecond
)

// Config is the root configuration structure for pulsefeed.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// BaseURL is the backend's absolute http(s) URL.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	BaseURL string `yaml:"base_url"`

	// Port is the relay HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// Relay enables the relay HTTP server. Defaults to true.
	Relay *bool `yaml:"relay"`

	// Heartbeat is how long a stream may stay silent before it is
	// reconnected. Defaults to 5s.
	Heartbeat Duration `yaml:"heartbeat"`

	// ReconnectDelay is the fixed wait before reconnecting. Defaults to 2s.
	ReconnectDelay Duration `yaml:"reconnect_delay"`

	// RequestTimeout bounds each control request. Defaults to 10s.
	RequestTimeout Duration `yaml:"request_timeout"`

	// Headers are sent with every stream and control request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Routes overrides backend paths by route name, for example
	// "metrics_stream" or "start_workout".
	Routes map[string]string `yaml:"routes"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// RelayEnabled reports whether the relay server should run.
func (c *Config) RelayEnabled() bool {
	return c.Relay == nil || *c.Relay
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in BaseURL and Header values.
// Defaults are applied for Port (8080), Heartbeat (5s), ReconnectDelay (2s)
// and RequestTimeout (10s).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Heartbeat == 0 {
		cfg.Heartbeat = Duration(defaultHeartbeat)
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = Duration(defaultReconnectDelay)
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = Duration(defaultRequestTimeout)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	expanded, err := expandEnvVars(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	c.BaseURL = strings.TrimRight(expanded, "/")

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if parsedURL.Scheme == "" {
		return errors.New("base_url must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base_url scheme must be http or https, got %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return errors.New("base_url must have a host")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.Heartbeat.Duration() < minHeartbeat {
		return fmt.Errorf("heartbeat must be at least %s, got %s", minHeartbeat, c.Heartbeat.Duration())
	}
	if c.ReconnectDelay.Duration() <= 0 {
		return fmt.Errorf("reconnect_delay must be positive, got %s", c.ReconnectDelay.Duration())
	}
	if c.RequestTimeout.Duration() <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout.Duration())
	}

	for k, v := range c.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
		c.Headers[k] = expanded
	}

	known := make(map[string]bool)
	for _, r := range pulsefeed.Routes() {
		known[string(r)] = true
	}
	for name, path := range c.Routes {
		if !known[name] {
			return fmt.Errorf("routes[%s]: unknown route", name)
		}
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("routes[%s]: path %q must start with /", name, path)
		}
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}

	return nil
}
