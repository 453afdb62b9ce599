// Package config loads service settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings for the calculator service.
type Config struct {
	Addr            string        `yaml:"addr"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxSessions     int           `yaml:"max_sessions"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	Telemetry       bool          `yaml:"telemetry"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Addr:            ":8080",
		LogLevel:        "info",
		ShutdownTimeout: 5 * time.Second,
		MaxSessions:     1024,
		SessionTTL:      30 * time.Minute,
		Telemetry:       true,
	}
}

// Load starts from Default, overlays the YAML file at path when path is not
// empty, then applies CALCULATOR_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("CALCULATOR_ADDR"); ok {
		c.Addr = v
	}
	if v, ok := lookup("CALCULATOR_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup("CALCULATOR_SHUTDOWN_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CALCULATOR_SHUTDOWN_TIMEOUT: %w", err)
		}
		c.ShutdownTimeout = d
	}
	if v, ok := lookup("CALCULATOR_MAX_SESSIONS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CALCULATOR_MAX_SESSIONS: %w", err)
		}
		c.MaxSessions = n
	}
	if v, ok := lookup("CALCULATOR_SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CALCULATOR_SESSION_TTL: %w", err)
		}
		c.SessionTTL = d
	}
	if v, ok := lookup("CALCULATOR_TELEMETRY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CALCULATOR_TELEMETRY: %w", err)
		}
		c.Telemetry = b
	}
	return nil
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}
	if c.MaxSessions < 0 {
		errs = append(errs, errors.New("max_sessions must not be negative"))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, errors.New("session_ttl must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
