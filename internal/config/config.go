// Package config loads relayd's tunable parameters from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config lists the tunable parameters for the relay broker.
type Config struct {
	Bind            string
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	BufferSize      int
	MDNSEnabled     bool
	WSBind          string
	MetricsInterval time.Duration
}

const (
	defaultBind            = "0.0.0.0:7656"
	defaultLogLevel        = "info"
	defaultReadTimeout     = 500 * time.Millisecond
	defaultWriteTimeout    = 500 * time.Millisecond
	defaultBufferSize      = 4096
	defaultMDNSEnabled     = true
	defaultWSBind          = ""
	defaultMetricsInterval = 30 * time.Second
)

// Load derives configuration values from environment variables, falling back to defaults.
func Load() (Config, error) {
	cfg := Config{
		Bind:            defaultBind,
		LogLevel:        defaultLogLevel,
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		BufferSize:      defaultBufferSize,
		MDNSEnabled:     defaultMDNSEnabled,
		WSBind:          defaultWSBind,
		MetricsInterval: defaultMetricsInterval,
	}

	if v := os.Getenv("RELAY_BIND"); v != "" {
		cfg.Bind = v
	}

	if v := os.Getenv("RELAY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv("RELAY_READ_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RELAY_READ_TIMEOUT_MS: %w", err)
		}
		cfg.ReadTimeout = time.Duration(ms) * time.Millisecond
	}

	if v := os.Getenv("RELAY_WRITE_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RELAY_WRITE_TIMEOUT_MS: %w", err)
		}
		cfg.WriteTimeout = time.Duration(ms) * time.Millisecond
	}

	if v := os.Getenv("RELAY_BUFFER_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RELAY_BUFFER_SIZE: %w", err)
		}
		cfg.BufferSize = size
	}

	if v := os.Getenv("RELAY_MDNS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RELAY_MDNS_ENABLED: %w", err)
		}
		cfg.MDNSEnabled = enabled
	}

	if v := os.Getenv("RELAY_WS_BIND"); v != "" {
		cfg.WSBind = v
	}

	if v := os.Getenv("RELAY_METRICS_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RELAY_METRICS_INTERVAL_MS: %w", err)
		}
		cfg.MetricsInterval = time.Duration(ms) * time.Millisecond
	}

	return cfg, nil
}
