// ABOUTME: Configuration structures for telemetry setup including exporters, sampling, and validation
// ABOUTME: Supports environment variable overrides and provides sensible defaults for all telemetry options

package telemetry

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for telemetry providers and exporters.
type Config struct {
	ServiceName    string   `json:"service_name"`
	ServiceVersion string   `json:"service_version"`
	Enabled        bool     `json:"enabled"`
	Exporters      []string `json:"exporters"`
	SampleRate     float64  `json:"sample_rate"`
	PrometheusPort int      `json:"prometheus_port"`
	ExportTimeout  time.Duration `json:"export_timeout"`
	BatchTimeout   time.Duration `json:"batch_timeout"`
}

// DefaultConfig returns a configuration with sensible defaults: stdout
// exporters only, telemetry enabled, full sampling.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "ukv",
		ServiceVersion: "development",
		Enabled:        true,
		Exporters:      []string{"stdout"},
		SampleRate:     1.0,
		PrometheusPort: 9090,
		ExportTimeout:  30 * time.Second,
		BatchTimeout:   5 * time.Second,
	}
}

// LoadFromEnv overrides c's fields from UKV_TELEMETRY_* environment
// variables, the ones present.
func (c *Config) LoadFromEnv() {
	if val := os.Getenv("UKV_TELEMETRY_SERVICE_NAME"); val != "" {
		c.ServiceName = val
	}
	if val := os.Getenv("UKV_TELEMETRY_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Enabled = enabled
		}
	}
	if val := os.Getenv("UKV_TELEMETRY_EXPORTERS"); val != "" {
		c.Exporters = strings.Split(val, ",")
		for i := range c.Exporters {
			c.Exporters[i] = strings.TrimSpace(c.Exporters[i])
		}
	}
	if val := os.Getenv("UKV_TELEMETRY_SAMPLE_RATE"); val != "" {
		if rate, err := strconv.ParseFloat(val, 64); err == nil {
			c.SampleRate = rate
		}
	}
	if val := os.Getenv("UKV_TELEMETRY_PROMETHEUS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.PrometheusPort = port
		}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name cannot be empty")
	}
	if c.SampleRate < 0.0 || c.SampleRate > 1.0 {
		return fmt.Errorf("sample_rate must be between 0.0 and 1.0, got %f", c.SampleRate)
	}
	if c.PrometheusPort < 1 || c.PrometheusPort > 65535 {
		return fmt.Errorf("prometheus_port must be between 1 and 65535, got %d", c.PrometheusPort)
	}
	if c.ExportTimeout <= 0 {
		return fmt.Errorf("export_timeout must be positive, got %s", c.ExportTimeout)
	}
	if c.BatchTimeout <= 0 {
		return fmt.Errorf("batch_timeout must be positive, got %s", c.BatchTimeout)
	}

	valid := map[string]bool{"prometheus": true, "stdout": true}
	for _, exporter := range c.Exporters {
		if !valid[exporter] {
			return fmt.Errorf("invalid exporter: %s, valid options are: prometheus, stdout", exporter)
		}
	}
	return nil
}

// HasExporter reports whether name is among the configured exporters.
func (c *Config) HasExporter(name string) bool {
	for _, exporter := range c.Exporters {
		if exporter == name {
			return true
		}
	}
	return false
}
