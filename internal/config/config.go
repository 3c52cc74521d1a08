// ABOUTME: Configuration file for the playout CLI
// ABOUTME: Loads and validates YAML settings for output, logging and metrics
package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"slices"
	"time"

	"github.com/Resonate-Protocol/playout/pkg/audio/output"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration
type Config struct {
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// OutputConfig selects the backend and device
type OutputConfig struct {
	// Backend is one of output.HostNames()
	Backend string `yaml:"backend"`
	// Device is matched against device names; empty means the default device
	Device string `yaml:"device"`
	// BufferMs is the period each hardware callback covers
	BufferMs int `yaml:"buffer_ms"`
}

// LogConfig controls where log output goes
type LogConfig struct {
	File string `yaml:"file"`
	// Stream mirrors the log file to stdout and disables the TUI
	Stream bool `yaml:"stream"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables it
	Addr string `yaml:"addr"`
}

// BufferDuration returns BufferMs as a duration
func (o OutputConfig) BufferDuration() time.Duration {
	return time.Duration(o.BufferMs) * time.Millisecond
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Backend:  "malgo",
			BufferMs: int(output.DefaultBufferDuration / time.Millisecond),
		},
		Log: LogConfig{
			File: "playout.log",
		},
	}
}

// Load reads the YAML configuration file at path on top of Default
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r on top of Default and validates it.
// Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg and returns every problem found, joined
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Output.Backend != "" && !slices.Contains(output.HostNames(), cfg.Output.Backend) {
		errs = append(errs, fmt.Errorf("output.backend %q is invalid; valid values: %v", cfg.Output.Backend, output.HostNames()))
	}
	if cfg.Output.BufferMs < 1 || cfg.Output.BufferMs > 1000 {
		errs = append(errs, fmt.Errorf("output.buffer_ms %d is out of range [1, 1000]", cfg.Output.BufferMs))
	}
	if cfg.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
			errs = append(errs, fmt.Errorf("metrics.addr %q is invalid: %w", cfg.Metrics.Addr, err))
		}
	}
	if cfg.Log.File == "" {
		errs = append(errs, errors.New("log.file must not be empty"))
	}

	return errors.Join(errs...)
}
