// Package config loads the daemon configuration from a YAML file and fills
// in receiver defaults for anything unset.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/gps.report/internal/serialmux"
)

// Config is the daemon configuration. Transport parameters live here; the
// framing and parsing layers take no configuration at all.
type Config struct {
	// Device is the serial device path of the GPS receiver.
	Device string `yaml:"device"`

	// Port holds the serial connection parameters.
	Port serialmux.PortOptions `yaml:"port"`

	// ReadTimeoutMS bounds each blocking read on the port, in
	// milliseconds. The receiver reports once a second, so the default
	// of 1000 ms keeps timed-out reads rare in normal operation.
	ReadTimeoutMS int `yaml:"read_timeout_ms"`

	// Fixture is the file replayed instead of the device in dev mode.
	Fixture string `yaml:"fixture"`
}

// Default returns the configuration for the reference receiver wiring.
func Default() Config {
	return Config{
		Device: "/dev/ttyUSB0",
		Port: serialmux.PortOptions{
			BaudRate: 9600,
			DataBits: 8,
			StopBits: 1,
			Parity:   "N",
		},
		ReadTimeoutMS: 1000,
		Fixture:       "fixtures.txt",
	}
}

// ReadTimeout returns the configured read timeout as a duration.
func (c Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

// Load reads a YAML config file, applies defaults for unset values, and
// validates the result.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.Device == "" {
		return Config{}, fmt.Errorf("device is required")
	}
	if cfg.ReadTimeoutMS <= 0 {
		cfg.ReadTimeoutMS = 1000
	}
	if _, err := cfg.Port.Normalize(); err != nil {
		return Config{}, fmt.Errorf("invalid port options: %w", err)
	}

	return cfg, nil
}
