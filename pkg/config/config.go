package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete receiver configuration.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	RTSP    RTSPConfig    `yaml:"rtsp"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// DeviceConfig identifies the receiver on the network.
type DeviceConfig struct {
	// Name is the friendly name shown in sender pickers.
	Name string `yaml:"name"`

	// ID is the device MAC address in colon-separated hex.
	// If empty, the hardware address of the first usable interface is used.
	ID string `yaml:"id"`

	// Model is the advertised device model string.
	Model string `yaml:"model"`
}

// RTSPConfig contains the RTSP control server configuration.
type RTSPConfig struct {
	Port        int    `yaml:"port"`
	BindAddress string `yaml:"bind_address"`

	// PollInterval is the per-connection read deadline in milliseconds.
	PollInterval int `yaml:"poll_interval"`

	// MaxRequestSize bounds a single buffered request in bytes.
	MaxRequestSize int `yaml:"max_request_size"`
}

// MetricsConfig contains the Prometheus endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration with usable defaults for all fields
// except the device ID.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Name:  "AirPlay Receiver",
			Model: "AudioAccessory1,1",
		},
		RTSP: RTSPConfig{
			Port:           7000,
			BindAddress:    "0.0.0.0",
			PollInterval:   250,
			MaxRequestSize: 16 * 1024,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and parses the configuration file. Fields absent from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs validation of the configuration.
func (c *Config) Validate() error {
	if err := c.Device.Validate(); err != nil {
		return fmt.Errorf("device config: %w", err)
	}

	if err := c.RTSP.Validate(); err != nil {
		return fmt.Errorf("rtsp config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates device configuration.
func (d *DeviceConfig) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if d.ID != "" {
		if _, err := d.ParseID(); err != nil {
			return err
		}
	}

	return nil
}

// ParseID parses the configured device ID into a 6-byte MAC address.
func (d *DeviceConfig) ParseID() ([6]byte, error) {
	var id [6]byte

	hw, err := net.ParseMAC(d.ID)
	if err != nil {
		return id, fmt.Errorf("id must be a MAC address, got %q", d.ID)
	}
	if len(hw) != 6 {
		return id, fmt.Errorf("id must be 6 bytes, got %d", len(hw))
	}

	copy(id[:], hw)
	return id, nil
}

// Validate validates RTSP server configuration.
func (r *RTSPConfig) Validate() error {
	if r.Port < 1 || r.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", r.Port)
	}

	if r.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if r.PollInterval < 1 {
		return fmt.Errorf("poll_interval must be at least 1 ms, got %d", r.PollInterval)
	}

	if r.MaxRequestSize < 1024 {
		return fmt.Errorf("max_request_size must be at least 1024 bytes, got %d", r.MaxRequestSize)
	}

	return nil
}

// Validate validates metrics configuration.
func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Address == "" {
		return fmt.Errorf("address cannot be empty when metrics are enabled")
	}

	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [trace, debug, info, warn, error], got '%s'", l.Level)
	}

	return nil
}

// GetPollInterval returns the poll interval as a time.Duration.
func (r *RTSPConfig) GetPollInterval() time.Duration {
	return time.Duration(r.PollInterval) * time.Millisecond
}

// ListenAddr returns the host:port string the RTSP server binds to.
func (r *RTSPConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", r.BindAddress, r.Port)
}
