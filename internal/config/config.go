package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DeviceName  string        `yaml:"device_name"`  // name advertised in the SDP record
	Provider    string        `yaml:"provider"`     // provider string in the SDP record
	Adapter     string        `yaml:"adapter"`      // BlueZ adapter name (e.g. "hci0"); empty = first found
	ProfilePath string        `yaml:"profile_path"` // D-Bus object path for the exported profile
	Escape      EscapeConfig  `yaml:"escape"`
	Capture     CaptureConfig `yaml:"capture"`
	LogLevel    string        `yaml:"log_level"`
	Headless    bool          `yaml:"headless"`
}

// EscapeConfig holds the stop-sharing key combination.
type EscapeConfig struct {
	Keys []string `yaml:"keys"` // lowercase evdev key names, all held at once
}

// CaptureConfig holds input capture tuning.
type CaptureConfig struct {
	PollIntervalMs int `yaml:"poll_interval_ms"` // multiplexed wait quantum
	StopTimeoutMs  int `yaml:"stop_timeout_ms"`  // worker join timeout on stop
	QueueSize      int `yaml:"queue_size"`       // buffered event channel size
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "hidshare")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		DeviceName:  "EasyHID",
		Provider:    "Linux",
		Adapter:     "",
		ProfilePath: "/org/bluez/hidshare/profile",
		Escape: EscapeConfig{
			Keys: []string{"leftshift", "space", "rightshift"},
		},
		Capture: CaptureConfig{
			PollIntervalMs: 100,
			StopTimeoutMs:  2000,
			QueueSize:      256,
		},
		LogLevel: "info",
		Headless: false,
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// KeyCodes maps lowercase evdev key names to key codes, for resolving the
// escape combination. Only keys that make sense in a hold-combo are listed.
var KeyCodes = map[string]uint16{
	"esc":        1,
	"tab":        15,
	"enter":      28,
	"leftctrl":   29,
	"leftshift":  42,
	"rightshift": 54,
	"leftalt":    56,
	"space":      57,
	"f12":        88,
	"rightctrl":  97,
	"rightalt":   100,
	"leftmeta":   125,
	"rightmeta":  126,
}

// EscapeKeyCodes resolves the configured escape key names to evdev codes.
// Call Validate first; unknown names are skipped here.
func (c *Config) EscapeKeyCodes() []uint16 {
	codes := make([]uint16, 0, len(c.Escape.Keys))
	for _, name := range c.Escape.Keys {
		if code, ok := KeyCodes[strings.ToLower(name)]; ok {
			codes = append(codes, code)
		}
	}
	return codes
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.DeviceName == "" {
		return fmt.Errorf("device_name must not be empty")
	}

	if !strings.HasPrefix(c.ProfilePath, "/") {
		return fmt.Errorf("profile_path must be an absolute D-Bus object path, got %q", c.ProfilePath)
	}

	if len(c.Escape.Keys) < 2 {
		return fmt.Errorf("escape.keys needs at least 2 keys, got %d", len(c.Escape.Keys))
	}
	for _, name := range c.Escape.Keys {
		if _, ok := KeyCodes[strings.ToLower(name)]; !ok {
			return fmt.Errorf("escape.keys contains unknown key name %q", name)
		}
	}

	if c.Capture.PollIntervalMs <= 0 {
		return fmt.Errorf("capture.poll_interval_ms must be > 0")
	}
	if c.Capture.StopTimeoutMs <= 0 {
		return fmt.Errorf("capture.stop_timeout_ms must be > 0")
	}
	if c.Capture.QueueSize <= 0 {
		return fmt.Errorf("capture.queue_size must be > 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a config log level string to a slog.Level.
// Unknown values default to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
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

// WriteDefault writes a commented default config to the default path if no
// config file exists yet. Returns the written path, or "" if a file was
// already present.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(DefaultConfigDir(), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	cfg := Default()
	body, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling default config: %w", err)
	}

	header := "# hidshare configuration\n" +
		"# Share the local keyboard and mouse with a paired Bluetooth host.\n\n"
	if err := os.WriteFile(path, append([]byte(header), body...), 0644); err != nil {
		return "", fmt.Errorf("writing default config: %w", err)
	}

	return path, nil
}
