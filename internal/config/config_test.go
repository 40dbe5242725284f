package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.DeviceName == "" {
		t.Error("DeviceName should not be empty")
	}
	if cfg.ProfilePath != "/org/bluez/hidshare/profile" {
		t.Errorf("ProfilePath = %q, want %q", cfg.ProfilePath, "/org/bluez/hidshare/profile")
	}
	if len(cfg.Escape.Keys) != 3 {
		t.Errorf("Escape.Keys length = %d, want 3", len(cfg.Escape.Keys))
	}
	if cfg.Capture.PollIntervalMs != 100 {
		t.Errorf("Capture.PollIntervalMs = %d, want 100", cfg.Capture.PollIntervalMs)
	}
	if cfg.Capture.StopTimeoutMs != 2000 {
		t.Errorf("Capture.StopTimeoutMs = %d, want 2000", cfg.Capture.StopTimeoutMs)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
device_name: "My Laptop"
adapter: hci1
escape:
  keys: ["leftctrl", "esc"]
capture:
  poll_interval_ms: 50
  stop_timeout_ms: 1000
  queue_size: 64
log_level: debug
headless: true
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DeviceName != "My Laptop" {
		t.Errorf("DeviceName = %q, want %q", cfg.DeviceName, "My Laptop")
	}
	if cfg.Adapter != "hci1" {
		t.Errorf("Adapter = %q, want %q", cfg.Adapter, "hci1")
	}
	if len(cfg.Escape.Keys) != 2 || cfg.Escape.Keys[0] != "leftctrl" || cfg.Escape.Keys[1] != "esc" {
		t.Errorf("Escape.Keys = %v, want [leftctrl esc]", cfg.Escape.Keys)
	}
	if cfg.Capture.PollIntervalMs != 50 {
		t.Errorf("Capture.PollIntervalMs = %d, want 50", cfg.Capture.PollIntervalMs)
	}
	if !cfg.Headless {
		t.Error("Headless = false, want true")
	}
	// Fields not present in the file keep their defaults
	if cfg.ProfilePath != "/org/bluez/hidshare/profile" {
		t.Errorf("ProfilePath = %q, want default", cfg.ProfilePath)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty device name",
			modify:  func(c *Config) { c.DeviceName = "" },
			wantErr: true,
		},
		{
			name:    "relative profile path",
			modify:  func(c *Config) { c.ProfilePath = "org/bluez/profile" },
			wantErr: true,
		},
		{
			name:    "single escape key",
			modify:  func(c *Config) { c.Escape.Keys = []string{"esc"} },
			wantErr: true,
		},
		{
			name:    "unknown escape key name",
			modify:  func(c *Config) { c.Escape.Keys = []string{"leftshift", "hyperkey"} },
			wantErr: true,
		},
		{
			name:    "zero poll interval",
			modify:  func(c *Config) { c.Capture.PollIntervalMs = 0 },
			wantErr: true,
		},
		{
			name:    "negative stop timeout",
			modify:  func(c *Config) { c.Capture.StopTimeoutMs = -1 },
			wantErr: true,
		},
		{
			name:    "zero queue size",
			modify:  func(c *Config) { c.Capture.QueueSize = 0 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEscapeKeyCodes(t *testing.T) {
	cfg := Default()
	codes := cfg.EscapeKeyCodes()
	want := []uint16{42, 57, 54} // leftshift, space, rightshift
	if len(codes) != len(want) {
		t.Fatalf("EscapeKeyCodes() length = %d, want %d", len(codes), len(want))
	}
	for i, c := range want {
		if codes[i] != c {
			t.Errorf("EscapeKeyCodes()[%d] = %d, want %d", i, codes[i], c)
		}
	}
}

func TestEscapeKeyCodesCaseInsensitive(t *testing.T) {
	cfg := Default()
	cfg.Escape.Keys = []string{"LeftShift", "SPACE"}
	codes := cfg.EscapeKeyCodes()
	if len(codes) != 2 || codes[0] != 42 || codes[1] != 57 {
		t.Errorf("EscapeKeyCodes() = %v, want [42 57]", codes)
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "hidshare", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}

	if !strings.HasPrefix(string(data), "# hidshare") {
		t.Error("written config should start with header comment")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.DeviceName != "EasyHID" {
		t.Errorf("written config DeviceName = %q, want %q", cfg.DeviceName, "EasyHID")
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "hidshare")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("device_name: Custom\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
