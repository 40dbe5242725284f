package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gioui.org/app"

	"github.com/chaz8081/hidshare/internal/bluez"
	"github.com/chaz8081/hidshare/internal/config"
	"github.com/chaz8081/hidshare/internal/input"
	"github.com/chaz8081/hidshare/internal/session"
	"github.com/chaz8081/hidshare/internal/ui"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/hidshare/config.yaml)")
	headless := flag.Bool("headless", false, "run without the status window and start sharing immediately")
	writeConfig := flag.Bool("write-config", false, "write a default config file and exit")
	flag.Parse()

	if *writeConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("write-config: %v", err)
		}
		if path == "" {
			log.Printf("Config already exists at %s", config.DefaultConfigPath())
		} else {
			log.Printf("Wrote default config to %s", path)
		}
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *headless {
		cfg.Headless = true
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	printBanner(cfg)

	// Connect to BlueZ over the system bus
	profile, err := bluez.Connect(cfg.DeviceName, cfg.Provider, cfg.ProfilePath)
	if err != nil {
		log.Fatalf("Failed to connect to BlueZ: %v\n\nIs bluetoothd running? Check 'systemctl status bluetooth'.", err)
	}

	// Capture engine for the local devices
	engine := input.NewEngine(input.Options{
		PollInterval: time.Duration(cfg.Capture.PollIntervalMs) * time.Millisecond,
		StopTimeout:  time.Duration(cfg.Capture.StopTimeoutMs) * time.Millisecond,
		QueueSize:    cfg.Capture.QueueSize,
		EscapeKeys:   cfg.EscapeKeyCodes(),
	})

	// Hotplug monitoring is informational only
	monitor, err := input.NewMonitor("/dev/input")
	if err != nil {
		slog.Warn("[main] hotplug monitoring unavailable", "error", err)
	} else {
		go logHotplug(monitor)
		defer monitor.Close()
	}

	// Signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	hint := "Press " + strings.Join(cfg.Escape.Keys, " + ") + " to stop sharing."

	if cfg.Headless {
		runHeadless(cfg, profile, engine, sigCh, hint)
		return
	}

	window := ui.NewStatusWindow(hint)
	sess := session.New(cfg, profile, engine, nil, window)
	window.SetController(sess)

	go func() {
		err := window.Run()
		if stopErr := sess.Stop(); stopErr != nil {
			slog.Warn("[main] stop on window close", "error", stopErr)
		}
		profile.Close()
		if err != nil {
			log.Printf("Window error: %v", err)
			os.Exit(1)
		}
		os.Exit(0)
	}()

	go func() {
		sig := <-sigCh
		log.Printf("Received %s, shutting down...", sig)
		if err := sess.Stop(); err != nil {
			slog.Warn("[main] stop on signal", "error", err)
		}
		profile.Close()
		os.Exit(0)
	}()

	app.Main()
}

// runHeadless starts sharing immediately and runs until a signal or the
// escape combination ends the session.
func runHeadless(cfg *config.Config, profile *bluez.Profile, engine *input.Engine, sigCh chan os.Signal, hint string) {
	defer profile.Close()

	sess := session.New(cfg, profile, engine, nil, ui.Console{})
	if err := sess.Start(); err != nil {
		log.Fatalf("Failed to start sharing: %v", err)
	}
	log.Println("Sharing started.", hint, "Ctrl+C to quit.")

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case sig := <-sigCh:
			log.Printf("Received %s, shutting down...", sig)
			if err := sess.Stop(); err != nil {
				slog.Warn("[main] stop on signal", "error", err)
			}
			return
		case <-ticker.C:
			if sess.State() == session.Idle {
				log.Println("Sharing stopped.")
				return
			}
		}
	}
}

func logHotplug(monitor *input.Monitor) {
	for ev := range monitor.Events() {
		switch ev.Kind {
		case input.DeviceAdded:
			slog.Info("[main] input device added", "path", ev.Path)
		case input.DeviceRemoved:
			slog.Info("[main] input device removed", "path", ev.Path)
		}
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== hidshare ===")
	fmt.Printf("  Device:  %s (%s)\n", cfg.DeviceName, cfg.Provider)
	adapter := cfg.Adapter
	if adapter == "" {
		adapter = "auto"
	}
	fmt.Printf("  Adapter: %s\n", adapter)
	fmt.Printf("  Escape:  %s\n", strings.Join(cfg.Escape.Keys, "+"))
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("================")
}
