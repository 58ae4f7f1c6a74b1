// Package config loads and validates the daemon configuration. Values come
// from a YAML file layered under environment-variable overrides; every field
// has a documented default so a missing file is not an error (the defaults
// are written out for the user to edit).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pasikonik/sun-dimmer/internal/domain/model"
)

type Config struct {
	Location   LocationConfig   `yaml:"location"`
	Brightness BrightnessConfig `yaml:"brightness"`
	System     SystemConfig     `yaml:"system"`
	Devices    []DeviceConfig   `yaml:"devices"`
	Server     ServerConfig     `yaml:"server"`
	Notify     NotifyConfig     `yaml:"notify"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

type LocationConfig struct {
	ManualLatitude  float64 `yaml:"manual_latitude"`
	ManualLongitude float64 `yaml:"manual_longitude"`
	UseAutoLocation bool    `yaml:"use_auto_location"`
}

type BrightnessConfig struct {
	MinBrightness         float64 `yaml:"min_brightness"`
	MaxBrightness         float64 `yaml:"max_brightness"`
	SunDownAlt            float64 `yaml:"sun_down_alt"`
	SunHighAlt            float64 `yaml:"sun_high_alt"`
	ManualChangeTolerance float64 `yaml:"manual_change_tolerance"`
}

type SystemConfig struct {
	UpdateIntervalSec      int    `yaml:"update_interval"`
	ErrorBackoffSec        int    `yaml:"error_backoff"`
	LogLevel               string `yaml:"log_level"`
	LogBeforeChangeMinutes int    `yaml:"log_before_change_minutes"`
}

type DeviceConfig struct {
	Type string `yaml:"type"`
	// ID is the ddcutil display number; unused for laptop panels.
	ID   int    `yaml:"id,omitempty"`
	Name string `yaml:"name"`
}

type ServerConfig struct {
	MetricsPort int `yaml:"metrics_port"`
}

type NotifyConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Command     string `yaml:"command"`
	CooldownSec int    `yaml:"cooldown"`
}

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// UpdateInterval returns the poll interval as a duration.
func (s SystemConfig) UpdateInterval() time.Duration {
	return time.Duration(s.UpdateIntervalSec) * time.Second
}

// ErrorBackoff returns the post-error recovery sleep, capped at the poll
// interval so a failing tick never waits longer than a healthy one.
func (s SystemConfig) ErrorBackoff() time.Duration {
	backoff := time.Duration(s.ErrorBackoffSec) * time.Second
	if interval := s.UpdateInterval(); backoff > interval {
		return interval
	}
	return backoff
}

// LookAhead returns the imminence-gate prediction horizon.
func (s SystemConfig) LookAhead() time.Duration {
	return time.Duration(s.LogBeforeChangeMinutes) * time.Minute
}

// Cooldown returns the notification dedup window.
func (n NotifyConfig) Cooldown() time.Duration {
	return time.Duration(n.CooldownSec) * time.Second
}

// Default returns the configuration written on first run. The coordinates
// default to Poznań; users running elsewhere either edit them or enable auto
// location.
func Default() *Config {
	return &Config{
		Location: LocationConfig{
			ManualLatitude:  52.3821038,
			ManualLongitude: 16.9141764,
			UseAutoLocation: false,
		},
		Brightness: BrightnessConfig{
			MinBrightness:         1,
			MaxBrightness:         100,
			SunDownAlt:            -6,
			SunHighAlt:            30,
			ManualChangeTolerance: 2,
		},
		System: SystemConfig{
			UpdateIntervalSec:      300,
			ErrorBackoffSec:        60,
			LogLevel:               "info",
			LogBeforeChangeMinutes: 15,
		},
		Devices: []DeviceConfig{
			{Type: "laptop", Name: "Laptop screen"},
			{Type: "monitor", ID: 1, Name: "External monitor"},
		},
		Server: ServerConfig{
			MetricsPort: 9183,
		},
		Notify: NotifyConfig{
			Enabled:     false,
			Command:     "notify-send",
			CooldownSec: 300,
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Insecure: true,
		},
	}
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "sun_dimmer"), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultStatePath returns the default state file location.
func DefaultStatePath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.json"), nil
}

// Load reads the config file at path, applies environment overrides, and
// validates. If the file does not exist, the defaults are written there
// first so the user has something to edit.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Best effort: if the defaults cannot be written the daemon still
		// runs on them, the user just has no file to edit.
		_ = writeDefault(path)
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyEnvOverrides(cfg *Config) {
	cfg.Location.ManualLatitude = getEnvFloat("SUN_DIMMER_LATITUDE", cfg.Location.ManualLatitude)
	cfg.Location.ManualLongitude = getEnvFloat("SUN_DIMMER_LONGITUDE", cfg.Location.ManualLongitude)
	cfg.Location.UseAutoLocation = getEnvBool("SUN_DIMMER_AUTO_LOCATION", cfg.Location.UseAutoLocation)
	cfg.System.UpdateIntervalSec = getEnvInt("SUN_DIMMER_UPDATE_INTERVAL", cfg.System.UpdateIntervalSec)
	cfg.System.LogLevel = getEnv("SUN_DIMMER_LOG_LEVEL", cfg.System.LogLevel)
	cfg.Server.MetricsPort = getEnvInt("SUN_DIMMER_METRICS_PORT", cfg.Server.MetricsPort)
	cfg.Tracing.Endpoint = getEnv("SUN_DIMMER_TRACING_ENDPOINT", cfg.Tracing.Endpoint)
	if cfg.Tracing.Endpoint != "" {
		cfg.Tracing.Enabled = true
	}
}

func (c *Config) validate() error {
	b := c.Brightness
	if b.MinBrightness < 1 || b.MaxBrightness > 100 {
		return fmt.Errorf("brightness bounds must stay within 1-100, got min=%v max=%v", b.MinBrightness, b.MaxBrightness)
	}
	if b.MinBrightness > b.MaxBrightness {
		return fmt.Errorf("min_brightness %v exceeds max_brightness %v", b.MinBrightness, b.MaxBrightness)
	}
	if b.SunDownAlt >= b.SunHighAlt {
		return fmt.Errorf("sun_down_alt %v must be below sun_high_alt %v", b.SunDownAlt, b.SunHighAlt)
	}
	if b.ManualChangeTolerance < 0 {
		return fmt.Errorf("manual_change_tolerance must not be negative, got %v", b.ManualChangeTolerance)
	}
	if c.System.UpdateIntervalSec <= 0 {
		return fmt.Errorf("update_interval must be positive, got %d", c.System.UpdateIntervalSec)
	}
	if c.System.ErrorBackoffSec <= 0 {
		return fmt.Errorf("error_backoff must be positive, got %d", c.System.ErrorBackoffSec)
	}
	if c.System.LogBeforeChangeMinutes < 0 {
		return fmt.Errorf("log_before_change_minutes must not be negative, got %d", c.System.LogBeforeChangeMinutes)
	}
	if !c.Location.UseAutoLocation {
		coords := model.Coordinates{Latitude: c.Location.ManualLatitude, Longitude: c.Location.ManualLongitude}
		if !coords.Valid() {
			return fmt.Errorf("manual coordinates %s are out of range", coords)
		}
	}
	for i, d := range c.Devices {
		if !model.DeviceKind(d.Type).Valid() {
			return fmt.Errorf("devices[%d]: unknown type %q", i, d.Type)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
