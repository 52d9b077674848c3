// Package config holds the application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Locate   LocateConfig   `yaml:"locate"`
	Compass  CompassConfig  `yaml:"compass"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"` // empty: stdout only
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// UpstreamConfig holds settings for the spatial query service.
type UpstreamConfig struct {
	URL           string        `yaml:"url"`
	Timeout       Duration      `yaml:"timeout"`
	Retries       int           `yaml:"retries"`
	Backoff       BackoffConfig `yaml:"backoff"`
	CacheTTL      Duration      `yaml:"cache_ttl"`
	DefaultRadius float64       `yaml:"default_radius"` // meters
}

// FallbackConfig is the coordinate used when geolocation fails.
type FallbackConfig struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

// LocateConfig holds geolocation settings.
type LocateConfig struct {
	Provider  string         `yaml:"provider"` // "ip", "static"
	URL       string         `yaml:"url"`      // ip provider endpoint
	Timeout   Duration       `yaml:"timeout"`
	MaxFixAge Duration       `yaml:"max_fix_age"`
	Fallback  FallbackConfig `yaml:"fallback"`
}

// CompassConfig holds heading estimation and layout settings.
type CompassConfig struct {
	HistorySize       int      `yaml:"history_size"`
	ResampleInterval  Duration `yaml:"resample_interval"`
	FrameInterval     Duration `yaml:"frame_interval"`
	MarkerSpacing     float64  `yaml:"marker_spacing"`
	PlaceholderLabels []string `yaml:"placeholder_labels"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Address: ":1910"},
		Log:    LogConfig{Level: "info"},
		Upstream: UpstreamConfig{
			URL:     "https://overpass.kumi.systems/api/buildings",
			Timeout: Duration(10 * time.Second),
			Retries: 2,
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(10 * time.Second),
			},
			CacheTTL:      Duration(time.Minute),
			DefaultRadius: 400,
		},
		Locate: LocateConfig{
			Provider:  "ip",
			URL:       "http://ip-api.com/json/",
			Timeout:   Duration(10 * time.Second),
			MaxFixAge: Duration(30 * time.Second),
			// Shibuya Station, the fixed default search origin.
			Fallback: FallbackConfig{Lat: 35.6580, Lng: 139.7016},
		},
		Compass: CompassConfig{
			HistorySize:       12,
			ResampleInterval:  Duration(16 * time.Millisecond),
			FrameInterval:     Duration(16 * time.Millisecond),
			MarkerSpacing:     28,
			PlaceholderLabels: []string{"Building", "建物"},
		},
	}
}

// Load reads the config file at path, layered over defaults. A missing file
// yields the defaults. Environment variables override empty endpoint fields.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if v := os.Getenv("WINDROSE_UPSTREAM_URL"); v != "" {
		cfg.Upstream.URL = v
	}
	if v := os.Getenv("WINDROSE_GEOIP_URL"); v != "" {
		cfg.Locate.URL = v
	}

	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault writes the default config to path unless it already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return Save(path, DefaultConfig())
}
