// Package config loads the reels engine configuration from a YAML file.
// Decoding is strict: unknown fields are rejected, unset fields get explicit
// defaults.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Media    MediaConfig    `yaml:"media"`
	Feed     FeedConfig     `yaml:"feed"`
	Playback PlaybackConfig `yaml:"playback"`
	Comments CommentsConfig `yaml:"comments"`
	Session  SessionConfig  `yaml:"session"`
}

// APIConfig points the engine at the reels backend.
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"` // per-request; releases the single-flight guard on hang
}

// MediaConfig configures absolute-URL resolution for relative media paths.
type MediaConfig struct {
	Origin string `yaml:"origin"`
}

type FeedConfig struct {
	PrefetchThreshold int `yaml:"prefetch_threshold"`
}

type PlaybackConfig struct {
	Muted               bool    `yaml:"muted"`
	VisibilityThreshold float64 `yaml:"visibility_threshold"`
}

type CommentsConfig struct {
	ScrollThresholdPx float64 `yaml:"scroll_threshold_px"`
}

// SessionConfig locates the durable per-viewer state (seed, viewer id).
type SessionConfig struct {
	StatePath string `yaml:"state_path"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.setDefaults()

	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api.base_url is required")
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 15
	}
	if c.Media.Origin == "" {
		c.Media.Origin = c.API.BaseURL
	}
	if c.Feed.PrefetchThreshold <= 0 {
		c.Feed.PrefetchThreshold = 4
	}
	if c.Playback.VisibilityThreshold <= 0 {
		c.Playback.VisibilityThreshold = 0.7
	}
	if c.Comments.ScrollThresholdPx <= 0 {
		c.Comments.ScrollThresholdPx = 120
	}
	if c.Session.StatePath == "" {
		c.Session.StatePath = "ziyoflix-session.db"
	}
}
