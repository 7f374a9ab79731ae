package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "api:\n  base_url: https://api.ziyoflix.uz\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.TimeoutSeconds != 15 {
		t.Errorf("timeout default wrong: %d", cfg.API.TimeoutSeconds)
	}
	if cfg.Media.Origin != "https://api.ziyoflix.uz" {
		t.Errorf("media origin should default to the API base: %q", cfg.Media.Origin)
	}
	if cfg.Feed.PrefetchThreshold != 4 {
		t.Errorf("prefetch threshold default wrong: %d", cfg.Feed.PrefetchThreshold)
	}
	if cfg.Playback.VisibilityThreshold != 0.7 {
		t.Errorf("visibility threshold default wrong: %v", cfg.Playback.VisibilityThreshold)
	}
	if cfg.Comments.ScrollThresholdPx != 120 {
		t.Errorf("scroll threshold default wrong: %v", cfg.Comments.ScrollThresholdPx)
	}
	if cfg.Session.StatePath == "" {
		t.Error("state path default missing")
	}
}

func TestLoad_ExplicitValuesKept(t *testing.T) {
	path := writeConfig(t, `api:
  base_url: https://api.ziyoflix.uz
  timeout_seconds: 30
media:
  origin: https://media.ziyoflix.uz
feed:
  prefetch_threshold: 2
playback:
  muted: true
  visibility_threshold: 0.5
comments:
  scroll_threshold_px: 200
session:
  state_path: /var/lib/ziyoflix/session.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.TimeoutSeconds != 30 || cfg.Feed.PrefetchThreshold != 2 ||
		!cfg.Playback.Muted || cfg.Playback.VisibilityThreshold != 0.5 ||
		cfg.Comments.ScrollThresholdPx != 200 ||
		cfg.Session.StatePath != "/var/lib/ziyoflix/session.db" {
		t.Errorf("explicit values overridden: %#v", cfg)
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, "api:\n  base_url: https://api.ziyoflix.uz\n  bogus: 1\n")

	if _, err := Load(path); err == nil {
		t.Fatal("unknown fields must be rejected")
	}
}

func TestLoad_MissingBaseURLRejected(t *testing.T) {
	path := writeConfig(t, "feed:\n  prefetch_threshold: 2\n")

	if _, err := Load(path); err == nil {
		t.Fatal("missing api.base_url must be rejected")
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file must error")
	}
}
