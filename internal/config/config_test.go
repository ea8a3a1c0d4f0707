package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "puzzled" {
		t.Errorf("expected Name=puzzled, got %s", cfg.Name)
	}
	if cfg.Puzzle.Cols != 5 || cfg.Puzzle.Rows != 4 {
		t.Errorf("expected 5x4 grid, got %dx%d", cfg.Puzzle.Cols, cfg.Puzzle.Rows)
	}
	if cfg.Puzzle.ColorThreshold != 9 {
		t.Errorf("expected ColorThreshold=9, got %d", cfg.Puzzle.ColorThreshold)
	}
	if cfg.Puzzle.MeanErrorThreshold != 0.13 {
		t.Errorf("expected MeanErrorThreshold=0.13, got %v", cfg.Puzzle.MeanErrorThreshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("PUZZLED_ADDR", "")
	t.Setenv("PUZZLED_DB", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Puzzle.Cols = 8
	cfg.Puzzle.MeanErrorThreshold = 0.2
	cfg.Storage.Codec = "jpeg"
	cfg.Logging.Categories = map[string]bool{"discovery": false}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Puzzle.Cols != 8 {
		t.Errorf("expected Cols=8, got %d", loaded.Puzzle.Cols)
	}
	if loaded.Puzzle.MeanErrorThreshold != 0.2 {
		t.Errorf("expected MeanErrorThreshold=0.2, got %v", loaded.Puzzle.MeanErrorThreshold)
	}
	if loaded.Storage.Codec != "jpeg" {
		t.Errorf("expected Codec=jpeg, got %s", loaded.Storage.Codec)
	}
	if loaded.Logging.Categories["discovery"] {
		t.Error("expected discovery category disabled after round trip")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("PUZZLED_COLS", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Puzzle.Cols != 5 {
		t.Errorf("expected default Cols=5, got %d", cfg.Puzzle.Cols)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("puzzle:\n  color_threshold: 20\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Puzzle.ColorThreshold != 20 {
		t.Errorf("expected ColorThreshold=20, got %d", cfg.Puzzle.ColorThreshold)
	}
	if cfg.Puzzle.Rows != 4 {
		t.Errorf("expected default Rows=4, got %d", cfg.Puzzle.Rows)
	}
	if cfg.Server.CookieName != "puzzle_session" {
		t.Errorf("expected default cookie name, got %s", cfg.Server.CookieName)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("puzzle: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cols", func(c *Config) { c.Puzzle.Cols = 0 }},
		{"negative rows", func(c *Config) { c.Puzzle.Rows = -1 }},
		{"color threshold above 255", func(c *Config) { c.Puzzle.ColorThreshold = 256 }},
		{"negative color threshold", func(c *Config) { c.Puzzle.ColorThreshold = -1 }},
		{"mean error above 1", func(c *Config) { c.Puzzle.MeanErrorThreshold = 1.5 }},
		{"unknown codec", func(c *Config) { c.Storage.Codec = "gif" }},
		{"jpeg quality", func(c *Config) { c.Storage.Codec = "jpeg"; c.Storage.JPEGQuality = 0 }},
		{"unknown backend", func(c *Config) { c.Storage.SessionBackend = "redis" }},
		{"unknown driver", func(c *Config) { c.Storage.SessionBackend = "sqlite"; c.Storage.SQLiteDriver = "pg" }},
		{"negative workers", func(c *Config) { c.Discovery.MaxWorkers = -2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestConfig_DurationGetters(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetDiscoveryTimeout(); got != 60*time.Second {
		t.Errorf("expected 60s discovery timeout, got %v", got)
	}
	if got := cfg.GetReadTimeout(); got != 30*time.Second {
		t.Errorf("expected 30s read timeout, got %v", got)
	}

	cfg.Discovery.Timeout = "not-a-duration"
	cfg.Server.WriteTimeout = "5s"
	if got := cfg.GetDiscoveryTimeout(); got != 60*time.Second {
		t.Errorf("expected fallback 60s, got %v", got)
	}
	if got := cfg.GetWriteTimeout(); got != 5*time.Second {
		t.Errorf("expected 5s write timeout, got %v", got)
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	if lc.IsCategoryEnabled("discovery") {
		t.Error("categories must be disabled outside debug mode")
	}

	lc.DebugMode = true
	if !lc.IsCategoryEnabled("discovery") {
		t.Error("nil category map should enable everything")
	}

	lc.Categories = map[string]bool{"discovery": false}
	if lc.IsCategoryEnabled("discovery") {
		t.Error("explicitly disabled category reported enabled")
	}
	if !lc.IsCategoryEnabled("assembly") {
		t.Error("unlisted category should default to enabled")
	}

	opts := lc.Options()
	if !opts.DebugMode || opts.Categories["discovery"] {
		t.Errorf("Options did not carry logging settings: %+v", opts)
	}
}
