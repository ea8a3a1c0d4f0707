package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all puzzled configuration.
type Config struct {
	// Core settings
	Name string `yaml:"name"`

	// Grid shape and similarity thresholds
	Puzzle PuzzleConfig `yaml:"puzzle"`

	// Fragment pixels and session records
	Storage StorageConfig `yaml:"storage"`

	// Adjacency discovery fan-out
	Discovery DiscoveryConfig `yaml:"discovery"`

	// HTTP transport
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// PuzzleConfig configures slicing and the similarity metric.
type PuzzleConfig struct {
	Cols               int     `yaml:"cols"`
	Rows               int     `yaml:"rows"`
	ColorThreshold     int     `yaml:"color_threshold"`      // 0-255 per channel
	MeanErrorThreshold float64 `yaml:"mean_error_threshold"` // 0.0-1.0 mismatch ratio
	ShuffleSeed        uint64  `yaml:"shuffle_seed"`         // 0 = fresh random shuffle per upload
	AssetName          string  `yaml:"asset_name"`           // Stable name used in fragment keys
}

// StorageConfig configures the image and session stores.
type StorageConfig struct {
	ImageDir       string `yaml:"image_dir"`
	Codec          string `yaml:"codec"` // png, jpeg
	JPEGQuality    int    `yaml:"jpeg_quality"`
	SessionBackend string `yaml:"session_backend"` // memory, sqlite
	DatabasePath   string `yaml:"database_path"`
	SQLiteDriver   string `yaml:"sqlite_driver"` // sqlite3 (cgo), sqlite (pure Go)
}

// DiscoveryConfig configures the adjacency discoverer.
type DiscoveryConfig struct {
	MaxWorkers int    `yaml:"max_workers"` // 0 = one goroutine per fragment
	Timeout    string `yaml:"timeout"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	ReadTimeout    string `yaml:"read_timeout"`
	WriteTimeout   string `yaml:"write_timeout"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	MaxConnections int    `yaml:"max_connections"` // 0 = unlimited
	CookieName     string `yaml:"cookie_name"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "puzzled",

		Puzzle: PuzzleConfig{
			Cols:               5,
			Rows:               4,
			ColorThreshold:     9,
			MeanErrorThreshold: 0.13,
			AssetName:          "image",
		},

		Storage: StorageConfig{
			ImageDir:       "data/fragments",
			Codec:          "png",
			JPEGQuality:    95,
			SessionBackend: "memory",
			DatabasePath:   "data/puzzled.db",
			SQLiteDriver:   "sqlite3",
		},

		Discovery: DiscoveryConfig{
			MaxWorkers: 0,
			Timeout:    "60s",
		},

		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    "30s",
			WriteTimeout:   "60s",
			MaxUploadBytes: 32 << 20,
			MaxConnections: 256,
			CookieName:     "puzzle_session",
		},

		Logging: LoggingConfig{
			Level:   "info",
			LogsDir: "data/logs",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("PUZZLED_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if dir := os.Getenv("PUZZLED_IMAGE_DIR"); dir != "" {
		c.Storage.ImageDir = dir
	}
	if path := os.Getenv("PUZZLED_DB"); path != "" {
		c.Storage.DatabasePath = path
		c.Storage.SessionBackend = "sqlite"
	}
	if v := os.Getenv("PUZZLED_COLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Puzzle.Cols = n
		}
	}
	if v := os.Getenv("PUZZLED_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Puzzle.Rows = n
		}
	}
}

// GetDiscoveryTimeout returns the discovery timeout as a duration.
func (c *Config) GetDiscoveryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Discovery.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetReadTimeout returns the HTTP read timeout as a duration.
func (c *Config) GetReadTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ReadTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetWriteTimeout returns the HTTP write timeout as a duration.
func (c *Config) GetWriteTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.WriteTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// ValidCodecs lists the supported fragment codecs.
var ValidCodecs = []string{"png", "jpeg"}

// ValidSessionBackends lists the supported session stores.
var ValidSessionBackends = []string{"memory", "sqlite"}

// ValidSQLiteDrivers lists the registered database/sql driver names.
var ValidSQLiteDrivers = []string{"sqlite3", "sqlite"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Puzzle.Validate(); err != nil {
		return err
	}
	if !contains(ValidCodecs, c.Storage.Codec) {
		return fmt.Errorf("invalid codec: %s (valid: %v)", c.Storage.Codec, ValidCodecs)
	}
	if c.Storage.Codec == "jpeg" && (c.Storage.JPEGQuality < 1 || c.Storage.JPEGQuality > 100) {
		return fmt.Errorf("jpeg_quality %d outside [1,100]", c.Storage.JPEGQuality)
	}
	if !contains(ValidSessionBackends, c.Storage.SessionBackend) {
		return fmt.Errorf("invalid session backend: %s (valid: %v)", c.Storage.SessionBackend, ValidSessionBackends)
	}
	if c.Storage.SessionBackend == "sqlite" && !contains(ValidSQLiteDrivers, c.Storage.SQLiteDriver) {
		return fmt.Errorf("invalid sqlite driver: %s (valid: %v)", c.Storage.SQLiteDriver, ValidSQLiteDrivers)
	}
	if c.Discovery.MaxWorkers < 0 {
		return fmt.Errorf("max_workers must be >= 0, got %d", c.Discovery.MaxWorkers)
	}
	return nil
}

// Validate checks the grid shape and metric thresholds.
func (p PuzzleConfig) Validate() error {
	if p.Cols < 1 || p.Rows < 1 {
		return fmt.Errorf("grid must be at least 1x1, got %dx%d", p.Cols, p.Rows)
	}
	if p.ColorThreshold < 0 || p.ColorThreshold > 255 {
		return fmt.Errorf("color_threshold %d outside [0,255]", p.ColorThreshold)
	}
	if p.MeanErrorThreshold < 0 || p.MeanErrorThreshold > 1 {
		return fmt.Errorf("mean_error_threshold %v outside [0,1]", p.MeanErrorThreshold)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
