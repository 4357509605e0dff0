package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the persistent application configuration
type Config struct {
	// Catalog backend
	API APIConfig `yaml:"api"`

	// Browse screen preferences
	UI UIConfig `yaml:"ui"`

	// Session store settings
	Session SessionConfig `yaml:"session"`

	// Log file settings
	Logging LoggingConfig `yaml:"logging"`

	// Where `get` and the detail screen save downloads
	DownloadDir string `yaml:"download_dir"`
}

// APIConfig holds catalog backend settings
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`    // Per-request bound
	RateEvery time.Duration `yaml:"rate_every"` // Minimum spacing between requests, 0 = unpaced
	UserID    string        `yaml:"user_id"`    // Sent with uploads
}

// UIConfig holds UI preferences
type UIConfig struct {
	PageSize int `yaml:"page_size"`
}

// SessionConfig holds session store settings
type SessionConfig struct {
	Path string        `yaml:"path"` // SQLite file, ":memory:" for throwaway sessions
	TTL  time.Duration `yaml:"ttl"`
}

// LoggingConfig holds log file settings
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DataDir returns ~/.stucon, falling back to the working directory
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stucon"
	}
	return filepath.Join(home, ".stucon")
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	dir := DataDir()
	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:8080",
			Timeout:   10 * time.Second,
			RateEvery: 100 * time.Millisecond,
			UserID:    "1",
		},
		UI: UIConfig{
			PageSize: 20,
		},
		Session: SessionConfig{
			Path: filepath.Join(dir, "session.db"),
			TTL:  24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       filepath.Join(dir, "logs", "stucon.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		DownloadDir: ".",
	}
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// Load reads config from path (ConfigPath() when empty), or returns defaults.
// Fields missing from the file keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.AutoPopulateFromEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.AutoPopulateFromEnv()
	return cfg, cfg.Validate()
}

// Save writes config to path (ConfigPath() when empty)
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Validate rejects values the client cannot run with
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url is empty")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.UI.PageSize <= 0 {
		return fmt.Errorf("config: ui.page_size must be positive, got %d", c.UI.PageSize)
	}
	return nil
}

// LoadEnvFile loads KEY=value pairs from a dotenv file into the process
// environment. Variables already set are not overridden.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return godotenv.Load(path)
}

// AutoPopulateFromEnv applies STUCON_* overrides from the environment
func (c *Config) AutoPopulateFromEnv() {
	if v := os.Getenv("STUCON_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("STUCON_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.API.Timeout = d
		}
	}
	if v := os.Getenv("STUCON_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.UI.PageSize = n
		}
	}
	if v := os.Getenv("STUCON_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STUCON_SESSION_DB"); v != "" {
		c.Session.Path = v
	}
	if v := os.Getenv("STUCON_DOWNLOAD_DIR"); v != "" {
		c.DownloadDir = v
	}
}
