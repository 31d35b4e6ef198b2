package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/watchdone/watchdone/internal/domain"
)

// Config holds all application configuration
type Config struct {
	Store       StoreConfig       `mapstructure:"store"`
	Cache       CacheConfig       `mapstructure:"cache"`
	User        UserConfig        `mapstructure:"user"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
	Paging      PagingConfig      `mapstructure:"paging"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// StoreConfig holds the remote document store configuration
type StoreConfig struct {
	DatabaseURL string `mapstructure:"database_url"` // Postgres DSN
	Migrate     bool   `mapstructure:"migrate"`      // Apply migrations on startup
}

// CacheConfig holds local cache configuration
type CacheConfig struct {
	Dir string `mapstructure:"dir"` // Empty keeps the cache in memory
}

// UserConfig identifies the signed-in user. Implements domain.Identity.
type UserConfig struct {
	ID string `mapstructure:"id"`
}

func (u UserConfig) UserID() (string, error) {
	if u.ID == "" {
		return "", domain.ErrNotSignedIn
	}
	return u.ID, nil
}

// PreferencesConfig holds user preferences. Implements domain.Settings.
type PreferencesConfig struct {
	AscSort   bool `mapstructure:"asc_sort"`    // Oldest release first
	UseProdDB bool `mapstructure:"use_prod_db"` // Production dataset instead of staging
}

func (p PreferencesConfig) SortDirection() domain.Direction {
	if p.AscSort {
		return domain.Ascending
	}
	return domain.Descending
}

func (p PreferencesConfig) UseProdDataset() bool {
	return p.UseProdDB
}

// PagingConfig tunes the pager
type PagingConfig struct {
	PageSize      int `mapstructure:"page_size"`
	LookaheadSize int `mapstructure:"lookahead_size"`
	ProbeSize     int `mapstructure:"probe_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			DatabaseURL: "postgres://localhost:5432/watchdone?sslmode=disable",
			Migrate:     false,
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
		},
		Preferences: PreferencesConfig{
			AscSort:   false,
			UseProdDB: true,
		},
		Paging: PagingConfig{
			PageSize:      20,
			LookaheadSize: 15,
			ProbeSize:     3,
		},
		Logging: LoggingConfig{
			File:       defaultLogPath(),
			Level:      "INFO",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "watchdone", "watchdone.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "watchdone", "watchdone.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "watchdone")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "watchdone")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "watchdone", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "watchdone", "cache")
	}
}

func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// Environment variable overrides, e.g. WATCHDONE_STORE_DATABASE_URL
	v.SetEnvPrefix("WATCHDONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults register every key so env overrides apply without a file
	v.SetDefault("store.database_url", cfg.Store.DatabaseURL)
	v.SetDefault("store.migrate", cfg.Store.Migrate)
	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("user.id", cfg.User.ID)
	v.SetDefault("preferences.asc_sort", cfg.Preferences.AscSort)
	v.SetDefault("preferences.use_prod_db", cfg.Preferences.UseProdDB)
	v.SetDefault("paging.page_size", cfg.Paging.PageSize)
	v.SetDefault("paging.lookahead_size", cfg.Paging.LookaheadSize)
	v.SetDefault("paging.probe_size", cfg.Paging.ProbeSize)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", cfg.Logging.MaxAgeDays)
	return v
}

// LoadConfig loads configuration from file and environment. An empty path
// searches the default config directory and the working directory.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := newViper(cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes cfg to path, or to the default location when path is empty.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = filepath.Join(defaultConfigPath(), "config.yaml")
	}

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := newViper(cfg)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ClearCache removes the cache directory
func ClearCache(cfg *Config) error {
	if cfg.Cache.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(cfg.Cache.Dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
