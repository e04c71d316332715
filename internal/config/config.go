// Package config handles configuration loading and management for Chorus.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Chorus.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Session  SessionConfig  `mapstructure:"session"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Debug    DebugConfig    `mapstructure:"debug"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// CatalogConfig holds role/provider catalog storage settings.
type CatalogConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// SessionConfig holds per-session orchestration settings.
type SessionConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	CallTimeout       time.Duration `mapstructure:"call_timeout"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	EventBuffer       int           `mapstructure:"event_buffer"`
}

// DefaultsConfig holds fallback provider settings used when the catalog has
// no binding for a role.
type DefaultsConfig struct {
	ProjectID string `mapstructure:"project_id"`
}

// DebugConfig holds debug logging settings.
type DebugConfig struct {
	LogPath string `mapstructure:"log_path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (CHORUS_*)
// 2. Project config (.chorus.yaml in current directory or parent)
// 3. User config (~/.config/chorus/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("CHORUS")
	v.AutomaticEnv()

	v.BindEnv("server.addr", "CHORUS_ADDR")
	v.BindEnv("catalog.db_path", "CHORUS_DB_PATH")
	v.BindEnv("session.call_timeout", "CHORUS_CALL_TIMEOUT")
	v.BindEnv("session.max_tokens", "CHORUS_MAX_TOKENS")
	v.BindEnv("debug.log_path", "CHORUS_DEBUG_LOG")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Catalog.DBPath = os.ExpandEnv(cfg.Catalog.DBPath)
	cfg.Debug.LogPath = os.ExpandEnv(cfg.Debug.LogPath)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Catalog.DBPath = os.ExpandEnv(cfg.Catalog.DBPath)
	cfg.Debug.LogPath = os.ExpandEnv(cfg.Debug.LogPath)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("server.addr", cfg.Server.Addr)
	v.Set("catalog.db_path", cfg.Catalog.DBPath)
	v.Set("session.heartbeat_interval", cfg.Session.HeartbeatInterval.String())
	v.Set("session.call_timeout", cfg.Session.CallTimeout.String())
	v.Set("session.max_tokens", cfg.Session.MaxTokens)
	v.Set("session.event_buffer", cfg.Session.EventBuffer)
	v.Set("defaults.project_id", cfg.Defaults.ProjectID)
	v.Set("debug.log_path", cfg.Debug.LogPath)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")

	v.SetDefault("catalog.db_path", defaultDBPath())

	v.SetDefault("session.heartbeat_interval", "15s")
	v.SetDefault("session.call_timeout", "5m")
	v.SetDefault("session.max_tokens", 8192)
	v.SetDefault("session.event_buffer", 256)

	v.SetDefault("defaults.project_id", "")

	v.SetDefault("debug.log_path", "")
}

// getUserConfigDir returns the XDG config directory for Chorus.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "chorus")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "chorus")
	}
	return filepath.Join(home, ".config", "chorus")
}

// defaultDBPath returns the XDG data path for the catalog database.
func defaultDBPath() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "chorus", "catalog.db")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".chorus", "catalog.db")
	}
	return filepath.Join(home, ".local", "share", "chorus", "catalog.db")
}

// findProjectConfig searches for .chorus.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".chorus.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Catalog: CatalogConfig{
			DBPath: defaultDBPath(),
		},
		Session: SessionConfig{
			HeartbeatInterval: 15 * time.Second,
			CallTimeout:       5 * time.Minute,
			MaxTokens:         8192,
			EventBuffer:       256,
		},
	}
}
