package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mosaicdev/chorus/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "View or modify configuration",
	Long: `View or modify Chorus configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the value and writes the user
config file.

Configuration is stored at ~/.config/chorus/config.yaml
Project-specific overrides can be placed in .chorus.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			value, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
		default:
			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Printf("Set %s = %s in %s\n", args[0], args[1], config.GetUserConfigPath())
		}
		return nil
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("server.addr: %s\n", cfg.Server.Addr)
	fmt.Printf("catalog.db_path: %s\n", cfg.Catalog.DBPath)
	fmt.Printf("session.heartbeat_interval: %s\n", cfg.Session.HeartbeatInterval)
	fmt.Printf("session.call_timeout: %s\n", cfg.Session.CallTimeout)
	fmt.Printf("session.max_tokens: %d\n", cfg.Session.MaxTokens)
	fmt.Printf("session.event_buffer: %d\n", cfg.Session.EventBuffer)
	fmt.Printf("defaults.project_id: %s\n", cfg.Defaults.ProjectID)
	fmt.Printf("debug.log_path: %s\n", cfg.Debug.LogPath)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "server.addr":
		return cfg.Server.Addr, nil
	case "catalog.db_path":
		return cfg.Catalog.DBPath, nil
	case "session.heartbeat_interval":
		return cfg.Session.HeartbeatInterval.String(), nil
	case "session.call_timeout":
		return cfg.Session.CallTimeout.String(), nil
	case "session.max_tokens":
		return strconv.Itoa(cfg.Session.MaxTokens), nil
	case "session.event_buffer":
		return strconv.Itoa(cfg.Session.EventBuffer), nil
	case "defaults.project_id":
		return cfg.Defaults.ProjectID, nil
	case "debug.log_path":
		return cfg.Debug.LogPath, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "server.addr":
		cfg.Server.Addr = value
	case "catalog.db_path":
		cfg.Catalog.DBPath = value
	case "session.heartbeat_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for heartbeat_interval: %w", err)
		}
		cfg.Session.HeartbeatInterval = d
	case "session.call_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for call_timeout: %w", err)
		}
		cfg.Session.CallTimeout = d
	case "session.max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_tokens: %w", err)
		}
		cfg.Session.MaxTokens = n
	case "session.event_buffer":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for event_buffer: %w", err)
		}
		cfg.Session.EventBuffer = n
	case "defaults.project_id":
		cfg.Defaults.ProjectID = value
	case "debug.log_path":
		cfg.Debug.LogPath = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
