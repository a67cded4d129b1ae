package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Omnibot server settings
	ServerURL   string
	MintTimeout time.Duration

	// StreamTimeout bounds a whole streaming exchange, so a hung stream
	// cannot leave the client busy forever.
	StreamTimeout time.Duration

	// Store settings
	StorePath string

	// Feature flags
	Plain   bool
	Verbose bool
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	cfg := &Config{
		ServerURL:     "http://localhost:8000",
		MintTimeout:   3 * time.Second,
		StreamTimeout: 120 * time.Second,
		StorePath:     expandHome("~/.omnichat/threads.json"),
		Plain:         false,
		Verbose:       false,
	}

	if url := GetEnv("OMNIBOT_URL"); url != "" {
		cfg.ServerURL = url
	}
	if path := GetEnv("OMNICHAT_STORE"); path != "" {
		cfg.StorePath = expandHome(path)
	}

	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server URL cannot be empty")
	}
	if c.StorePath == "" {
		return fmt.Errorf("store path cannot be empty")
	}
	if c.StreamTimeout < time.Second {
		return fmt.Errorf("stream timeout must be at least 1s")
	}
	return nil
}

// expandHome expands the ~ in file paths to the user's home directory
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir := getHomeDir()
		return homeDir + path[1:]
	}
	return path
}

// getHomeDir returns the user's home directory
func getHomeDir() string {
	if home := GetEnv("HOME"); home != "" {
		return home
	}
	// Fallback for Windows
	if home := GetEnv("USERPROFILE"); home != "" {
		return home
	}
	return "."
}

// GetEnv is a wrapper around os.Getenv for easier testing
var GetEnv = func(key string) string {
	// Will be replaced with os.Getenv in main
	return ""
}
