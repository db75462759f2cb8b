package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	// File paths
	DBPath string

	// Server settings
	ServerHost string
	ServerPort int
	APIKey     string

	// Upstream credentials
	GitHubToken  string
	TavilyAPIKey string

	// Processing settings
	Interval time.Duration

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration with hardcoded defaults and
// credentials resolved from the environment.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	return &Config{
		DBPath:       DefaultDBPath,
		ServerHost:   DefaultServerHost,
		ServerPort:   DefaultServerPort,
		APIKey:       GetEnvString("AGGREGATOR_API_KEY", ""),
		GitHubToken:  GetEnvString("GITHUB_TOKEN", ""),
		TavilyAPIKey: GetEnvString("TAVILY_API_KEY", ""),
		Interval:     time.Duration(DefaultInterval) * time.Minute,
		LogLevel:     logLevel,
	}
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
