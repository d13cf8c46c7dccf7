package config

import (
	"os"
	"strconv"

	"scsim/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Sim      SimConfig
	Paths    PathConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DatabaseConfig holds the optional run-registry connection settings.
// When URL is empty the API falls back to the in-memory registry.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// SimConfig holds engine defaults
type SimConfig struct {
	Workers int
}

// PathConfig holds file system paths
type PathConfig struct {
	// ReferenceFile points at the reference dataset the API simulates from:
	// either an .xlsx workbook or a genes.csv (with cells.csv alongside).
	ReferenceFile string
	CellsFile     string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "debug"),
		},
		Database: DatabaseConfig{
			URL:     getEnvOrDefault("DATABASE_URL", ""),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Sim: SimConfig{
			Workers: getEnvIntOrDefault("SIM_WORKERS", 1),
		},
		Paths: PathConfig{
			ReferenceFile: getEnvOrDefault("REFERENCE_FILE", ""),
			CellsFile:     getEnvOrDefault("CELLS_FILE", ""),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	if config.Sim.Workers < 1 {
		return errors.ConfigInvalid("SIM_WORKERS must be >= 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
